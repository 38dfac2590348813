package login_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/memoverlay"
	"github.com/hive2hive/h2h/internal/notify"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/add"
	"github.com/hive2hive/h2h/internal/processes/login"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

type testSession struct {
	dm       *data.DataManager
	pm       *profilemanager.Manager
	cfg      *config.Configuration
	notifier *notify.Process
	locs     *location.Registry
	creds    security.UserCredentials
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()
	overlay := memoverlay.New()
	registry := loopmessenger.NewRegistry()
	messenger := loopmessenger.New(registry, "tester")
	dm := data.NewDataManager(overlay, messenger, logrus.StandardLogger())
	cfg := config.Default()

	creds := security.UserCredentials{UserID: "alice", Password: "secret", Pin: "1234"}
	rootKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	protKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	profile := model.NewUserProfile(model.NewFolderIndex("root", "", rootKP), protKP)
	require.NoError(t, profilemanager.CreateProfile(context.Background(), dm, creds, *cfg, profile))

	pm := profilemanager.New(dm, creds, *cfg, logrus.StandardLogger())
	t.Cleanup(pm.Close)

	locs := location.New(dm)
	notifier := notify.New(dm, locs, "alice")

	return &testSession{dm: dm, pm: pm, cfg: cfg, notifier: notifier, locs: locs, creds: creds}
}

func (s *testSession) newFctx() *pctx.FileOperationContext {
	return pctx.New("alice", s.creds, s.cfg, s.dm, s.pm, s.notifier)
}

// TestLoginDetectsAddedFileNotInSidecar exercises offline-add
// reconciliation: a file exists on disk that the sidecar never saw, so
// login should add it to the profile.
func TestLoginDetectsAddedFileNotInSidecar(t *testing.T) {
	session := newTestSession(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("brand new"), 0o644))

	deps := login.Deps{Locations: session.locs, Root: root, NewFctx: session.newFctx}
	var out login.Reconciliation
	proc := login.New(deps, "alice", "peer-1", map[string][16]byte{}, &out)

	state, failure := proc.ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "login failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)

	assert.Equal(t, []string{"new.txt"}, out.Added)
	assert.Empty(t, out.Updated)
	assert.Empty(t, out.Deleted)

	fctx := session.newFctx()
	profile, err := session.pm.GetUserProfile(context.Background(), fctx.PID, false)
	require.NoError(t, err)
	_, ok := profile.Tree.Resolve("/new.txt")
	assert.True(t, ok)
}

// TestLoginDetectsUpdatedAndDeletedFiles seeds the sidecar with a prior
// state that no longer matches disk: one file's content changed, one
// recorded file is missing entirely, and login must replay an update
// and a delete respectively.
func TestLoginDetectsUpdatedAndDeletedFiles(t *testing.T) {
	session := newTestSession(t)
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "changed.txt"), []byte("old content"), 0o644))
	state, failure := add.New(session.newFctx(), "/changed.txt", []byte("old content")).ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "seed add failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)

	sidecarTree := map[string][16]byte{
		"changed.txt": security.MD5Bytes([]byte("old content")),
		"gone.txt":    security.MD5Bytes([]byte("will be deleted")),
	}

	// Also seed "gone.txt" into the profile so the delete replay has
	// something to remove.
	state, failure = add.New(session.newFctx(), "/gone.txt", []byte("will be deleted")).ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "seed add failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)

	// Disk now has only the changed file with new content; gone.txt is
	// absent from disk entirely.
	require.NoError(t, os.WriteFile(filepath.Join(root, "changed.txt"), []byte("new content"), 0o644))

	deps := login.Deps{Locations: session.locs, Root: root, NewFctx: session.newFctx}
	var out login.Reconciliation
	loginProc := login.New(deps, "alice", "peer-1", sidecarTree, &out)

	state, failure = loginProc.ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "login failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)

	assert.Equal(t, []string{"changed.txt"}, out.Updated)
	assert.Equal(t, []string{"gone.txt"}, out.Deleted)

	afterFctx := session.newFctx()
	profile, err := session.pm.GetUserProfile(context.Background(), afterFctx.PID, false)
	require.NoError(t, err)
	_, stillThere := profile.Tree.Resolve("/gone.txt")
	assert.False(t, stillThere)
}

// TestLoginIgnoresControlDirectory exercises a real CLI-shaped root
// where the peer's own sidecar/overlay files live under
// h2hconst.ControlDirName alongside the synced files: login must never
// try to add them as if they were user data.
func TestLoginIgnoresControlDirectory(t *testing.T) {
	session := newTestSession(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.txt"), []byte("hello"), 0o644))

	controlDir := filepath.Join(root, h2hconst.ControlDirName)
	require.NoError(t, os.MkdirAll(controlDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(controlDir, "overlay.sqlite3"), []byte("not a real db"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(controlDir, h2hconst.SidecarFileName), []byte("not a real sidecar"), 0o644))

	deps := login.Deps{Locations: session.locs, Root: root, NewFctx: session.newFctx}
	var out login.Reconciliation
	proc := login.New(deps, "alice", "peer-1", map[string][16]byte{}, &out)

	state, failure := proc.ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "login failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)

	assert.Equal(t, []string{"doc.txt"}, out.Added)

	fctx := session.newFctx()
	profile, err := session.pm.GetUserProfile(context.Background(), fctx.PID, false)
	require.NoError(t, err)
	_, ok := profile.Tree.Resolve("/doc.txt")
	assert.True(t, ok)
	_, ok = profile.Tree.Resolve("/" + h2hconst.ControlDirName + "/overlay.sqlite3")
	assert.False(t, ok)
}
