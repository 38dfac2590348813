package move_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/memoverlay"
	"github.com/hive2hive/h2h/internal/notify"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/add"
	"github.com/hive2hive/h2h/internal/processes/files/move"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

type testSession struct {
	dm       *data.DataManager
	pm       *profilemanager.Manager
	cfg      *config.Configuration
	notifier *notify.Process
	creds    security.UserCredentials
}

func newTestSession(t *testing.T, overlay *memoverlay.Overlay, cfg *config.Configuration) *testSession {
	t.Helper()
	registry := loopmessenger.NewRegistry()
	messenger := loopmessenger.New(registry, "tester")
	dm := data.NewDataManager(overlay, messenger, logrus.StandardLogger())

	creds := security.UserCredentials{UserID: "alice", Password: "secret", Pin: "1234"}
	rootKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	protKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	profile := model.NewUserProfile(model.NewFolderIndex("root", "", rootKP), protKP)
	require.NoError(t, profilemanager.CreateProfile(context.Background(), dm, creds, *cfg, profile))

	pm := profilemanager.New(dm, creds, *cfg, logrus.StandardLogger())
	t.Cleanup(pm.Close)

	locations := location.New(dm)
	notifier := notify.New(dm, locations, "alice")

	return &testSession{dm: dm, pm: pm, cfg: cfg, notifier: notifier, creds: creds}
}

func (s *testSession) newFctx() *pctx.FileOperationContext {
	return pctx.New("alice", s.creds, s.cfg, s.dm, s.pm, s.notifier)
}

func runProcess(t *testing.T, proc *procfx.Process) {
	t.Helper()
	state, failure := proc.ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "process failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)
}

func mkdir(t *testing.T, session *testSession, folderPath, name string) {
	t.Helper()
	fctx := session.newFctx()
	profile, err := session.pm.GetUserProfile(context.Background(), fctx.PID, true)
	require.NoError(t, err)
	parentIdx, ok := profile.Tree.Resolve(folderPath)
	require.True(t, ok)
	parent := parentIdx.(*model.FolderIndex)
	kp, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	folder := model.NewFolderIndex(name, parent.ID(), kp)
	profile.Tree.Insert(parent, folder)
	require.NoError(t, session.pm.ReadyToPut(context.Background(), fctx.PID, profile))
}

// TestMoveReparentsAndRenamesFile adds a file under /docs, creates a
// sibling folder /pics, moves the file there under a new name, and
// asserts the old path is gone while the new path resolves to the same
// node identity.
func TestMoveReparentsAndRenamesFile(t *testing.T) {
	overlay := memoverlay.New()
	cfg := config.Default()
	session := newTestSession(t, overlay, cfg)

	mkdir(t, session, "/", "docs")
	mkdir(t, session, "/", "pics")
	runProcess(t, add.New(session.newFctx(), "/docs/report.txt", []byte("hello")))

	beforeFctx := session.newFctx()
	beforeProfile, err := session.pm.GetUserProfile(context.Background(), beforeFctx.PID, false)
	require.NoError(t, err)
	beforeIdx, ok := beforeProfile.Tree.Resolve("/docs/report.txt")
	require.True(t, ok)
	originalID := beforeIdx.ID()

	runProcess(t, move.New(session.newFctx(), "/docs/report.txt", "/pics/final.txt"))

	afterFctx := session.newFctx()
	afterProfile, err := session.pm.GetUserProfile(context.Background(), afterFctx.PID, false)
	require.NoError(t, err)

	_, stillAtOld := afterProfile.Tree.Resolve("/docs/report.txt")
	require.False(t, stillAtOld, "old path should no longer resolve")

	newIdx, ok := afterProfile.Tree.Resolve("/pics/final.txt")
	require.True(t, ok, "new path should resolve")
	require.Equal(t, originalID, newIdx.ID(), "move must preserve node identity")
}

// TestMoveRejectsDestinationThatAlreadyExists exercises the illegal-move
// edge case: moving onto an occupied path fails and leaves the tree
// unchanged.
func TestMoveRejectsDestinationThatAlreadyExists(t *testing.T) {
	overlay := memoverlay.New()
	cfg := config.Default()
	session := newTestSession(t, overlay, cfg)

	runProcess(t, add.New(session.newFctx(), "/a.txt", []byte("a")))
	runProcess(t, add.New(session.newFctx(), "/b.txt", []byte("b")))

	proc := move.New(session.newFctx(), "/a.txt", "/b.txt")
	_, failure := proc.ExecuteBlocking(context.Background())
	require.NotNil(t, failure)

	fctx := session.newFctx()
	profile, err := session.pm.GetUserProfile(context.Background(), fctx.PID, false)
	require.NoError(t, err)
	_, stillThere := profile.Tree.Resolve("/a.txt")
	require.True(t, stillThere, "failed move must not remove the source entry")
}
