package update_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
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
	"github.com/hive2hive/h2h/internal/processes/files/update"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

// testSession bundles the long-lived collaborators a real node.Node would
// hold, so each operation below builds a fresh FileOperationContext (with
// its own PID) against the same underlying profile/overlay, mirroring
// node.Node.newFctx.
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

	s := &testSession{dm: dm, pm: pm, cfg: cfg}
	s.notifier = notifier
	s.creds = creds
	return s
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

// TestRetentionEvictionKeepsOnlyNewestVersions exercises spec.md §8
// scenario 1: maxNumOfVersions=3, unlimited total size, one add followed
// by four updates should retain exactly versions {2,3,4} and the evicted
// versions' chunks should be gone from the overlay.
func TestRetentionEvictionKeepsOnlyNewestVersions(t *testing.T) {
	overlay := memoverlay.New()
	cfg := config.New(config.WithMaxNumOfVersions(3), config.WithMaxSizeAllVersions(1 << 40))

	session := newTestSession(t, overlay, cfg)
	runProcess(t, add.New(session.newFctx(), "/report.txt", []byte("version-0")))

	var evictedPerUpdate [][]model.MetaChunk
	var lastFctx *pctx.FileOperationContext
	for i := 1; i <= 4; i++ {
		lastFctx = session.newFctx()
		proc := update.New(lastFctx, "/report.txt", []byte("version-"+string(rune('0'+i))))
		runProcess(t, proc)
		evictedPerUpdate = append(evictedPerUpdate, append([]model.MetaChunk(nil), lastFctx.EvictedChunks...))
	}

	mf := lastFctx.MetaFile
	require.Len(t, mf.Versions, 3)
	var indexes []int
	for _, v := range mf.Versions {
		indexes = append(indexes, v.Index)
	}
	require.Equal(t, []int{2, 3, 4}, indexes)

	for _, evicted := range evictedPerUpdate {
		for _, mc := range evicted {
			params := data.NewParameters(string(mc.ChunkID), string(h2hconst.FileChunk))
			_, found, err := overlay.Get(context.Background(), params)
			require.NoError(t, err)
			require.False(t, found, "evicted chunk %s should be gone from the overlay", mc.ChunkID)
		}
	}
}
