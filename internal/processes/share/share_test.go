package share_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/memoverlay"
	"github.com/hive2hive/h2h/internal/notify"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/add"
	"github.com/hive2hive/h2h/internal/processes/share"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

type testSession struct {
	userID   string
	dm       *data.DataManager
	pm       *profilemanager.Manager
	cfg      *config.Configuration
	notifier *notify.Process
	creds    security.UserCredentials
}

func newTestSession(t *testing.T, overlay *memoverlay.Overlay, registry *loopmessenger.Registry, cfg *config.Configuration, userID string) *testSession {
	t.Helper()
	messenger := loopmessenger.New(registry, userID)
	dm := data.NewDataManager(overlay, messenger, logrus.StandardLogger())

	creds := security.UserCredentials{UserID: userID, Password: "secret", Pin: "1234"}
	rootKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	protKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	profile := model.NewUserProfile(model.NewFolderIndex("root", "", rootKP), protKP)
	require.NoError(t, profilemanager.CreateProfile(context.Background(), dm, creds, *cfg, profile))

	pm := profilemanager.New(dm, creds, *cfg, logrus.StandardLogger())
	t.Cleanup(pm.Close)

	locations := location.New(dm)
	notifier := notify.New(dm, locations, userID)

	return &testSession{userID: userID, dm: dm, pm: pm, cfg: cfg, notifier: notifier, creds: creds}
}

func (s *testSession) newFctx() *pctx.FileOperationContext {
	return pctx.New(s.userID, s.creds, s.cfg, s.dm, s.pm, s.notifier)
}

func runProcess(t *testing.T, proc *procfx.Process) {
	t.Helper()
	state, failure := proc.ExecuteBlocking(context.Background())
	require.Nilf(t, failure, "process failed: %+v", failure)
	require.Equal(t, procfx.Succeeded, state)
}

func mkdir(t *testing.T, session *testSession, folderPath, name string) *model.FolderIndex {
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
	return folder
}

// TestShareThenFetchRebuildsSubtreeForFriend covers A sharing a folder
// with B and B decrypting and rebuilding the subtree from the envelope A
// left on the DHT, per spec.md §8 scenario 5's sibling (folder sharing).
func TestShareThenFetchRebuildsSubtreeForFriend(t *testing.T) {
	overlay := memoverlay.New()
	registry := loopmessenger.NewRegistry()
	cfg := config.Default()

	alice := newTestSession(t, overlay, registry, cfg, "alice")
	bobMessenger := loopmessenger.New(registry, "bob")
	bobMessenger.Listen("folder-shared", func(ctx context.Context, msg data.DirectMessage) data.AcceptanceReply {
		return data.Accepted
	})
	defer bobMessenger.Close()

	bobKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)

	shared := mkdir(t, alice, "/", "shared")
	runProcess(t, add.New(alice.newFctx(), "/shared/notes.txt", []byte("from alice")))

	runProcess(t, share.New(alice.newFctx(), "/shared", "bob", bobKP.Public, true))

	folder, descendants, err := share.FetchSharedSubtree(context.Background(), alice.dm, shared.ID(), "bob", bobKP.Private)
	require.NoError(t, err)
	require.Equal(t, "shared", folder.Name())

	var fileIdx model.Index
	for _, idx := range descendants {
		if idx.Name() == "notes.txt" {
			fileIdx = idx
		}
	}
	require.NotNil(t, fileIdx, "shared subtree should include the descendant file")
	fileIndex := fileIdx.(*model.FileIndex)

	mf, err := chunking.GetMetaFile(context.Background(), alice.dm, fileIndex.KeyPair(), fileIndex.ID())
	require.NoError(t, err)
	require.Len(t, mf.Versions, 1)
}

// TestFriendUpdatesSharedFileDirectlyOnTheDHT exercises spec.md §8
// scenario 6: a friend granted write access updates a shared file's
// content directly against the file's own keypair (the access model for
// a shared object is the object's own DHT keys, not the owner's
// profile), and the owner can subsequently read the new version back.
func TestFriendUpdatesSharedFileDirectlyOnTheDHT(t *testing.T) {
	overlay := memoverlay.New()
	registry := loopmessenger.NewRegistry()
	cfg := config.Default()

	alice := newTestSession(t, overlay, registry, cfg, "alice")
	bobKP, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)

	shared := mkdir(t, alice, "/", "shared")
	runProcess(t, add.New(alice.newFctx(), "/shared/notes.txt", []byte("version-0 by alice")))

	runProcess(t, share.New(alice.newFctx(), "/shared", "bob", bobKP.Public, true))

	_, descendants, err := share.FetchSharedSubtree(context.Background(), alice.dm, shared.ID(), "bob", bobKP.Private)
	require.NoError(t, err)
	var fileIndex *model.FileIndex
	for _, idx := range descendants {
		if fi, ok := idx.(*model.FileIndex); ok && fi.Name() == "notes.txt" {
			fileIndex = fi
		}
	}
	require.NotNil(t, fileIndex)

	// Bob uses his own messenger/data-manager against the same overlay,
	// but the file's own keypair to reach it.
	bobMessenger := loopmessenger.New(registry, "bob")
	defer bobMessenger.Close()
	bobDM := data.NewDataManager(overlay, bobMessenger, logrus.StandardLogger())

	mf, err := chunking.GetMetaFile(context.Background(), bobDM, fileIndex.KeyPair(), fileIndex.ID())
	require.NoError(t, err)
	require.Len(t, mf.Versions, 1)

	newContent := []byte("version-1 written by bob")
	newChunks, err := chunking.Upload(context.Background(), bobDM, mf.ChunkKey, newContent, cfg.ChunkSize)
	require.NoError(t, err)

	mf.AddVersion(model.FileVersion{
		Index:      1,
		Size:       int64(len(newContent)),
		Timestamp:  time.Now(),
		MetaChunks: newChunks,
	})
	require.NoError(t, chunking.PutMetaFile(context.Background(), bobDM, fileIndex.KeyPair(), mf))

	// Alice reads back the meta-file from her own data manager and sees
	// bob's version.
	aliceMf, err := chunking.GetMetaFile(context.Background(), alice.dm, fileIndex.KeyPair(), fileIndex.ID())
	require.NoError(t, err)
	require.Len(t, aliceMf.Versions, 2)

	downloader := chunking.NewDownloader(alice.dm, aliceMf.ChunkKey)
	var buf []byte
	w := &sliceWriter{&buf}
	require.NoError(t, downloader.DownloadTo(context.Background(), w, aliceMf.Versions[1].MetaChunks))
	require.Equal(t, newContent, buf)
}

type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
