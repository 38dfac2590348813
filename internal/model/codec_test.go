package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/security"
)

func genKeyPair(t *testing.T) security.KeyPair {
	t.Helper()
	kp, err := security.GenerateKeyPair(2048)
	require.NoError(t, err)
	return kp
}

func TestProfileMarshalUnmarshalRoundTrip(t *testing.T) {
	rootKP := genKeyPair(t)
	root := model.NewFolderIndex("root", "", rootKP)
	profile := model.NewUserProfile(root, genKeyPair(t))

	docsKP := genKeyPair(t)
	docs := model.NewFolderIndex("docs", root.ID(), docsKP)
	profile.Tree.Insert(root, docs)

	fileKP := genKeyPair(t)
	file := model.NewFileIndex("report.txt", docs.ID(), fileKP, [16]byte{1, 2, 3})
	profile.Tree.Insert(docs, file)
	docs.SharedWith["friend"] = true
	profile.VersionKey = "v1"
	profile.BasedOnKey = "v0"

	blob, err := model.Marshal(profile)
	require.NoError(t, err)

	restored, err := model.Unmarshal(blob)
	require.NoError(t, err)

	require.Equal(t, model.VersionKey("v1"), restored.VersionKey)
	require.Equal(t, model.VersionKey("v0"), restored.BasedOnKey)
	require.Equal(t, "/docs/report.txt", restored.Tree.Path(mustResolve(t, restored.Tree, "/docs/report.txt")))

	restoredDocs, ok := restored.Tree.Get(docs.ID())
	require.True(t, ok)
	folder, ok := restoredDocs.(*model.FolderIndex)
	require.True(t, ok)
	require.True(t, folder.SharedWith["friend"])

	restoredFile, ok := restored.Tree.Get(file.ID())
	require.True(t, ok)
	require.Equal(t, [16]byte{1, 2, 3}, restoredFile.(*model.FileIndex).MD5)
}

func mustResolve(t *testing.T, tree *model.Tree, path string) model.Index {
	t.Helper()
	idx, ok := tree.Resolve(path)
	require.True(t, ok)
	return idx
}

func TestMetaFileMarshalUnmarshalRoundTrip(t *testing.T) {
	chunkKey := genKeyPair(t)
	idKP := genKeyPair(t)
	mf := model.NewMetaFile(model.PublicKeyIDOf(idKP.Public), chunkKey)
	mf.AddVersion(model.FileVersion{Index: 0, Size: 10, MetaChunks: []model.MetaChunk{{ChunkID: "c0", Order: 0, ChunkHash: [16]byte{9}}}})

	blob, err := model.MarshalMetaFile(mf)
	require.NoError(t, err)

	restored, err := model.UnmarshalMetaFile(blob)
	require.NoError(t, err)
	require.Equal(t, mf.ID, restored.ID)
	require.Len(t, restored.Versions, 1)
	require.Equal(t, model.ContentKey("c0"), restored.Versions[0].MetaChunks[0].ChunkID)
}

func TestSubtreeMarshalUnmarshalRoundTrip(t *testing.T) {
	rootKP := genKeyPair(t)
	root := model.NewFolderIndex("shared", "", rootKP)
	tree := model.NewTree(root)

	childKP := genKeyPair(t)
	child := model.NewFileIndex("a.txt", root.ID(), childKP, [16]byte{7})
	tree.Insert(root, child)

	blob, err := model.MarshalSubtree(tree, root)
	require.NoError(t, err)

	restoredRoot, nodes, err := model.UnmarshalSubtree(blob)
	require.NoError(t, err)
	require.Equal(t, "shared", restoredRoot.Name())
	require.Len(t, nodes, 2)
	require.Contains(t, nodes, child.ID())
}
