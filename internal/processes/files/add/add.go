// Package add implements the add-file process of spec.md §4.6.
package add

import (
	"context"
	"path"
	"time"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

// New builds the sequential process: check preconditions, chunk and
// upload, create and put the meta-file, insert into the profile, notify.
// Rollback undoes in reverse: remove the profile entry, delete the
// meta-file, delete the chunks.
func New(fctx *pctx.FileOperationContext, filePath string, fileData []byte) *procfx.Process {
	fctx.Path = filePath
	fctx.FileData = fileData

	checkAndClaim := procfx.NewStep("check-preconditions-and-claim-profile",
		func(ctx context.Context) *procfx.StepFailure { return checkPreconditions(ctx, fctx, filePath) },
		nil)

	uploadChunks := procfx.NewStep("upload-chunks",
		func(ctx context.Context) *procfx.StepFailure { return doUploadChunks(ctx, fctx) },
		func(ctx context.Context, _ *procfx.StepFailure) { chunking.Delete(ctx, fctx.DataManager, fctx.UploadedChunks) })

	createMetaFile := procfx.NewStep("create-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return doCreateMetaFile(ctx, fctx) },
		func(ctx context.Context, _ *procfx.StepFailure) {
			if fctx.MetaFile != nil {
				_ = chunking.DeleteMetaFile(ctx, fctx.DataManager, fctx.MetaFile.ID)
			}
		})

	insertIntoProfile := procfx.NewStep("insert-into-profile",
		func(ctx context.Context) *procfx.StepFailure { return doInsertIntoProfile(fctx, filePath) },
		func(ctx context.Context, _ *procfx.StepFailure) {
			if fctx.TargetIndex != nil {
				fctx.Profile.Tree.Remove(fctx.TargetIndex)
			}
		})

	putProfile := procfx.NewStep("put-profile",
		func(ctx context.Context) *procfx.StepFailure { return putProfileStep(ctx, fctx) }, nil)

	notifyStep := procfx.NewStep("notify-co-owners",
		func(ctx context.Context) *procfx.StepFailure { notifyCoOwners(ctx, fctx); return nil }, nil)

	return procfx.New(procfx.NewSequential("add-file",
		checkAndClaim, uploadChunks, createMetaFile, insertIntoProfile, putProfile, notifyStep))
}

func checkPreconditions(ctx context.Context, fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, true)
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get profile for add", err)
	}
	if !model.IsInside("/", filePath) {
		return procfx.Fail(h2herrors.IllegalFileLocation, "path escapes root: "+filePath)
	}
	if _, exists := profile.Tree.Resolve(filePath); exists {
		return procfx.Fail(h2herrors.IllegalFileLocation, "already present: "+filePath)
	}
	parentPath := path.Dir(filePath)
	parentIdx, ok := profile.Tree.Resolve(parentPath)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "parent does not exist: "+parentPath)
	}
	parentFolder, ok := parentIdx.(*model.FolderIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "parent is not a folder: "+parentPath)
	}
	fctx.Profile = profile
	fctx.ParentFolder = parentFolder
	return nil
}

func doUploadChunks(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	chunkKey, err := security.GenerateKeyPair(fctx.Config.RSAKeyLengthChunk)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "generate chunk key", err)
	}
	metaChunks, err := chunking.Upload(ctx, fctx.DataManager, chunkKey, fctx.FileData, fctx.Config.ChunkSize)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "upload chunks", err)
	}
	fctx.ChunkKey = chunkKey
	fctx.UploadedChunks = metaChunks
	return nil
}

func doCreateMetaFile(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	nodeKey, err := security.GenerateKeyPair(fctx.Config.RSAKeyLengthFile)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "generate node key", err)
	}
	fctx.NodeKeyPair = nodeKey

	mf := model.NewMetaFile(model.PublicKeyIDOf(nodeKey.Public), fctx.ChunkKey)
	mf.AddVersion(model.FileVersion{
		Index:      0,
		Size:       int64(len(fctx.FileData)),
		Timestamp:  time.Now(),
		MetaChunks: fctx.UploadedChunks,
	})
	fctx.MetaFile = mf

	if err := chunking.PutMetaFile(ctx, fctx.DataManager, nodeKey, mf); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put meta-file", err)
	}
	return nil
}

func doInsertIntoProfile(fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	md5 := security.MD5Bytes(fctx.FileData)
	fileIndex := model.NewFileIndex(path.Base(filePath), fctx.ParentFolder.ID(), fctx.NodeKeyPair, md5)
	fctx.Profile.Tree.Insert(fctx.ParentFolder, fileIndex)
	fctx.TargetIndex = fileIndex
	return nil
}

func putProfileStep(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	if err := fctx.ProfileManager.ReadyToPut(ctx, fctx.PID, fctx.Profile); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put profile", err)
	}
	return nil
}

func notifyCoOwners(ctx context.Context, fctx *pctx.FileOperationContext) {
	recipients := []string{fctx.UserID}
	for userID := range fctx.ParentFolder.SharedWith {
		recipients = append(recipients, userID)
	}
	_, _ = fctx.Notifier.Notify(ctx, recipients, func(recipient string) data.DirectMessage {
		return data.DirectMessage{Kind: "file-added", Payload: []byte(fctx.Path)}
	}, nil)
}
