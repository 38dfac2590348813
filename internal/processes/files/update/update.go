// Package update implements the update-file process of spec.md §4.6,
// including the retention-eviction loop grounded on
// org.hive2hive.core.processes.implementations.files.update.CreateNewVersionStep.
package update

import (
	"context"
	"time"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

func New(fctx *pctx.FileOperationContext, filePath string, fileData []byte) *procfx.Process {
	fctx.Path = filePath
	fctx.FileData = fileData

	loadCurrent := procfx.NewStep("load-profile-and-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return loadCurrentState(ctx, fctx, filePath) }, nil)

	uploadChunks := procfx.NewStep("upload-new-chunks",
		func(ctx context.Context) *procfx.StepFailure { return doUploadChunks(ctx, fctx) },
		func(ctx context.Context, _ *procfx.StepFailure) { chunking.Delete(ctx, fctx.DataManager, fctx.UploadedChunks) })

	appendVersion := procfx.NewStep("append-version-and-evict",
		func(ctx context.Context) *procfx.StepFailure { return appendVersionAndEvict(fctx) },
		func(ctx context.Context, _ *procfx.StepFailure) { undoAppendAndEvict(fctx) })

	putMetaFile := procfx.NewStep("put-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return putMetaFileStep(ctx, fctx) }, nil)

	updateProfile := procfx.NewStep("update-profile-md5-and-put",
		func(ctx context.Context) *procfx.StepFailure { return updateProfileStep(ctx, fctx) }, nil)

	cleanupEvicted := procfx.NewStep("delete-evicted-chunks",
		func(ctx context.Context) *procfx.StepFailure {
			chunking.Delete(ctx, fctx.DataManager, fctx.EvictedChunks)
			return nil
		}, nil)

	notifyStep := procfx.NewStep("notify-co-owners",
		func(ctx context.Context) *procfx.StepFailure { notifyCoOwners(ctx, fctx); return nil }, nil)

	return procfx.New(procfx.NewSequential("update-file",
		loadCurrent, uploadChunks, appendVersion, putMetaFile, updateProfile, cleanupEvicted, notifyStep))
}

func loadCurrentState(ctx context.Context, fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, true)
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get profile for update", err)
	}
	idx, ok := profile.Tree.Resolve(filePath)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "no such file: "+filePath)
	}
	fileIndex, ok := idx.(*model.FileIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "not a file: "+filePath)
	}
	mf, err := chunking.GetMetaFile(ctx, fctx.DataManager, fileIndex.KeyPair(), fileIndex.ID())
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get meta-file for update", err)
	}
	parent, ok := profile.Tree.Parent(fileIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "file has no parent: "+filePath)
	}

	fctx.Profile = profile
	fctx.TargetIndex = fileIndex
	fctx.ParentFolder = parent
	fctx.MetaFile = mf
	fctx.NodeKeyPair = fileIndex.KeyPair()
	fctx.ChunkKey = mf.ChunkKey
	return nil
}

func doUploadChunks(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	metaChunks, err := chunking.Upload(ctx, fctx.DataManager, fctx.ChunkKey, fctx.FileData, fctx.Config.ChunkSize)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "upload new chunks", err)
	}
	fctx.UploadedChunks = metaChunks
	return nil
}

// appendVersionAndEvict appends the new version then evicts the oldest
// versions while versions.size > maxNumOfVersions or totalSize exceeds
// (strictly) maxSizeAllVersions, always keeping at least one version
// (SPEC_FULL.md §6: strict > resolves the source's ambiguous == 1 check).
func appendVersionAndEvict(fctx *pctx.FileOperationContext) *procfx.StepFailure {
	mf := fctx.MetaFile
	newVersion := model.FileVersion{
		Index:      mf.NextVersionIndex(),
		Size:       int64(len(fctx.FileData)),
		Timestamp:  time.Now(),
		MetaChunks: fctx.UploadedChunks,
	}
	fctx.NewVersion = newVersion
	mf.AddVersion(newVersion)

	var evicted []model.FileVersion
	for len(mf.Versions) > 1 &&
		(len(mf.Versions) > fctx.Config.MaxNumOfVersions || mf.TotalSize() > fctx.Config.MaxSizeAllVersions) {
		oldest := mf.Versions[0]
		mf.Versions = mf.Versions[1:]
		evicted = append(evicted, oldest)
	}
	for _, v := range evicted {
		fctx.EvictedChunks = append(fctx.EvictedChunks, v.MetaChunks...)
	}
	return nil
}

func undoAppendAndEvict(fctx *pctx.FileOperationContext) {
	mf := fctx.MetaFile
	if mf == nil {
		return
	}
	// drop the version this operation appended
	kept := mf.Versions[:0]
	for _, v := range mf.Versions {
		if v.Index != fctx.NewVersion.Index {
			kept = append(kept, v)
		}
	}
	mf.Versions = kept
	fctx.EvictedChunks = nil
}

func putMetaFileStep(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	if err := chunking.PutMetaFile(ctx, fctx.DataManager, fctx.NodeKeyPair, fctx.MetaFile); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put updated meta-file", err)
	}
	return nil
}

func updateProfileStep(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	fileIndex := fctx.TargetIndex.(*model.FileIndex)
	fileIndex.SetMD5(security.MD5Bytes(fctx.FileData))
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
		return data.DirectMessage{Kind: "file-updated", Payload: []byte(fctx.Path)}
	}, nil)
}
