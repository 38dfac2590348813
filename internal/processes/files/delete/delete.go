// Package delete implements the delete-file process of spec.md §4.6.
package delete

import (
	"context"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
)

func New(fctx *pctx.FileOperationContext, filePath string) *procfx.Process {
	fctx.Path = filePath

	removeFromProfile := procfx.NewStep("remove-from-profile",
		func(ctx context.Context) *procfx.StepFailure { return removeFromProfileStep(ctx, fctx, filePath) },
		func(ctx context.Context, _ *procfx.StepFailure) { reinsertIfNeeded(fctx) })

	deleteMeta := procfx.NewStep("delete-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return deleteMetaFileStep(ctx, fctx) }, nil)

	deleteChunks := procfx.NewStep("delete-all-chunks",
		func(ctx context.Context) *procfx.StepFailure {
			chunking.Delete(ctx, fctx.DataManager, allChunks(fctx.MetaFile))
			return nil
		}, nil)

	notifyStep := procfx.NewStep("notify-co-owners",
		func(ctx context.Context) *procfx.StepFailure { notifyCoOwners(ctx, fctx); return nil }, nil)

	return procfx.New(procfx.NewSequential("delete-file", removeFromProfile, deleteMeta, deleteChunks, notifyStep))
}

func removeFromProfileStep(ctx context.Context, fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, true)
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get profile for delete", err)
	}
	idx, ok := profile.Tree.Resolve(filePath)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "no such file: "+filePath)
	}
	fileIndex, ok := idx.(*model.FileIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "not a file: "+filePath)
	}
	parent, ok := profile.Tree.Parent(fileIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "file has no parent: "+filePath)
	}

	mf, err := chunking.GetMetaFile(ctx, fctx.DataManager, fileIndex.KeyPair(), fileIndex.ID())
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get meta-file for delete", err)
	}

	fctx.Profile = profile
	fctx.TargetIndex = fileIndex
	fctx.ParentFolder = parent
	fctx.MetaFile = mf

	profile.Tree.Remove(fileIndex)
	if err := fctx.ProfileManager.ReadyToPut(ctx, fctx.PID, profile); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put profile after removal", err)
	}
	return nil
}

func reinsertIfNeeded(fctx *pctx.FileOperationContext) {
	if fctx.TargetIndex == nil || fctx.ParentFolder == nil || fctx.Profile == nil {
		return
	}
	fctx.Profile.Tree.Insert(fctx.ParentFolder, fctx.TargetIndex)
}

func deleteMetaFileStep(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	if fctx.TargetIndex == nil {
		return nil
	}
	if err := chunking.DeleteMetaFile(ctx, fctx.DataManager, fctx.TargetIndex.ID()); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "delete meta-file", err)
	}
	return nil
}

func allChunks(mf *model.MetaFile) []model.MetaChunk {
	if mf == nil {
		return nil
	}
	var out []model.MetaChunk
	for _, v := range mf.Versions {
		out = append(out, v.MetaChunks...)
	}
	return out
}

func notifyCoOwners(ctx context.Context, fctx *pctx.FileOperationContext) {
	recipients := []string{fctx.UserID}
	if fctx.ParentFolder != nil {
		for userID := range fctx.ParentFolder.SharedWith {
			recipients = append(recipients, userID)
		}
	}
	_, _ = fctx.Notifier.Notify(ctx, recipients, func(recipient string) data.DirectMessage {
		return data.DirectMessage{Kind: "file-deleted", Payload: []byte(fctx.Path)}
	}, nil)
}
