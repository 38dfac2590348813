// Package move implements the move/rename process of spec.md §4.6: the
// DHT objects a file or folder owns (chunks, meta-file) are untouched,
// only the profile's Tree entry is reparented and renamed.
package move

import (
	"context"
	"path"

	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
)

func New(fctx *pctx.FileOperationContext, sourcePath, destPath string) *procfx.Process {
	fctx.Path = destPath

	var oldParent *model.FolderIndex
	var oldName string

	moveEntry := procfx.NewStep("move-profile-entry",
		func(ctx context.Context) *procfx.StepFailure {
			p, n, failure := moveEntryStep(ctx, fctx, sourcePath, destPath)
			oldParent, oldName = p, n
			return failure
		},
		func(ctx context.Context, _ *procfx.StepFailure) { undoMove(fctx, oldParent, oldName) })

	putProfile := procfx.NewStep("put-profile",
		func(ctx context.Context) *procfx.StepFailure { return putProfileStep(ctx, fctx) }, nil)

	notifyStep := procfx.NewStep("notify-source-and-dest-participants",
		func(ctx context.Context) *procfx.StepFailure {
			notifyParticipants(ctx, fctx, oldParent, sourcePath, destPath)
			return nil
		}, nil)

	return procfx.New(procfx.NewSequential("move-file", moveEntry, putProfile, notifyStep))
}

func moveEntryStep(ctx context.Context, fctx *pctx.FileOperationContext, sourcePath, destPath string) (*model.FolderIndex, string, *procfx.StepFailure) {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, true)
	if err != nil {
		return nil, "", procfx.WrapFailure(h2herrors.GetFailed, "get profile for move", err)
	}
	idx, ok := profile.Tree.Resolve(sourcePath)
	if !ok {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "no such entry: "+sourcePath)
	}
	if !model.IsInside("/", destPath) {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "destination escapes root: "+destPath)
	}
	if _, exists := profile.Tree.Resolve(destPath); exists {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "destination already exists: "+destPath)
	}
	oldParent, ok := profile.Tree.Parent(idx)
	if !ok {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "entry has no parent: "+sourcePath)
	}
	newParentPath := path.Dir(destPath)
	newParentIdx, ok := profile.Tree.Resolve(newParentPath)
	if !ok {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "destination parent does not exist: "+newParentPath)
	}
	newParent, ok := newParentIdx.(*model.FolderIndex)
	if !ok {
		return nil, "", procfx.Fail(h2herrors.IllegalFileLocation, "destination parent is not a folder: "+newParentPath)
	}

	oldName := idx.Name()
	renameEntry(idx, path.Base(destPath))
	profile.Tree.Move(idx, newParent)

	fctx.Profile = profile
	fctx.TargetIndex = idx
	fctx.ParentFolder = newParent
	return oldParent, oldName, nil
}

func renameEntry(idx model.Index, newName string) {
	switch v := idx.(type) {
	case *model.FolderIndex:
		v.Rename(newName)
	case *model.FileIndex:
		v.Rename(newName)
	}
}

func undoMove(fctx *pctx.FileOperationContext, oldParent *model.FolderIndex, oldName string) {
	if fctx.Profile == nil || fctx.TargetIndex == nil || oldParent == nil {
		return
	}
	renameEntry(fctx.TargetIndex, oldName)
	fctx.Profile.Tree.Move(fctx.TargetIndex, oldParent)
}

func putProfileStep(ctx context.Context, fctx *pctx.FileOperationContext) *procfx.StepFailure {
	if err := fctx.ProfileManager.ReadyToPut(ctx, fctx.PID, fctx.Profile); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put profile after move", err)
	}
	return nil
}

func notifyParticipants(ctx context.Context, fctx *pctx.FileOperationContext, oldParent *model.FolderIndex, sourcePath, destPath string) {
	recipients := []string{fctx.UserID}
	seen := map[string]bool{fctx.UserID: true}
	addAll := func(sw map[string]bool) {
		for userID := range sw {
			if !seen[userID] {
				seen[userID] = true
				recipients = append(recipients, userID)
			}
		}
	}
	if oldParent != nil {
		addAll(oldParent.SharedWith)
	}
	if fctx.ParentFolder != nil {
		addAll(fctx.ParentFolder.SharedWith)
	}
	payload := sourcePath + " -> " + destPath
	_, _ = fctx.Notifier.Notify(ctx, recipients, func(recipient string) data.DirectMessage {
		return data.DirectMessage{Kind: "file-moved", Payload: []byte(payload)}
	}, nil)
}
