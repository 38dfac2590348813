// Package share implements the folder-sharing process of spec.md §4.6:
// grant a friend access to a folder by recording them in the folder's
// SharedWith set and handing them every descendant's keypair, hybrid
// encrypted under the friend's public key so only that friend can open
// the envelope.
package share

import (
	"context"
	"crypto/rsa"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

// New builds the share-folder process. friendPublicKey is resolved by the
// caller beforehand (spec.md §4.6: from the local persistence sidecar's
// cache, or fetched once from the DHT's UserPublicKey slot and cached
// there for next time).
func New(fctx *pctx.FileOperationContext, folderPath, friendUserID string, friendPublicKey *rsa.PublicKey, canWrite bool) *procfx.Process {
	fctx.Path = folderPath

	var folder *model.FolderIndex

	markShared := procfx.NewStep("mark-folder-shared-and-put-profile",
		func(ctx context.Context) *procfx.StepFailure {
			f, failure := markSharedStep(ctx, fctx, folderPath, friendUserID, canWrite)
			folder = f
			return failure
		},
		func(ctx context.Context, _ *procfx.StepFailure) {
			if folder != nil {
				delete(folder.SharedWith, friendUserID)
			}
		})

	sendSubtree := procfx.NewStep("encrypt-and-put-subtree-envelope",
		func(ctx context.Context) *procfx.StepFailure {
			return sendSubtreeStep(ctx, fctx, folder, friendUserID, friendPublicKey)
		}, nil)

	notifyStep := procfx.NewStep("notify-friend",
		func(ctx context.Context) *procfx.StepFailure { notifyFriend(ctx, fctx, folder, friendUserID); return nil }, nil)

	return procfx.New(procfx.NewSequential("share-folder", markShared, sendSubtree, notifyStep))
}

func markSharedStep(ctx context.Context, fctx *pctx.FileOperationContext, folderPath, friendUserID string, canWrite bool) (*model.FolderIndex, *procfx.StepFailure) {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, true)
	if err != nil {
		return nil, procfx.WrapFailure(h2herrors.GetFailed, "get profile for share", err)
	}
	idx, ok := profile.Tree.Resolve(folderPath)
	if !ok {
		return nil, procfx.Fail(h2herrors.IllegalFileLocation, "no such folder: "+folderPath)
	}
	folder, ok := idx.(*model.FolderIndex)
	if !ok {
		return nil, procfx.Fail(h2herrors.IllegalFileLocation, "not a folder: "+folderPath)
	}

	folder.SharedWith[friendUserID] = canWrite
	fctx.Profile = profile
	fctx.TargetIndex = folder
	fctx.ParentFolder = folder

	if err := fctx.ProfileManager.ReadyToPut(ctx, fctx.PID, profile); err != nil {
		return folder, procfx.WrapFailure(h2herrors.PutFailed, "put profile after share", err)
	}
	return folder, nil
}

func sendSubtreeStep(ctx context.Context, fctx *pctx.FileOperationContext, folder *model.FolderIndex, friendUserID string, friendPublicKey *rsa.PublicKey) *procfx.StepFailure {
	plaintext, err := model.MarshalSubtree(fctx.Profile.Tree, folder)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "marshal shared subtree", err)
	}
	enc, err := security.EncryptHybrid(plaintext, friendPublicKey)
	if err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "encrypt shared subtree", err)
	}
	content := data.NetworkContent{Kind: data.KindHybridEncrypted, SharedSubtree: &data.EncryptedBlob{
		EncryptedKey:  enc.EncryptedKey,
		EncryptedData: enc.EncryptedData,
	}}
	params := data.NewParameters(shareLocationKey(folder.ID(), friendUserID), string(h2hconst.SharedSubtree)).
		WithTTL(h2hconst.DefaultTTLs[h2hconst.SharedSubtree]).
		WithData(content)
	if err := fctx.DataManager.Put(ctx, params); err != nil {
		return procfx.WrapFailure(h2herrors.PutFailed, "put shared subtree envelope", err)
	}
	return nil
}

func shareLocationKey(folderID model.PublicKeyID, friendUserID string) string {
	return "share:" + string(folderID) + ":" + friendUserID
}

// FetchSharedSubtree lets the recipient's side retrieve and decrypt the
// envelope a share process left for them.
func FetchSharedSubtree(ctx context.Context, dm *data.DataManager, folderID model.PublicKeyID, friendUserID string, friendPrivateKey *rsa.PrivateKey) (*model.FolderIndex, map[model.PublicKeyID]model.Index, error) {
	params := data.NewParameters(shareLocationKey(folderID, friendUserID), string(h2hconst.SharedSubtree))
	content, found, err := dm.Get(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, h2herrors.NewGetFailed("no shared subtree envelope found")
	}
	blob, err := content.AsSharedSubtree()
	if err != nil {
		return nil, nil, h2herrors.WrapGetFailed("unexpected content at shared subtree location", err)
	}
	plaintext, err := security.DecryptHybrid(security.HybridEncrypted{
		EncryptedKey:  blob.EncryptedKey,
		EncryptedData: blob.EncryptedData,
	}, friendPrivateKey)
	if err != nil {
		return nil, nil, h2herrors.WrapGetFailed("decrypt shared subtree", err)
	}
	return model.UnmarshalSubtree(plaintext)
}

func notifyFriend(ctx context.Context, fctx *pctx.FileOperationContext, folder *model.FolderIndex, friendUserID string) {
	_, _ = fctx.Notifier.Notify(ctx, []string{friendUserID}, func(recipient string) data.DirectMessage {
		return data.DirectMessage{Kind: "folder-shared", Payload: []byte(string(folder.ID()) + ":" + fctx.Path)}
	}, nil)
}
