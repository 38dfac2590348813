package chunking

import (
	"context"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/security"
)

// PutMetaFile hybrid-encrypts mf under nodeKeyPair's public half and puts
// it at the location keyed by mf.ID (spec.md §4.2/§4.6).
func PutMetaFile(ctx context.Context, dm *data.DataManager, nodeKeyPair security.KeyPair, mf *model.MetaFile) error {
	plaintext, err := model.MarshalMetaFile(mf)
	if err != nil {
		return h2herrors.WrapPutFailed("encode meta-file", err)
	}
	enc, err := security.EncryptHybrid(plaintext, nodeKeyPair.Public)
	if err != nil {
		return h2herrors.WrapPutFailed("encrypt meta-file", err)
	}
	content := data.NetworkContent{Kind: data.KindMetaFile, MetaFile: &data.EncryptedBlob{
		EncryptedKey:  enc.EncryptedKey,
		EncryptedData: enc.EncryptedData,
	}}
	params := data.NewParameters(string(mf.ID), string(h2hconst.MetaFile)).WithData(content)
	return dm.Put(ctx, params)
}

// GetMetaFile fetches and decrypts the meta-file identified by nodeID,
// using nodeKeyPair's private half.
func GetMetaFile(ctx context.Context, dm *data.DataManager, nodeKeyPair security.KeyPair, nodeID model.PublicKeyID) (*model.MetaFile, error) {
	params := data.NewParameters(string(nodeID), string(h2hconst.MetaFile))
	content, found, err := dm.Get(ctx, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, h2herrors.NewGetFailed("no meta-file stored at this node")
	}
	blob, err := content.AsMetaFile()
	if err != nil {
		return nil, h2herrors.WrapGetFailed("unexpected content at meta-file location", err)
	}
	plaintext, err := security.DecryptHybrid(security.HybridEncrypted{
		EncryptedKey:  blob.EncryptedKey,
		EncryptedData: blob.EncryptedData,
	}, nodeKeyPair.Private)
	if err != nil {
		return nil, h2herrors.WrapGetFailed("decrypt meta-file", err)
	}
	return model.UnmarshalMetaFile(plaintext)
}

// DeleteMetaFile removes the meta-file object identified by nodeID.
func DeleteMetaFile(ctx context.Context, dm *data.DataManager, nodeID model.PublicKeyID) error {
	params := data.NewParameters(string(nodeID), string(h2hconst.MetaFile))
	return dm.Remove(ctx, params)
}
