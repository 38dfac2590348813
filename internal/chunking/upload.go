package chunking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/security"
)

// Upload hybrid-encrypts and puts every chunk of data under a fresh
// chunkId, returning the ordered MetaChunk list a FileVersion needs
// (spec.md §4.2/§4.6 "add file" step 2).
func Upload(ctx context.Context, dm *data.DataManager, chunkKey security.KeyPair, fileData []byte, chunkSize int64) ([]model.MetaChunk, error) {
	chunks := Split(fileData, chunkSize)
	metaChunks := make([]model.MetaChunk, 0, len(chunks))
	var uploaded []model.ContentKey

	for _, c := range chunks {
		chunkID := model.ContentKey(uuid.NewString())
		hash := security.MD5Bytes(c.Data)

		enc, err := security.EncryptHybrid(c.Data, chunkKey.Public)
		if err != nil {
			rollbackUploaded(ctx, dm, uploaded)
			return nil, h2herrors.WrapPutFailed(fmt.Sprintf("encrypt chunk %d", c.Order), err)
		}

		content := data.NetworkContent{Kind: data.KindChunk, Chunk: &data.EncryptedBlob{
			EncryptedKey:  enc.EncryptedKey,
			EncryptedData: enc.EncryptedData,
		}}
		params := data.NewParameters(string(chunkID), string(h2hconst.FileChunk)).WithData(content)
		if err := dm.Put(ctx, params); err != nil {
			rollbackUploaded(ctx, dm, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, chunkID)
		metaChunks = append(metaChunks, model.MetaChunk{ChunkID: chunkID, Order: c.Order, ChunkHash: hash})
	}
	return metaChunks, nil
}

// Delete removes every chunk named by metaChunks, best-effort (spec.md
// §4.6 "delete file" / retention eviction).
func Delete(ctx context.Context, dm *data.DataManager, metaChunks []model.MetaChunk) {
	ids := make([]model.ContentKey, 0, len(metaChunks))
	for _, mc := range metaChunks {
		ids = append(ids, mc.ChunkID)
	}
	rollbackUploaded(ctx, dm, ids)
}

func rollbackUploaded(ctx context.Context, dm *data.DataManager, ids []model.ContentKey) {
	for _, id := range ids {
		params := data.NewParameters(string(id), string(h2hconst.FileChunk))
		_ = dm.Remove(ctx, params)
	}
}
