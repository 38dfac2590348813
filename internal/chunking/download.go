package chunking

import (
	"context"
	"fmt"
	"io"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/security"
)

// Downloader fetches an ordered MetaChunk list and reassembles it in
// order even when chunks arrive out of order from the overlay, grounded
// directly on DownloadChunksStep's chunkBuffer/currentChunkOrder drain
// loop (spec.md §4.7).
type Downloader struct {
	dm       *data.DataManager
	chunkKey security.KeyPair
}

func NewDownloader(dm *data.DataManager, chunkKey security.KeyPair) *Downloader {
	return &Downloader{dm: dm, chunkKey: chunkKey}
}

type fetchedChunk struct {
	order int
	data  []byte
	err   error
}

// DownloadTo fetches every chunk named by metaChunks concurrently and
// writes their plaintext to dest strictly in ascending Order, with no
// gaps. On return, either every chunk has been written and the internal
// buffer is empty, or an error is returned and dest's content is
// incomplete.
func (d *Downloader) DownloadTo(ctx context.Context, dest io.Writer, metaChunks []model.MetaChunk) error {
	total := len(metaChunks)
	if total == 0 {
		return nil
	}

	results := make(chan fetchedChunk, total)
	for _, mc := range metaChunks {
		go func(mc model.MetaChunk) {
			plaintext, err := d.fetchAndDecrypt(ctx, mc)
			results <- fetchedChunk{order: mc.Order, data: plaintext, err: err}
		}(mc)
	}

	buffer := make(map[int][]byte)
	currentOrder := 0
	received := 0
	for received < total {
		select {
		case r := <-results:
			received++
			if r.err != nil {
				return h2herrors.WrapGetFailed("download chunk", r.err)
			}
			buffer[r.order] = r.data
		case <-ctx.Done():
			return ctx.Err()
		}

		for {
			data, ok := buffer[currentOrder]
			if !ok {
				break
			}
			if _, err := dest.Write(data); err != nil {
				return fmt.Errorf("write chunk %d: %w", currentOrder, err)
			}
			delete(buffer, currentOrder)
			currentOrder++
		}
	}

	if len(buffer) != 0 || currentOrder != total {
		return h2herrors.NewProcessExecutionFailure("residual buffered chunks after download",
			fmt.Errorf("currentOrder=%d total=%d buffered=%d", currentOrder, total, len(buffer)))
	}
	return nil
}

func (d *Downloader) fetchAndDecrypt(ctx context.Context, mc model.MetaChunk) ([]byte, error) {
	params := data.NewParameters(string(mc.ChunkID), string(h2hconst.FileChunk))
	content, found, err := d.dm.Get(ctx, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("chunk %s missing from overlay", mc.ChunkID)
	}
	blob, err := content.AsChunk()
	if err != nil {
		return nil, err
	}
	plaintext, err := security.DecryptHybrid(security.HybridEncrypted{
		EncryptedKey:  blob.EncryptedKey,
		EncryptedData: blob.EncryptedData,
	}, d.chunkKey.Private)
	if err != nil {
		return nil, err
	}
	if sum := security.MD5Bytes(plaintext); sum != mc.ChunkHash {
		return nil, fmt.Errorf("chunk %s failed integrity check", mc.ChunkID)
	}
	return plaintext, nil
}
