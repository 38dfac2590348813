// Package chunking implements the chunk codec of spec.md §4.2: splitting
// a file into ordered fixed-size chunks, hybrid-encrypting each under a
// meta-file's chunk keypair, and the out-of-order download reassembly
// buffer grounded on
// org.hive2hive.core.processes.implementations.files.download.DownloadChunksStep.
package chunking

import "github.com/hive2hive/h2h/internal/model"

// Split divides data into chunks of at most chunkSize bytes each, in
// strict offset order with 0-based Order (spec.md §4.2).
func Split(data []byte, chunkSize int64) []model.Chunk {
	if chunkSize <= 0 {
		chunkSize = int64(len(data))
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	var chunks []model.Chunk
	order := 0
	for offset := int64(0); offset < int64(len(data)); offset += chunkSize {
		end := offset + chunkSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		chunks = append(chunks, model.Chunk{Order: order, Data: append([]byte(nil), data[offset:end]...)})
		order++
	}
	return chunks
}

// Join concatenates chunks, which must already be sorted ascending by
// Order with no gaps, back into the original byte sequence.
func Join(chunks []model.Chunk) []byte {
	var total int
	for _, c := range chunks {
		total += len(c.Data)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out
}
