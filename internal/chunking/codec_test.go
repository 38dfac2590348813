package chunking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/model"
)

func orders(chunks []model.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Order
	}
	return out
}

func TestSplitJoinRoundTrip(t *testing.T) {
	data := make([]byte, 257)
	for i := range data {
		data[i] = byte(i)
	}

	chunks := chunking.Split(data, 64)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, orders(chunks))
	assert.Equal(t, data, chunking.Join(chunks))
}

func TestSplitEmptyData(t *testing.T) {
	chunks := chunking.Split(nil, 64)
	assert.Empty(t, chunks)
	assert.Empty(t, chunking.Join(chunks))
}

func TestSplitNonPositiveChunkSizeProducesOneChunk(t *testing.T) {
	data := []byte("hive2hive")
	chunks := chunking.Split(data, 0)
	assert.Len(t, chunks, 1)
	assert.Equal(t, data, chunking.Join(chunks))
}
