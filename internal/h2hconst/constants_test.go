package h2hconst_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hive2hive/h2h/internal/h2hconst"
)

func TestDefaultTTLsCoversEveryContentKey(t *testing.T) {
	keys := []h2hconst.ContentKey{
		h2hconst.UserProfile,
		h2hconst.FileChunk,
		h2hconst.Locations,
		h2hconst.MetaFile,
		h2hconst.UserMessageQueue,
		h2hconst.UserPublicKey,
		h2hconst.SharedSubtree,
	}
	for _, k := range keys {
		_, ok := h2hconst.DefaultTTLs[k]
		assert.True(t, ok, "missing TTL entry for %s", k)
	}
	assert.Len(t, h2hconst.DefaultTTLs, len(keys))
}

func TestContentKeysAreDistinct(t *testing.T) {
	seen := map[h2hconst.ContentKey]bool{}
	for _, k := range []h2hconst.ContentKey{
		h2hconst.UserProfile, h2hconst.FileChunk, h2hconst.Locations,
		h2hconst.MetaFile, h2hconst.UserMessageQueue, h2hconst.UserPublicKey,
		h2hconst.SharedSubtree,
	} {
		assert.False(t, seen[k], "duplicate content key %s", k)
		seen[k] = true
	}
}
