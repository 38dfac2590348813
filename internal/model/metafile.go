package model

import (
	"sort"
	"time"

	"github.com/hive2hive/h2h/internal/security"
)

// MetaChunk is one entry of a FileVersion's chunk list (SPEC_FULL.md §5).
type MetaChunk struct {
	ChunkID   ContentKey
	Order     int
	ChunkHash [16]byte
}

// FileVersion is one upload generation of a file.
type FileVersion struct {
	Index      int
	Size       int64
	Timestamp  time.Time
	MetaChunks []MetaChunk
}

// MetaFile is the per-file DHT object: node identity, ordered versions, and
// the chunk-encryption keypair shared by every version's chunks.
type MetaFile struct {
	ID       PublicKeyID
	Versions []FileVersion
	ChunkKey security.KeyPair
}

func NewMetaFile(id PublicKeyID, chunkKey security.KeyPair) *MetaFile {
	return &MetaFile{ID: id, ChunkKey: chunkKey}
}

// AddVersion appends v and keeps Versions sorted ascending by Index (the
// invariant of SPEC_FULL.md §5: the newest version is always the tail).
func (m *MetaFile) AddVersion(v FileVersion) {
	m.Versions = append(m.Versions, v)
	sort.Slice(m.Versions, func(i, j int) bool { return m.Versions[i].Index < m.Versions[j].Index })
}

// NewestVersion returns the tail version, or false if there are none.
func (m *MetaFile) NewestVersion() (FileVersion, bool) {
	if len(m.Versions) == 0 {
		return FileVersion{}, false
	}
	return m.Versions[len(m.Versions)-1], true
}

// VersionByIndex returns the version with the given Index, or false.
func (m *MetaFile) VersionByIndex(index int) (FileVersion, bool) {
	for _, v := range m.Versions {
		if v.Index == index {
			return v, true
		}
	}
	return FileVersion{}, false
}

// TotalSize sums Size across all retained versions.
func (m *MetaFile) TotalSize() int64 {
	var total int64
	for _, v := range m.Versions {
		total += v.Size
	}
	return total
}

// NextVersionIndex is the Index the next appended FileVersion should use.
func (m *MetaFile) NextVersionIndex() int {
	if len(m.Versions) == 0 {
		return 0
	}
	return m.Versions[len(m.Versions)-1].Index + 1
}

// Chunk is the DHT object holding one encrypted slice of a file's bytes.
type Chunk struct {
	Order int
	Data  []byte
}
