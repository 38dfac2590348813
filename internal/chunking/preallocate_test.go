package chunking_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/chunking"
)

func TestCreatePreallocatedFileSizesUpFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preallocated.bin")

	file, err := chunking.CreatePreallocatedFile(path, 10)
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size())

	pos, err := file.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos, "cursor must be reset to the start for sequential chunk writes")
}

func TestCreatePreallocatedFileZeroSizeStillCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")

	file, err := chunking.CreatePreallocatedFile(path, 0)
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCreatePreallocatedFileWritesLandAtCorrectOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.bin")

	file, err := chunking.CreatePreallocatedFile(path, 5)
	require.NoError(t, err)
	_, err = file.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}
