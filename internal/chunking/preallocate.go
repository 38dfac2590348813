package chunking

import "os"

// CreatePreallocatedFile creates path sized to size bytes up front,
// mirrored from the teacher's CreatePreallocatedFile (internal/node/download.go):
// seeking to the last byte and writing a single zero produces a sparse
// file of the right size without copying size bytes of zeroes. The
// returned file's cursor is reset to 0 so the caller can write chunks
// into it starting from the beginning, in order, as they arrive.
func CreatePreallocatedFile(path string, size int64) (*os.File, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return file, nil
	}
	if _, err := file.Seek(size-1, 0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	if _, err := file.Write([]byte{0}); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return file, nil
}
