package security

import (
	"bytes"
	"crypto/md5" //nolint:gosec // integrity check only, not a security boundary; matches the original design's choice of MD5.
	"io"
)

// MD5 computes the MD5 digest of r's remaining bytes, used for plaintext
// file integrity checks (SPEC_FULL.md §6: compare before overwriting an
// existing local file).
func MD5(r io.Reader) ([16]byte, error) {
	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, r); err != nil {
		return [16]byte{}, err
	}
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// MD5Bytes is a convenience wrapper over MD5 for in-memory data.
func MD5Bytes(data []byte) [16]byte {
	sum, _ := MD5(bytes.NewReader(data))
	return sum
}
