package security

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/binary"
)

// FingerprintPublicKey returns a stable hex fingerprint of an RSA public
// key, used as the node identity (the "public half of its keypair" in
// SPEC_FULL.md §5).
func FingerprintPublicKey(pub *rsa.PublicKey) string {
	if pub == nil {
		return ""
	}
	h := sha256.New()
	h.Write(pub.N.Bytes())
	var expBuf [8]byte
	binary.BigEndian.PutUint64(expBuf[:], uint64(pub.E))
	h.Write(expBuf[:])
	return hex.EncodeToString(h.Sum(nil))
}
