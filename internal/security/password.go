// Package security implements the cryptographic contracts named in
// SPEC_FULL.md §5 as external collaborators: password-based AES key
// derivation, AES encryption of the user profile, hybrid RSA+AES encryption
// of meta-files and chunks, and MD5 integrity checks. The primitives
// themselves are out of scope for correctness review (spec.md §1); this
// package gives them a concrete, working implementation so the rest of the
// module compiles and round-trips.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	nonceLen     = 12
)

// DeriveAESKeyFromPassword derives an AES key of keyLenBits from the given
// credentials, using argon2id (SPEC_FULL.md §3). keyLenBits must be a
// multiple of 8.
func DeriveAESKeyFromPassword(creds UserCredentials, keyLenBits int) []byte {
	keyLen := uint32(keyLenBits / 8)
	secret := creds.Password + ":" + creds.Pin
	return argon2.IDKey([]byte(secret), creds.aesSalt(), argonTime, argonMemory, argonThreads, keyLen)
}

// EncryptAES encrypts plaintext under key using AES-GCM, returning
// ciphertext with the nonce prepended.
func EncryptAES(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// DecryptAES reverses EncryptAES.
func DecryptAES(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) < nonceLen {
		return nil, fmt.Errorf("ciphertext too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce, sealed := ciphertext[:nonceLen], ciphertext[nonceLen:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
