package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// KeyPair is an RSA keypair used as either a protection key (DHT write ACL)
// or a node/chunk identity key.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// GenerateKeyPair creates a fresh RSA keypair of the given bit length.
func GenerateKeyPair(bits int) (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// HybridEncrypted is the result of hybrid-encrypting a chunk or meta-file:
// a fresh AES key encrypts the payload, and that AES key is itself
// RSA-OAEP encrypted under the recipient's public key (SPEC_FULL.md §6).
type HybridEncrypted struct {
	EncryptedKey  []byte
	EncryptedData []byte
}

// EncryptHybrid generates a fresh AES-256 key, encrypts plaintext with it,
// and wraps that key under pub.
func EncryptHybrid(plaintext []byte, pub *rsa.PublicKey) (HybridEncrypted, error) {
	symKey := make([]byte, 32)
	if _, err := rand.Read(symKey); err != nil {
		return HybridEncrypted{}, fmt.Errorf("generate symmetric key: %w", err)
	}
	encData, err := EncryptAES(plaintext, symKey)
	if err != nil {
		return HybridEncrypted{}, err
	}
	encKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, symKey, nil)
	if err != nil {
		return HybridEncrypted{}, fmt.Errorf("wrap symmetric key: %w", err)
	}
	return HybridEncrypted{EncryptedKey: encKey, EncryptedData: encData}, nil
}

// DecryptHybrid reverses EncryptHybrid using the matching private key.
func DecryptHybrid(enc HybridEncrypted, priv *rsa.PrivateKey) ([]byte, error) {
	symKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, enc.EncryptedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap symmetric key: %w", err)
	}
	return DecryptAES(enc.EncryptedData, symKey)
}
