// Package data implements the DHT-facing façade of SPEC_FULL.md §6: typed
// Parameters, the NetworkContent tagged variant, and the DataManager that
// composes an overlay.Overlay with a messenger.Messenger into the single
// get/put/putUnblocked/remove/sendDirect contract of spec.md §4.1.
package data

import (
	"fmt"

	"github.com/hive2hive/h2h/internal/model"
)

// ContentKind tags the payload carried by a NetworkContent, replacing the
// Java source's downcast of NetworkContent to a concrete type
// (SPEC_FULL.md §5 Design Notes).
type ContentKind string

const (
	KindUserProfile      ContentKind = "UserProfile"
	KindMetaFile         ContentKind = "MetaFile"
	KindChunk            ContentKind = "Chunk"
	KindLocations        ContentKind = "Locations"
	KindHybridEncrypted  ContentKind = "HybridEncrypted"
)

// NetworkContent is the opaque envelope exchanged with the DHT. Exactly one
// of the typed fields is populated, selected by Kind.
type NetworkContent struct {
	Kind ContentKind

	UserProfile   *EncryptedUserProfile
	MetaFile      *EncryptedBlob // hybrid-encrypted under the node keypair
	Chunk         *EncryptedBlob // hybrid-encrypted under the file's chunkKey
	Locations     *model.Locations
	SharedSubtree *EncryptedBlob // hybrid-encrypted under the recipient's public key
}

// EncryptedUserProfile is an AES-from-password encrypted UserProfile, gob
// cannot encode unexported rsa.PrivateKey internals directly so the caller
// hands us already-serialized plaintext to encrypt (see security package).
type EncryptedUserProfile struct {
	Ciphertext []byte
}

// EncryptedBlob is a hybrid RSA+AES encrypted payload (meta-file or chunk).
type EncryptedBlob struct {
	EncryptedKey  []byte
	EncryptedData []byte
}

// ErrUnexpectedKind is returned by helpers that expect a specific Kind and
// find another, per SPEC_FULL.md §5's "mismatches are explicit errors, not
// runtime cast failures".
type ErrUnexpectedKind struct {
	Want, Got ContentKind
}

func (e *ErrUnexpectedKind) Error() string {
	return fmt.Sprintf("network content: want kind %s, got %s", e.Want, e.Got)
}

func (c NetworkContent) AsUserProfile() (*EncryptedUserProfile, error) {
	if c.Kind != KindUserProfile {
		return nil, &ErrUnexpectedKind{Want: KindUserProfile, Got: c.Kind}
	}
	return c.UserProfile, nil
}

func (c NetworkContent) AsMetaFile() (*EncryptedBlob, error) {
	if c.Kind != KindMetaFile {
		return nil, &ErrUnexpectedKind{Want: KindMetaFile, Got: c.Kind}
	}
	return c.MetaFile, nil
}

func (c NetworkContent) AsChunk() (*EncryptedBlob, error) {
	if c.Kind != KindChunk {
		return nil, &ErrUnexpectedKind{Want: KindChunk, Got: c.Kind}
	}
	return c.Chunk, nil
}

func (c NetworkContent) AsLocations() (*model.Locations, error) {
	if c.Kind != KindLocations {
		return nil, &ErrUnexpectedKind{Want: KindLocations, Got: c.Kind}
	}
	return c.Locations, nil
}

func (c NetworkContent) AsSharedSubtree() (*EncryptedBlob, error) {
	if c.Kind != KindHybridEncrypted {
		return nil, &ErrUnexpectedKind{Want: KindHybridEncrypted, Got: c.Kind}
	}
	return c.SharedSubtree, nil
}
