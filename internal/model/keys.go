// Package model implements the Hive2Hive data model of SPEC_FULL.md §5:
// the profile tree, meta-file/version/chunk hierarchy, and the Locations
// registry. Types here are plain data; lifecycle operations that need the
// overlay or security packages live in the packages that own that
// lifecycle (profilemanager, chunking, location).
package model

import (
	"crypto/rsa"
	"time"

	"github.com/hive2hive/h2h/internal/security"
)

// PublicKeyID identifies a node or chunk-key by the stable fingerprint of
// its RSA public key. It is used as the map key in the tree arena so that
// parent references never need to be literal pointers (SPEC_FULL.md §9).
type PublicKeyID string

// ContentKey is a DHT content-addressing key, generated fresh for every
// chunk and meta-file.
type ContentKey string

// VersionKey and BasedOnKey form the hash chain the DHT uses to reject
// stale writes (SPEC_FULL.md §5, glossary).
type VersionKey string

func PublicKeyIDOf(pub *rsa.PublicKey) PublicKeyID {
	if pub == nil {
		return ""
	}
	return PublicKeyID(security.FingerprintPublicKey(pub))
}

// LocationEntry is one peer currently logged in as a given user.
type LocationEntry struct {
	PeerAddress string
	Timestamp   time.Time
	Initial     bool
}

// Locations is the DHT object tracking a user's logged-in peers
// (SPEC_FULL.md §5). At most one entry is Initial.
type Locations struct {
	UserID  string
	Entries []LocationEntry
}
