// Package persistence reads and writes the per-root sidecar file
// (spec.md §6) that lets a login detect changes made to the local
// filesystem while this peer was offline.
package persistence

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hive2hive/h2h/internal/h2hconst"
)

// Sidecar mirrors the last-known state of the local root: a digest per
// path (to detect offline edits) and a cache of peers' public keys (to
// avoid re-fetching them on every share operation).
type Sidecar struct {
	FileTree       map[string][16]byte
	PublicKeyCache map[string][]byte // userID -> PKCS1 DER-encoded public key
}

func New() *Sidecar {
	return &Sidecar{FileTree: make(map[string][16]byte), PublicKeyCache: make(map[string][]byte)}
}

// controlDir returns the root's reserved bookkeeping subdirectory
// (h2hconst.ControlDirName), never part of the synchronized tree.
func controlDir(root string) string {
	return filepath.Join(root, h2hconst.ControlDirName)
}

func path(root string) string {
	return filepath.Join(controlDir(root), h2hconst.SidecarFileName)
}

// Load reads the sidecar under root. A missing sidecar (first login) is
// not an error: it returns a fresh, empty Sidecar.
func Load(root string) (*Sidecar, error) {
	raw, err := os.ReadFile(path(root))
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var sc Sidecar
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	if sc.FileTree == nil {
		sc.FileTree = make(map[string][16]byte)
	}
	if sc.PublicKeyCache == nil {
		sc.PublicKeyCache = make(map[string][]byte)
	}
	return &sc, nil
}

// Save writes the sidecar under root, called at logout (spec.md §4.6).
func (sc *Sidecar) Save(root string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sc); err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.MkdirAll(controlDir(root), 0o755); err != nil {
		return fmt.Errorf("ensure control dir: %w", err)
	}
	if err := os.WriteFile(path(root), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// CachePublicKey records userID's public key for later share operations.
func (sc *Sidecar) CachePublicKey(userID string, pub *rsa.PublicKey) {
	sc.PublicKeyCache[userID] = x509.MarshalPKCS1PublicKey(pub)
}

// CachedPublicKey returns userID's cached public key, if any.
func (sc *Sidecar) CachedPublicKey(userID string) (*rsa.PublicKey, bool) {
	der, ok := sc.PublicKeyCache[userID]
	if !ok {
		return nil, false
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, false
	}
	return pub, true
}
