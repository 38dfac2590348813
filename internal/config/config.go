// Package config holds the immutable configuration passed by reference to
// every component that needs it. There is no global TTL or configuration
// singleton (see SPEC_FULL.md §6): callers construct a Configuration once
// and thread it through constructors.
package config

import "time"

// Configuration enumerates the options of SPEC_FULL.md §8.
type Configuration struct {
	// ChunkSize is the size in bytes of each file chunk produced by the
	// chunk codec.
	ChunkSize int64
	// MaxFileSize bounds the size of a single file accepted by the add
	// pipeline.
	MaxFileSize int64
	// MaxNumOfVersions bounds the number of FileVersion entries retained
	// per meta-file.
	MaxNumOfVersions int
	// MaxSizeAllVersions bounds the sum of FileVersion.Size across all
	// retained versions of a meta-file.
	MaxSizeAllVersions int64
	// FileObserverInterval is the poll interval used by external file
	// watchers (out of scope here, kept for interface parity).
	FileObserverInterval time.Duration
	// MaxModificationTime is the profile manager's exclusive-modify
	// window.
	MaxModificationTime time.Duration
	// AESKeyLengthProfile is the key length, in bits, used to derive the
	// profile's password-based AES key.
	AESKeyLengthProfile int
	// RSAKeyLengthUser/File/Chunk are the RSA key lengths, in bits, for
	// the user, file-node and chunk keypairs respectively.
	RSAKeyLengthUser  int
	RSAKeyLengthFile  int
	RSAKeyLengthChunk int
}

// Default returns the platform-appropriate defaults named in SPEC_FULL.md.
func Default() *Configuration {
	return &Configuration{
		ChunkSize:             1 << 20, // 1 MiB
		MaxFileSize:           50 << 20,
		MaxNumOfVersions:      3,
		MaxSizeAllVersions:    100 << 20,
		FileObserverInterval:  5 * time.Second,
		MaxModificationTime:   1000 * time.Millisecond,
		AESKeyLengthProfile:   256,
		RSAKeyLengthUser:      2048,
		RSAKeyLengthFile:      2048,
		RSAKeyLengthChunk:     2048,
	}
}

// Option mutates a Configuration built from Default().
type Option func(*Configuration)

func New(opts ...Option) *Configuration {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithChunkSize(n int64) Option { return func(c *Configuration) { c.ChunkSize = n } }
func WithMaxFileSize(n int64) Option { return func(c *Configuration) { c.MaxFileSize = n } }
func WithMaxNumOfVersions(n int) Option {
	return func(c *Configuration) { c.MaxNumOfVersions = n }
}
func WithMaxSizeAllVersions(n int64) Option {
	return func(c *Configuration) { c.MaxSizeAllVersions = n }
}
func WithMaxModificationTime(d time.Duration) Option {
	return func(c *Configuration) { c.MaxModificationTime = d }
}
