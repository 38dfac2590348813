package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hive2hive/h2h/internal/config"
)

func TestNewWithoutOptionsMatchesDefault(t *testing.T) {
	assert.Equal(t, config.Default(), config.New())
}

func TestOptionsOverrideOnlyTheirOwnField(t *testing.T) {
	cfg := config.New(
		config.WithMaxNumOfVersions(5),
		config.WithMaxModificationTime(2*time.Second),
	)

	assert.Equal(t, 5, cfg.MaxNumOfVersions)
	assert.Equal(t, 2*time.Second, cfg.MaxModificationTime)
	assert.Equal(t, config.Default().ChunkSize, cfg.ChunkSize)
	assert.Equal(t, config.Default().MaxFileSize, cfg.MaxFileSize)
}

func TestEachOptionMutatesOnlyItsTargetField(t *testing.T) {
	base := config.Default()

	assert.Equal(t, int64(42), config.New(config.WithChunkSize(42)).ChunkSize)
	assert.Equal(t, int64(42), config.New(config.WithMaxFileSize(42)).MaxFileSize)
	assert.Equal(t, int64(42), config.New(config.WithMaxSizeAllVersions(42)).MaxSizeAllVersions)

	withChunkSize := config.New(config.WithChunkSize(42))
	assert.Equal(t, base.MaxFileSize, withChunkSize.MaxFileSize)
	assert.Equal(t, base.MaxNumOfVersions, withChunkSize.MaxNumOfVersions)
}
