package h2herrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hive2hive/h2h/internal/h2herrors"
)

func TestOfExtractsKindThroughWrapping(t *testing.T) {
	base := h2herrors.NewGetFailed("no such key")
	wrapped := fmt.Errorf("outer context: %w", base)

	kind, ok := h2herrors.Of(wrapped)
	assert.True(t, ok)
	assert.Equal(t, h2herrors.GetFailed, kind)
}

func TestOfReturnsFalseForPlainError(t *testing.T) {
	_, ok := h2herrors.Of(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsMatchesBySentinelKindRegardlessOfMessage(t *testing.T) {
	err := h2herrors.NewPutFailed("write timed out")
	assert.True(t, errors.Is(err, h2herrors.Sentinel(h2herrors.PutFailed)))
	assert.False(t, errors.Is(err, h2herrors.Sentinel(h2herrors.GetFailed)))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := h2herrors.WrapPutFailed("save sidecar", cause)
	assert.ErrorIs(t, err, cause)
}
