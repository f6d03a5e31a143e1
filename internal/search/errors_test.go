package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{200, KindOther},
		{400, KindOther},
		{404, KindNotFound},
		{409, KindConflict},
		{500, KindUnavailable},
		{502, KindUnavailable},
		{503, KindUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, kindFromStatus(tt.status), "status %d", tt.status)
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	inner := NewRemoteError(KindNotFound, "index %s missing", "accounts")
	wrapped := fmt.Errorf("refreshing node-1: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsUnavailable(wrapped))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindOther, KindOf(errors.New("plain")))
	assert.Equal(t, KindOther, KindOf(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestRemoteErrorMessage(t *testing.T) {
	err := NewRemoteError(KindUnavailable, "dial tcp: refused")
	assert.Equal(t, "remote call failed (unavailable): dial tcp: refused", err.Error())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "other", KindOther.String())
}
