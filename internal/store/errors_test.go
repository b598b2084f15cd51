package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"not found", NotFound("article", 3), ErrCodeNotFound},
		{"conflict", Conflict("category", "the current World", "Person"), ErrCodeConflict},
		{"migration", MigrationFailed(2, errors.New("boom")), ErrCodeMigrationFailed},
		{"cascade", InternalConsistency("category", 1, errors.New("boom")), ErrCodeInternalConsistency},
		{"swap", InterruptedSwap("a.sqlite", "a-migrated.sqlite"), ErrCodeInterruptedSwap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.Equal(t, tt.code, CodeOf(wrapped))
			assert.Equal(t, tt.code == ErrCodeNotFound, IsNotFound(wrapped))
			assert.Equal(t, tt.code == ErrCodeConflict, IsConflict(wrapped))
			assert.Equal(t, tt.code == ErrCodeMigrationFailed, IsMigrationFailure(wrapped))
			assert.Equal(t, tt.code == ErrCodeInternalConsistency, IsInternalConsistency(wrapped))
			assert.Equal(t, tt.code == ErrCodeInterruptedSwap, IsInterruptedSwap(wrapped))
		})
	}
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := MigrationFailed(1, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "migration 1 failed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestWrapOp_KeepsStructuredErrors(t *testing.T) {
	nf := NotFound("field", 9)
	assert.Same(t, nf, wrapOp("delete field", nf))

	plain := wrapOp("delete field", errors.New("locked"))
	assert.EqualError(t, plain, "delete field: locked")
}
