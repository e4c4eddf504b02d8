package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeNotFound, "screen not found", "ScreenService.Get", ErrNotFound)
	assert.Equal(t, "ScreenService.Get: screen not found", err.Error())

	bare := NewError(CodeInternal, "boom", "", nil)
	assert.Equal(t, "boom", bare.Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"explicit code", NewError(CodeConflict, "dup", "op", ErrConflict), CodeConflict},
		{"wrapped not found", fmt.Errorf("lookup: %w", ErrNotFound), CodeNotFound},
		{"version mismatch", fmt.Errorf("save: %w", ErrVersionMismatch), CodeVersionConflict},
		{"validation helper", Validation("op", "bad"), CodeInvalidInput},
		{"rate limited", ErrRateLimited, CodeRateLimited},
		{"unknown", errors.New("other"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestSentinelChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(CodeNotFound, "missing", "op", ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsInvalidInput(err))
}
