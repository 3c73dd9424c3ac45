package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calder/mnemo/internal/chunk"
	"github.com/calder/mnemo/internal/storage"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", storage.ErrNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("artifact: %w", storage.ErrNotFound), "NOT_FOUND"},
		{"validation", storage.ErrValidation, "VALIDATION"},
		{"conflict", storage.ErrConflict, "CONFLICT"},
		{"integrity", chunk.ErrIntegrity, "INTEGRITY"},
		{"storage", storage.ErrStorage, "STORAGE"},
		{"wrapped storage", storage.Internal("scan failed", errors.New("disk io error")), "STORAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err)
			var apiErr *APIError
			require.ErrorAs(t, mapped, &apiErr)
			require.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	require.NoError(t, mapError(nil))

	plain := errors.New("disk on fire")
	require.Equal(t, plain, mapError(plain))
}
