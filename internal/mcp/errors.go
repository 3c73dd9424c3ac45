package mcp

import (
	"errors"
	"fmt"

	"github.com/calder/mnemo/internal/chunk"
	"github.com/calder/mnemo/internal/storage"
)

// APIError is the error shape surfaced to MCP clients.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// mapError maps storage and chunk errors to MCP error codes. Unknown errors
// pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error(), RecoveryHint: "Check the ID or name spelling"}
	case errors.Is(err, storage.ErrValidation):
		return &APIError{Code: "VALIDATION", Message: err.Error(), RecoveryHint: "Fix the invalid field and retry"}
	case errors.Is(err, storage.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error(), RecoveryHint: "Pick a different name"}
	case errors.Is(err, chunk.ErrIntegrity):
		return &APIError{Code: "INTEGRITY", Message: err.Error(), RecoveryHint: "One or more content parts are missing or corrupted"}
	case errors.Is(err, storage.ErrStorage):
		return &APIError{Code: "STORAGE", Message: err.Error(), RecoveryHint: "Retry; if the failure persists, check the backend"}
	default:
		return err
	}
}
