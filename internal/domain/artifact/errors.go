package artifact

import "errors"

var (
	// ErrEmptyTitle indicates a missing required title.
	ErrEmptyTitle = errors.New("artifact title must not be empty")
	// ErrEmptyProject indicates a missing owning project identifier.
	ErrEmptyProject = errors.New("artifact project id must not be empty")
	// ErrInvalidType indicates an unknown artifact type.
	ErrInvalidType = errors.New("invalid artifact type")
	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = errors.New("invalid artifact priority")
)
