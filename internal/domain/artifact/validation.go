package artifact

import "strings"

// CreateRequest carries the fields needed to create an artifact.
type CreateRequest struct {
	ProjectID string
	Title     string
	Type      Type
	Content   string
	Summary   string
	Priority  Priority
	Tags      []string
}

// Validate checks required fields and enum values. Priority defaults to
// normal when unset.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.ProjectID) == "" {
		return ErrEmptyProject
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if r.Priority == "" {
		r.Priority = PriorityNormal
	}
	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}
