package project

import "time"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Project is a named container for artifacts. Names are unique
// case-insensitively within a tenant.
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Status      Status         `json:"status"`
	Config      map[string]any `json:"config,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Tags        []string
	Status      *Status
	Config      map[string]any
}

// Apply merges the patch into p and reports whether anything changed.
func (patch Patch) Apply(p *Project) bool {
	changed := false
	if patch.Name != nil && *patch.Name != p.Name {
		p.Name = *patch.Name
		changed = true
	}
	if patch.Description != nil && *patch.Description != p.Description {
		p.Description = *patch.Description
		changed = true
	}
	if patch.Tags != nil && !equalTags(patch.Tags, p.Tags) {
		p.Tags = patch.Tags
		changed = true
	}
	if patch.Status != nil && *patch.Status != p.Status {
		p.Status = *patch.Status
		changed = true
	}
	if patch.Config != nil {
		p.Config = patch.Config
		changed = true
	}
	return changed
}

// Filter narrows project listings.
type Filter struct {
	Status Status // empty matches all
	Limit  int
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
