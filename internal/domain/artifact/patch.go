package artifact

// Patch describes a partial artifact update. Nil fields retain their prior
// values; the stores only snapshot and bump the version when Apply reports
// an actual change.
type Patch struct {
	Title    *string
	Content  *string
	Summary  *string
	Priority *Priority
	Tags     []string
}

// Apply merges the patch into a and reports whether any field changed.
func (p Patch) Apply(a *Artifact) bool {
	changed := false
	if p.Title != nil && *p.Title != a.Title {
		a.Title = *p.Title
		changed = true
	}
	if p.Content != nil && *p.Content != a.Content {
		a.Content = *p.Content
		changed = true
	}
	if p.Summary != nil && *p.Summary != a.Summary {
		a.Summary = *p.Summary
		changed = true
	}
	if p.Priority != nil && *p.Priority != a.Priority {
		a.Priority = *p.Priority
		changed = true
	}
	if p.Tags != nil && !equalTags(p.Tags, a.Tags) {
		a.Tags = p.Tags
		changed = true
	}
	return changed
}

// Validate checks the enum fields a patch supplies.
func (p Patch) Validate() error {
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	if p.Title != nil && *p.Title == "" {
		return ErrEmptyTitle
	}
	return nil
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
