// Package ident generates identifiers and canonical timestamps used by
// every store. Keeping both in one place guarantees the two backends stamp
// rows identically.
package ident

import (
	"time"

	"github.com/google/uuid"
)

// New returns a collision-resistant opaque identifier.
func New() string {
	return uuid.NewString()
}

// Now returns the current time in UTC, truncated to microseconds so that
// round-trips through both SQLite and Postgres preserve equality.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
