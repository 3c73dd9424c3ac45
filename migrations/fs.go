// Package migrations embeds the SQLite schema migrations. Each file is
// applied at most once; internal/sqlite tracks applied versions in the
// schema_migrations table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Ordered lists migration files in the order they must be applied. The
// numeric prefix is the tracked version.
var Ordered = []string{
	"001_initial_schema.up.sql",
}
