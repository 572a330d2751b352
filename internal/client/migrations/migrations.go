// Package migrations embeds the goose schema migrations of the local store,
// one directory per SQL dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Dir returns the migrations directory for a database/sql driver name.
func Dir(driver string) string {
	if driver == "pgx" {
		return "postgres"
	}
	return "sqlite"
}
