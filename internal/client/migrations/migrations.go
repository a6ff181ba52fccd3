// Package migrations embeds the goose schema migrations of the local store,
// one directory per SQL dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var all embed.FS

// SQLite returns the migrations for the SQLite backend.
func SQLite() fs.FS { return sub("sqlite") }

// Postgres returns the migrations for the PostgreSQL backend.
func Postgres() fs.FS { return sub("postgres") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(all, dir)
	if err != nil {
		panic(err)
	}
	return f
}
