package accounts

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// DialectMigrationsFS returns the migrations for dialect ("sqlite" or "postgres")
// rooted at the dialect directory.
func DialectMigrationsFS(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, path.Join("data/sql/migrations", dialect))
}
