package repository

import (
	"context"
	"fmt"

	accounts "github.com/goliatone/go-accounts"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// Migrate applies the embedded schema migrations matching the db dialect
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	name, err := migrationsDialect(db)
	if err != nil {
		return nil, err
	}

	fsys, err := accounts.DialectMigrationsFS(name)
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, fmt.Errorf("discover %s migrations: %w", name, err)
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return group, nil
}

func migrationsDialect(db *bun.DB) (string, error) {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return "sqlite", nil
	case dialect.PG:
		return "postgres", nil
	default:
		return "", fmt.Errorf("no migrations for dialect %s", db.Dialect().Name())
	}
}
