package repo

import (
    "embed"
    "errors"
    "fmt"

    "github.com/golang-migrate/migrate/v4"
    "github.com/golang-migrate/migrate/v4/database/postgres"
    "github.com/golang-migrate/migrate/v4/source/iofs"
    "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies pending schema migrations. Safe to call on every start; a
// database that is already current is a no-op.
func (d *DB) Migrate() error {
    src, err := iofs.New(migrationsFS, "migrations")
    if err != nil { return fmt.Errorf("migrations source: %w", err) }
    sqlDB := stdlib.OpenDBFromPool(d.Pool)
    driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
    if err != nil { return fmt.Errorf("migrations driver: %w", err) }
    m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
    if err != nil { return fmt.Errorf("migrations init: %w", err) }
    if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
        return fmt.Errorf("migrations up: %w", err)
    }
    return nil
}
