package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateSchema applies pending migrations and returns the resulting schema
// version. Closing a migrate instance closes its database, so it gets a
// connection of its own.
func migrateSchema(dsn string) (uint, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
