package db

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies every pending migration found under dir in fsys.
func Migrate(fsys fs.FS, dir, dsn string) error {
	m, err := newMigrator(fsys, dir, dsn)
	if err != nil {
		return err
	}
	defer closeMigrator(m)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("platform/db: migrate up: %w", err)
	}
	return nil
}

// Rollback reverts the given number of migrations.
func Rollback(fsys fs.FS, dir, dsn string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("platform/db: rollback steps must be positive")
	}
	m, err := newMigrator(fsys, dir, dsn)
	if err != nil {
		return err
	}
	defer closeMigrator(m)
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("platform/db: migrate down: %w", err)
	}
	return nil
}

// Version reports the applied migration version.
func Version(fsys fs.FS, dir, dsn string) (uint, bool, error) {
	m, err := newMigrator(fsys, dir, dsn)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m)
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func newMigrator(fsys fs.FS, dir, dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("platform/db: migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(dsn))
	if err != nil {
		return nil, fmt.Errorf("platform/db: migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	_, _ = m.Close()
}

// pgx5URL rewrites a postgres DSN to the scheme registered by the pgx/v5 driver.
func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
