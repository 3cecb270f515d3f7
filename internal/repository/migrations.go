package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the dialect and returns
// the resulting schema version.
func RunMigrations(db *sql.DB, dialect Dialect) (uint, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect.Name {
	case SQLite.Name:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case Postgres.Name:
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
	case MySQL.Name:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		return 0, fmt.Errorf("unsupported dialect: %s", dialect.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create %s migration driver: %w", dialect.Name, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+dialect.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect.Name, driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("database schema is dirty at version %d", version)
	}

	logrus.WithFields(logrus.Fields{"component": "migrations", "dialect": dialect.Name, "version": version}).
		Debug("Schema up to date")
	return version, nil
}
