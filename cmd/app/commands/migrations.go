package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/ledgersync/internal/database"
)

// RunMigrations applies all pending migrations for the configured driver.
// Returns nil if there are no migrations to apply.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	migrationsPath, databaseURL, err := migrationTarget(driver, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationTarget returns the migrations source and the golang-migrate database URL.
// SQLite and MySQL DSNs are prefixed with their scheme when it is missing.
func migrationTarget(driver, connectionString string) (string, string, error) {
	switch driver {
	case database.DriverPostgres:
		return "file://migrations/postgresql", connectionString, nil
	case database.DriverMySQL:
		return "file://migrations/mysql", withScheme("mysql://", connectionString), nil
	case database.DriverSQLite:
		return "file://migrations/sqlite3", withScheme("sqlite3://", connectionString), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func withScheme(scheme, dsn string) string {
	if strings.HasPrefix(dsn, scheme) {
		return dsn
	}
	return scheme + dsn
}
