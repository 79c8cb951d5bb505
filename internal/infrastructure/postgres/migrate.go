package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fastygo/crm/internal/config"
)

const migrationsTable = "crm_schema_migrations"

// MigrationState is the schema version recorded in the migrations table.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	Applied bool `json:"applied"`
}

// RunMigrations applies the pending SQL files under cfg.Migrations.Path.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, err := withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("database migrations applied", zap.Uint("version", state.Version), zap.Bool("dirty", state.Dirty))
	return nil
}

// MigrationStatus reports the current schema version without changing it.
func MigrationStatus(cfg *config.Config) (MigrationState, error) {
	return withMigrator(cfg, nil)
}

func withMigrator(cfg *config.Config, fn func(m *migrate.Migrate) error) (MigrationState, error) {
	var state MigrationState
	if cfg == nil {
		return state, errors.New("migrations: nil config")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return state, fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return state, fmt.Errorf("ping migration connection: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return state, fmt.Errorf("migration driver: %w", err)
	}
	source := "file://" + filepath.ToSlash(cfg.Migrations.Path)
	m, err := migrate.NewWithDatabaseInstance(source, cfg.Database.Name, driver)
	if err != nil {
		return state, fmt.Errorf("load migrations from %s: %w", source, err)
	}
	defer m.Close()

	if fn != nil {
		if err := fn(m); err != nil {
			return state, err
		}
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return state, nil
	case err != nil:
		return state, fmt.Errorf("read migration version: %w", err)
	}
	return MigrationState{Version: version, Dirty: dirty, Applied: true}, nil
}
