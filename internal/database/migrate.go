package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

const rollbackSuffix = "_rollback.sql"

// ErrNoMigrations is returned by Rollback when nothing has been applied
var ErrNoMigrations = errors.New("no migrations to rollback")

// RunMigrations brings the schema up to date. SQLite databases are migrated
// from the models; everything else runs the SQL files in migrationsDir.
func RunMigrations(db *gorm.DB, migrationsDir string, log *logrus.Logger) error {
	if db.Dialector.Name() == "sqlite" {
		log.Info("using gorm auto-migration for sqlite")
		return db.AutoMigrate(models.AllModels()...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	_, err = NewMigrator(sqlDB, migrationsDir, log).Up(context.Background())
	return err
}

// Migrator applies and rolls back versioned SQL files.
// Files are named VERSION_name.sql with an optional VERSION_name_rollback.sql.
type Migrator struct {
	db  *sql.DB
	dir string
	log *logrus.Logger
}

// NewMigrator creates a migrator over dir
func NewMigrator(db *sql.DB, dir string, log *logrus.Logger) *Migrator {
	return &Migrator{db: db, dir: dir, log: log}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// files returns the forward migration files in version order
func (m *Migrator) files() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" || strings.HasSuffix(name, rollbackSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func versionOf(file string) string {
	return strings.SplitN(file, "_", 2)[0]
}

// Up applies every migration not yet recorded and returns the applied file names
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, file := range files {
		version := versionOf(file)

		var count int
		if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count); err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			m.log.WithField("migration", file).Debug("skipping migration (already applied)")
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.dir, file))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", version, file); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		m.log.WithField("migration", file).Info("applied migration")
		applied = append(applied, file)
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration using its rollback file
func (m *Migrator) Rollback(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}

	var version, name string
	err := m.db.QueryRowContext(ctx, "SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMigrations
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	rollbackPath := filepath.Join(m.dir, strings.TrimSuffix(name, ".sql")+rollbackSuffix)
	content, err := os.ReadFile(rollbackPath)
	if err != nil {
		return "", fmt.Errorf("failed to read rollback file %s: %w", rollbackPath, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to execute rollback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit rollback: %w", err)
	}

	m.log.WithField("migration", name).Info("rolled back migration")
	return name, nil
}
