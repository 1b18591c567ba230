package database

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Database struct {
	db           *gorm.DB
	settingsRepo *SettingsRepo
	projectRepo  *ProjectRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:           db,
		settingsRepo: NewSettingsRepo(db),
		projectRepo:  NewProjectRepo(db),
	}
}

// Open connects to Postgres. Prepared statements are off so the
// connection works through a transaction pooler.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      NewGormLogger(log.With().Str("component", "gorm").Logger()),
	})
	if err != nil {
		return nil, errs.NewDatabaseError("connect to", "database", err)
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, errs.NewDatabaseError("ping", "database", err)
	}
	return db, nil
}

// NewGormLogger routes gorm's warnings and slow queries through zerolog.
func NewGormLogger(l zerolog.Logger) logger.Interface {
	return logger.New(gormWriter{l}, logger.Config{
		SlowThreshold:             10 * time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	l zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.l.Warn().Msgf(format, args...)
}

// Accessor methods for each repository

func (d Database) SettingsRepo() *SettingsRepo {
	return d.settingsRepo
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

// RunMigrations applies every pending embedded migration.
func (d Database) RunMigrations() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	logger := log.With().Str("component", "database").Logger()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.NewMigrationError("up", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errs.NewMigrationError("version", err)
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Migrations completed")
	return nil
}

// MigrateStep moves the schema steps migrations up (positive) or down
// (negative).
func (d Database) MigrateStep(steps int) error {
	if steps == 0 {
		return errs.NewBadRequestError("steps cannot be zero")
	}
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Steps(steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.NewMigrationError(fmt.Sprintf("step %d", steps), err)
	}
	return nil
}

func (d Database) migrator() (*migrate.Migrate, error) {
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil, errs.NewMigrationError("open", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return nil, errs.NewMigrationError("driver", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errs.NewMigrationError("source", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errs.NewMigrationError("init", err)
	}
	return m, nil
}
