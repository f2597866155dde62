package db

import (
	"embed"
	"errors"

	"github.com/diewo77/odo-invoices/internal/config"
	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/diewo77/odo-invoices/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres:// database driver for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the schema up to date. Postgres with MIGRATIONS enabled runs
// the embedded SQL migrations; everything else falls back to AutoMigrate.
func Migrate(gdb *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Database.Driver == "postgres" && cfg.App.Migrations {
		log.Infow("running sql migrations")
		if err := RunSQLMigrations(cfg.Database.URL()); err != nil {
			return err
		}
	} else {
		log.Infow("running automigrate")
		if err := gdb.AutoMigrate(models.All()...); err != nil {
			return ierr.WithError(err).
				WithHint("automigrate failed").
				Mark(ierr.ErrDatabase)
		}
	}

	for _, m := range models.All() {
		if !gdb.Migrator().HasTable(m) {
			return ierr.NewError("missing table after migration").
				WithHintf("table for %T was not created", m).
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

// RunSQLMigrations applies the embedded migrations to the postgres database
// at url. Being already up to date is not an error.
func RunSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return ierr.WithError(err).WithHint("load embedded migrations").Mark(ierr.ErrSystem)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return ierr.WithError(err).WithHint("open migration target").Mark(ierr.ErrDatabase)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ierr.WithError(err).WithHint("apply sql migrations").Mark(ierr.ErrDatabase)
	}
	return nil
}
