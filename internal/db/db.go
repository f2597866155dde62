// Package db opens the invoice database and brings its schema up to date.
package db

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/odo-invoices/internal/config"
	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

var passwordRe = regexp.MustCompile(`(password=)(\S+)`)

// Connect opens the configured database and checks it answers SELECT 1.
// Postgres is retried a few times so the server can come up alongside it.
func Connect(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		log.Infow("connecting to database", "driver", cfg.Driver, "dsn", MaskDSN(cfg.DSN()))
		for i := 1; i <= connectAttempts; i++ {
			gdb, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
			if err == nil {
				break
			}
			log.Warnw("database connection failed, retrying", "attempt", i, "error", err)
			if i < connectAttempts {
				time.Sleep(connectDelay)
			}
		}
	case "sqlite":
		log.Infow("connecting to database", "driver", cfg.Driver, "path", cfg.Path)
		gdb, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.Path)), gcfg)
	default:
		return nil, ierr.NewError(fmt.Sprintf("unsupported database driver %q", cfg.Driver)).
			WithHint("DB_DRIVER must be sqlite or postgres").
			Mark(ierr.ErrValidation)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("could not open %s database", cfg.Driver).
			Mark(ierr.ErrDatabase)
	}

	if err := gdb.Exec("SELECT 1").Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("database ping failed").
			Mark(ierr.ErrDatabase)
	}
	return gdb, nil
}

// SQLiteDSN turns a file path into a DSN with foreign keys enforced, which
// the invoice cascade relies on.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

// MaskDSN hides the password of a key=value DSN.
func MaskDSN(dsn string) string {
	return passwordRe.ReplaceAllString(dsn, "${1}***")
}
