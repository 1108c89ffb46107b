package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/models"
)

// Connect opens the relational store for driver ("postgres" or "sqlite").
// Postgres databases are created on first use.
func Connect(driver, dsn string, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         newLogger(zapWriter{}, debug),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres", "postgresql":
		if err := ensureDatabase(dsn); err != nil {
			return nil, fmt.Errorf("ensure database: %w", err)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if driver == "sqlite" {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY and
		// keeps ":memory:" databases shared across the pool.
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return conn, nil
}

// newLogger builds the gorm logger. Expected misses are not logged;
// callers map them to repository.ErrNotFound.
func newLogger(w logger.Writer, debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// zapWriter routes gorm output to the global zap logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	zap.L().Named("gorm").Sugar().Infof(format, args...)
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	for _, model := range models.All() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	zap.L().Info("database migrated", zap.Int("tables", len(models.All())))
	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	zap.L().Info("creating database", zap.String("name", dbName))
	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
