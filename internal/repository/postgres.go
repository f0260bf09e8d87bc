package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("record not found")

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

var _ models.Repository = (*PostgresDB)(nil)

// gormWriter routes GORM's own log lines into zap.
type gormWriter struct {
	logger *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.SugaredLogger.Warnf(format, args...)
}

func NewPostgresDB(dsn string, logger *logger.Logger) (*PostgresDB, error) {
	db, err := open(postgres.Open(dsn), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// NewSQLiteDB opens a SQLite database file. Writes are serialized over a single connection.
func NewSQLiteDB(path string, logger *logger.Logger) (*PostgresDB, error) {
	db, err := open(sqlite.Open(path+"?_busy_timeout=5000"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	logger.Info("Successfully opened SQLite database", "path", path)
	return db, nil
}

func open(dialector gorm.Dialector, logger *logger.Logger) (*PostgresDB, error) {
	// Suppress "record not found": absent checkpoints and deposits are normal
	gl := gormLogger.New(
		gormWriter{logger: logger},
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gl})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Checkpoint{}, &models.Deposit{}, &models.AppLock{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}
