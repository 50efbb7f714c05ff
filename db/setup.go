package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

const uniqueViolationCode = "23505"

func ConnectDatabase(settings config.DatabaseSettings) error {
	var dialector gorm.Dialector

	switch settings.Type {
	case config.PostgresDbType:
		dialector = postgres.Open(settings.DSN)
	case config.SqliteDbType:
		dsn := settings.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported database type: %s", settings.Type)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})

	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", settings.Type, err)
	}

	if settings.Type == config.SqliteDbType {
		sqlDB, err := conn.DB()
		if err != nil {
			return fmt.Errorf("failed to get raw DB connection: %w", err)
		}
		// A single connection keeps in-memory databases alive and avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)

		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	DB = conn

	return nil
}

func MigrateDatabase() error {
	for _, model := range models.All() {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// Ping checks that the database answers within ctx.
func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not connected")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
