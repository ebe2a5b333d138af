package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tg-sanction/internal/config"
	"tg-sanction/internal/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

var (
	// DB is the global database connection
	DB *gorm.DB
)

// Initialize sets up the database connection based on configuration
func Initialize(cfg *config.Config) error {
	if !cfg.Database.Enabled {
		logger.Infof("Database support is disabled")
		return nil
	}

	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return err
	}

	logger.Infof("Connecting to %s database: %s", cfg.Database.Driver, describe(cfg.Database))

	DB, err = Open(dialector, NewGormLogger(cfg.Logger.Level))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// one writer; concurrent transactions would fail with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Infof("Database connection established successfully")
	return nil
}

// Open opens a gorm connection with the settings the repositories rely on.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, gormLogger glogger.Interface) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
}

func dialectorFor(db config.DatabaseConfig) (gorm.Dialector, error) {
	switch db.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
			db.Username,
			db.Password,
			db.Host,
			db.Port,
			db.DBName,
			db.Charset,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Port, db.Username, db.Password, db.DBName)
		return postgres.Open(dsn), nil
	case "sqlite":
		if dir := filepath.Dir(db.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(db.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", db.Driver)
	}
}

func describe(db config.DatabaseConfig) string {
	if db.Driver == "sqlite" {
		return db.Path
	}
	return fmt.Sprintf("%s:%d/%s", db.Host, db.Port, db.DBName)
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

// MigrateAll creates or updates every table owned by this service.
func MigrateAll(db *gorm.DB) error {
	if err := NewSanctionRepository(db).MigrateTable(); err != nil {
		return fmt.Errorf("failed to migrate sanction records: %w", err)
	}
	if err := NewBanRepository(db).MigrateTable(); err != nil {
		return fmt.Errorf("failed to migrate ban records: %w", err)
	}
	return nil
}
