package database

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	db       *gorm.DB
	logger   *logrus.Logger
	fullText bool
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{db: db, logger: logger}, nil
}

// NewTestDB opens a private in-memory database with the schema applied.
func NewTestDB() (*Database, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	d, err := NewDatabase(":memory:", logger)
	if err != nil {
		return nil, err
	}

	// Every pooled connection would otherwise get its own empty in-memory database
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := d.RunMigrations(); err != nil {
		return nil, err
	}
	return d, nil
}

// FullTextEnabled reports whether the FTS index was created by RunMigrations.
func (d *Database) FullTextEnabled() bool {
	return d.fullText
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
