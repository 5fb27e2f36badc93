package database

import (
	"fmt"
	"investtrack/internal/utils"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Manager struct {
	DB *gorm.DB
}

func NewDatabaseManager() *Manager {
	return &Manager{}
}

// Connect opens postgres, or sqlite when dsn starts with "sqlite:"
// (local development).
func (dbm *Manager) Connect(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return dbm.OpenSQLite(path)
	}
	return dbm.Open(postgres.Open(dsn), logger.Warn)
}

// OpenSQLite opens a sqlite database file, or a private in-memory one for ":memory:".
func (dbm *Manager) OpenSQLite(path string) error {
	if err := dbm.Open(sqlite.Open(path), logger.Silent); err != nil {
		return err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db, err := dbm.DB.DB()
		if err != nil {
			return err
		}
		db.SetMaxOpenConns(1)
	}
	return nil
}

// Open connects through any gorm dialector; tests pass sqlite.
func (dbm *Manager) Open(dialector gorm.Dialector, level logger.LogLevel) error {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}
	dbm.DB = db
	return nil
}

func (dbm *Manager) Migrate() error {
	if err := dbm.DB.AutoMigrate(utils.Models()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (dbm *Manager) Close() error {
	db, err := dbm.DB.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
