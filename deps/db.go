package deps

import (
	"github.com/blkmlk/file-dashboard/env"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB() (*gorm.DB, error) {
	dsn, err := env.Get(env.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return gorm.Open(postgres.Open(dsn))
}

// NewLocalDB opens an in-memory sqlite database for tests. The pool is
// pinned to a single connection so every query sees the same memory db.
func NewLocalDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
