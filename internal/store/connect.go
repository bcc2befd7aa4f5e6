// path: internal/store/connect.go
package store

import (
	"fmt"

	"github.com/techappsUT/social-scheduler/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the database the teacher's connectDatabase dialed with
// raw database/sql, but through GORM and with the §6.4 embedded-file
// fallback: a DB_HOST selects Postgres, otherwise the store runs against
// a local SQLite file.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var db *gorm.DB
	var err error
	if cfg.UsesPostgres() {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)

	return db, nil
}
