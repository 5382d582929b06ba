// Package database opens gorm connections for the run journal. SQLite runs
// in memory and is dumped to disk periodically; Postgres writes directly.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/internal/model"
)

// sqlite pragmas tuned for an in-memory write-mostly journal
var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// OpenSQLite opens a SQLite database. An empty path selects the shared
// in-memory database, to be persisted with DumpMemoryToDisk.
func OpenSQLite(path string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite journal: %w", err)
	}

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if path == "" {
		log.Info().Msg("Using in-memory SQLite journal with periodic disk dump")
	} else {
		log.Info().Str("path", path).Msg("Using SQLite journal")
	}
	return db, nil
}

// OpenPostgres connects to the configured Postgres database.
func OpenPostgres(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	log.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres journal")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres journal: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("validating postgres connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// Migrate creates or updates the journal schema.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("Migrating journal schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database into a file, replacing any
// previous dump.
func DumpMemoryToDisk(db *gorm.DB, path string, log zerolog.Logger) error {
	if path == "" {
		return fmt.Errorf("sqlite dump path not set")
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing previous dump: %w", err)
		}
	}

	start := time.Now()
	if err := db.Exec("VACUUM INTO 'file:" + path + "';").Error; err != nil {
		return fmt.Errorf("dumping journal to disk: %w", err)
	}
	log.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped journal to disk")
	return nil
}
