package journal

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/internal/database"
)

// NewBackend creates a journal backend based on configuration.
func NewBackend(cfg config.JournalConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "none":
		return Nop{}, nil
	case "sqlite":
		db, err := database.OpenSQLite("", log)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db, log); err != nil {
			return nil, err
		}
		return newDBBackend(db, cfg.SQLite.Path, cfg.SQLite.DumpInterval, log), nil
	case "postgres":
		db, err := database.OpenPostgres(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db, log); err != nil {
			return nil, err
		}
		return newDBBackend(db, "", 0, log), nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
