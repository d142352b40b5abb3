package credstore

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/config"
)

// New selects the credential store backend from config.
func New(cfg *config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.CredStoreDriver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite credential store")
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		log.Info().Msg("using postgres credential store")
		return OpenPostgres(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported credential store driver: %s", cfg.CredStoreDriver)
	}
}
