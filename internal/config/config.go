package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/meimei/internal/meimei"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/meimei.db"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	CatalogPath string     `env:"CATALOG_PATH"`

	Projection     meimei.Projection `env:"PROJECTION" envDefault:"worldMap"`
	TargetVisits   int               `env:"TARGET_VISITS" envDefault:"10"`
	SessionIdleTTL time.Duration     `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	// SessionRetention is how long completed sessions stay in the database.
	// Zero keeps them forever.
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"168h"`

	FlagRounds       int           `env:"FLAG_ROUNDS" envDefault:"5"`
	FlagAdvanceDelay time.Duration `env:"FLAG_ADVANCE_DELAY" envDefault:"2s"`

	// AdminUser and AdminPasswordHash guard score resets. An empty hash
	// disables the reset endpoint.
	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if _, err := meimei.ParseProjection(string(cfg.Projection)); err != nil {
		return nil, fmt.Errorf("PROJECTION: %w", err)
	}
	if cfg.TargetVisits <= 0 {
		return nil, fmt.Errorf("TARGET_VISITS must be positive, got %d", cfg.TargetVisits)
	}
	return &cfg, nil
}
