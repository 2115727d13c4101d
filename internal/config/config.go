package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"oremarket/internal/game"
)

type APIConfig struct {
	Port           string        `env:"PORT"`
	Addr           string        `env:"ORE_API_ADDR" envDefault:":8080"`
	DBPath         string        `env:"ORE_DB_PATH" envDefault:"./data/oremarket.db"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	CatalogPath    string        `env:"ORE_CATALOG_PATH"`
	TickEvery      time.Duration `env:"ORE_TICK_EVERY" envDefault:"3s"`
	FrameEvery     time.Duration `env:"ORE_FRAME_EVERY" envDefault:"250ms"`
	AutoOrderEvery time.Duration `env:"ORE_AUTO_ORDER_EVERY" envDefault:"10s"`
	AutosaveEvery  time.Duration `env:"ORE_AUTOSAVE_EVERY" envDefault:"10s"`
	Rarity         string        `env:"ORE_RARITY" envDefault:"normal"`
	XPCurve        string        `env:"ORE_XP_CURVE" envDefault:"exponential"`
	PlayerName     string        `env:"ORE_PLAYER_NAME" envDefault:"You"`
	LogLevel       string        `env:"ORE_LOG_LEVEL" envDefault:"info"`
	WorkerRunOnce  bool          `env:"ORE_WORKER_RUN_ONCE" envDefault:"false"`
}

type CLIConfig struct {
	APIBaseURL string `env:"ORE_API_BASE_URL" envDefault:"http://localhost:8080"`
}

// LoadAPIFromEnv parses the server and worker settings. Unknown rarity,
// curve and log level values fall back to their defaults.
func LoadAPIFromEnv() (APIConfig, error) {
	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if p := strings.TrimSpace(cfg.Port); p != "" {
		if !strings.HasPrefix(p, ":") {
			p = ":" + p
		}
		cfg.Addr = p
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.Rarity = game.NormalizeRarity(cfg.Rarity)
	cfg.XPCurve = string(game.ParseCurve(cfg.XPCurve))
	if strings.TrimSpace(cfg.PlayerName) == "" {
		cfg.PlayerName = game.DefaultPlayer
	}
	if cfg.TickEvery < game.MinTickInterval*time.Millisecond {
		return cfg, fmt.Errorf("ORE_TICK_EVERY must be at least %dms", game.MinTickInterval)
	}
	if cfg.FrameEvery <= 0 {
		return cfg, fmt.Errorf("ORE_FRAME_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}

// SlogLevel maps ORE_LOG_LEVEL to a slog level, defaulting to info.
func (c APIConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
