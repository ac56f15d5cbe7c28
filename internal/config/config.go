// Package config loads process-level configuration from environment
// variables and an optional HCL file. The bot's runtime configuration
// (token, bound chat, switches) lives in storage, not here.
package config

import (
	"fmt"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
)

// Config holds the process configuration.
type Config struct {
	DatabasePath  string        `hcl:"database_path" env:"DATABASE_PATH" default:"./data/bot.db"`
	ListenAddr    string        `hcl:"listen_addr" env:"LISTEN_ADDR" default:":8080"`
	FeedURL       string        `hcl:"feed_url" env:"FEED_URL" default:"https://rss.nodeseek.com/"`
	FetchInterval time.Duration `hcl:"fetch_interval" env:"FETCH_INTERVAL" default:"5m"`
	WebhookURL    string        `hcl:"webhook_url" env:"WEBHOOK_URL"`
	LogLevel      string        `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from config.hcl (when present) and the
// environment, environment winning.
func Load() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "NSB",
		SkipFlags:          true,
		AllowUnknownFields: true,
		Files:              []string{"./config.hcl"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.FetchInterval < time.Minute {
		return nil, fmt.Errorf("fetch_interval must be at least 1 minute, got %s", cfg.FetchInterval)
	}
	return &cfg, nil
}
