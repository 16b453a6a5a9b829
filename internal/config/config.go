// Package config loads runtime settings from the environment and .env files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPaths are tried in order; the first .env file found wins
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config holds every setting shared by the collector, MCP server and HTTP server
type Config struct {
	APIKey   string `env:"RIOT_API_KEY"`
	GameName string `env:"RIOT_USERNAME"`
	TagLine  string `env:"RIOT_TAGLINE"`
	Platform string `env:"RIOT_PLATFORM"`

	DatabaseURL string `env:"SUMMONER_DB" envDefault:"summoner_insights.db"`
	AuthToken   string `env:"TURSO_AUTH_TOKEN"`

	MatchCount     int           `env:"MATCH_COUNT" envDefault:"10"`
	RequestDelay   time.Duration `env:"REQUEST_DELAY" envDefault:"100ms"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	PullInterval   time.Duration `env:"PULL_INTERVAL"`
	EventMode      string        `env:"EVENT_MODE" envDefault:"replace"`

	ArchivePath       string `env:"ARCHIVE_PATH"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Port     string `env:"PORT" envDefault:"8080"`
}

// LoadDotEnv loads the first .env file found in EnvPaths and returns its path,
// or "" when none exists. Variables already set in the environment win.
func LoadDotEnv() string {
	for _, path := range EnvPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load parses the environment into a Config and applies derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// .env values are often quoted
	cfg.APIKey = strings.Trim(cfg.APIKey, "\"")
	cfg.DatabaseURL = strings.Trim(cfg.DatabaseURL, "\"")
	cfg.ArchivePath = strings.Trim(cfg.ArchivePath, "\"")

	if cfg.Platform == "" {
		cfg.Platform = cfg.TagLine
	}
	cfg.Platform = strings.ToLower(cfg.Platform)

	return cfg, nil
}

// ValidateCollector checks the settings needed to pull from the Riot API
func (c Config) ValidateCollector() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "RIOT_API_KEY")
	}
	if c.GameName == "" {
		missing = append(missing, "RIOT_USERNAME")
	}
	if c.TagLine == "" {
		missing = append(missing, "RIOT_TAGLINE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.MatchCount <= 0 {
		return fmt.Errorf("MATCH_COUNT must be positive, got %d", c.MatchCount)
	}
	switch c.EventMode {
	case "replace", "append":
	default:
		return fmt.Errorf("EVENT_MODE must be replace or append, got %q", c.EventMode)
	}
	return nil
}
