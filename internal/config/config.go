package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	DBPath         string   `env:"DB_PATH" envDefault:"./dev.db"`
	AppEnv         string   `env:"APP_ENV" envDefault:"dev"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads environment variables and returns a populated Config.
func Load() (Config, error) {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in the local development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}
