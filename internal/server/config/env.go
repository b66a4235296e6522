package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Ursa1337/account-service/internal/flagx"
)

// parseEnv overlays Config fields from process environment variables.
//
// If a file path is provided via the -c or -config flags it is loaded into the
// environment first; otherwise a .env file in the working directory is used
// when present. Variables already set in the environment always win over the
// file contents.
func parseEnv(cfg *Config) error {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
	} else {
		// Optional; absence of a local .env is not an error.
		_ = godotenv.Load()
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}
