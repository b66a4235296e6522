// Package config handles configuration for the CLI client.
package config

import (
	"flag"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/Ursa1337/account-service/internal/flagx"
)

// Config holds CLI client settings.
type Config struct {
	// ServerURL is the base URL of the account service.
	ServerURL string `env:"SERVER_URL"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
}

// LoadConfig builds a Config from defaults, then environment, then flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	return cfg, nil
}

func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "account service base URL")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-s"}))
}
