package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load parses environment variables into the provided struct. Any dotenv files
// given are read first; files that do not exist are skipped and variables
// already present in the environment win over file values.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any, dotenvFiles ...string) error {
	return LoadWithPrefix(cfg, "", dotenvFiles...)
}

// LoadWithPrefix is Load with every variable name prefixed, e.g. "REVIEWCTL_".
func LoadWithPrefix(cfg any, prefix string, dotenvFiles ...string) error {
	if err := loadDotenv(dotenvFiles...); err != nil {
		return err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func loadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load dotenv %s: %w", f, err)
		}
	}
	return nil
}
