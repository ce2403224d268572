// Package config resolves settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvDB     = "SETFIELD_DB"
	EnvDriver = "SETFIELD_DRIVER"
	EnvSchema = "SETFIELD_SCHEMA"
	EnvAddr   = "SETFIELD_ADDR"
)

// Defaults used when neither a flag nor the environment sets a value.
const (
	DefaultDB     = "setfield.db"
	DefaultDriver = "sqlite3"
	DefaultSchema = "models.cue"
	DefaultAddr   = ":8000"
)

type Config struct {
	DBPath     string
	Driver     string
	SchemaPath string
	Addr       string
}

// Load reads the given .env files (".env" when none are named) into the
// process environment, then resolves the config. Missing .env files are
// ignored; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	conf := &Config{
		DBPath:     getEnv(EnvDB, DefaultDB),
		Driver:     getEnv(EnvDriver, DefaultDriver),
		SchemaPath: getEnv(EnvSchema, DefaultSchema),
		Addr:       getEnv(EnvAddr, DefaultAddr),
	}
	slog.Debug("config loaded",
		"db", conf.DBPath, "driver", conf.Driver, "schema", conf.SchemaPath, "addr", conf.Addr)
	return conf, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
