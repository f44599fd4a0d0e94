package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load itself.
const (
	envPrefix      = "PMR_"
	envConfigFile  = "PMR_CONFIG"
	envDotEnvFile  = "PMR_ENV_FILE"
	defaultEnvFile = ".env"
)

// Load builds a Config by layering defaults, optional files and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. YAML file if PMR_CONFIG is set
//  3. dotenv file named by PMR_ENV_FILE, or ./.env when present
//  4. env (prefix PMR_)
//
// Keys are lower-cased after the prefix; a double underscore descends into a
// section, so PMR_RATING__K sets rating.k.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotEnv(k); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New(ctx)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps PMR_RATING__ELO_SCALE to rating.elo_scale.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// loadDotEnv reads PMR_ variables from a dotenv file into k without touching
// the process environment. A missing default file is not an error.
func loadDotEnv(k *koanf.Koanf) error {
	path, explicit := os.LookupEnv(envDotEnvFile)
	if !explicit || path == "" {
		path = defaultEnvFile
		explicit = false
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}

	for name, val := range vars {
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}
		if err := k.Set(envKey(name), val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoadConfig, name, err)
		}
	}
	return nil
}
