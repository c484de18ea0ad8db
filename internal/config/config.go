// Package config resolves keg's directories and log settings from the
// environment, with command-line flags taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by Load
const (
	EnvCellar     = "KEG_CELLAR"
	EnvCache      = "KEG_CACHE"
	EnvFormulaDir = "KEG_FORMULA_DIR"
	EnvLogLevel   = "KEG_LOG_LEVEL"
)

// Config holds the resolved settings for one keg invocation
type Config struct {
	CellarDir  string
	CacheDir   string
	FormulaDir string // empty means built-in formulas only
	LogLevel   string
	LogFile    string
}

// Overrides carries flag values; empty fields fall back to the environment
type Overrides struct {
	CellarDir  string
	CacheDir   string
	FormulaDir string
	LogFile    string
	Debug      bool
}

// Load resolves the configuration. getenv is usually os.Getenv; home is the
// user's home directory and is only consulted for defaults.
func Load(getenv func(string) string, home string, o Overrides) (*Config, error) {
	cfg := &Config{
		CellarDir:  first(o.CellarDir, getenv(EnvCellar)),
		CacheDir:   first(o.CacheDir, getenv(EnvCache)),
		FormulaDir: first(o.FormulaDir, getenv(EnvFormulaDir)),
		LogLevel:   strings.ToLower(first(getenv(EnvLogLevel), "info")),
		LogFile:    o.LogFile,
	}
	if o.Debug {
		cfg.LogLevel = "debug"
	}

	if cfg.CellarDir == "" || cfg.CacheDir == "" {
		if home == "" {
			return nil, fmt.Errorf("cannot determine home directory; set %s and %s", EnvCellar, EnvCache)
		}
		if cfg.CellarDir == "" {
			cfg.CellarDir = filepath.Join(home, ".keg", "Cellar")
		}
		if cfg.CacheDir == "" {
			cfg.CacheDir = filepath.Join(home, ".keg", "cache")
		}
	}

	for _, dir := range []*string{&cfg.CellarDir, &cfg.CacheDir, &cfg.FormulaDir} {
		if *dir == "" {
			continue
		}
		abs, err := filepath.Abs(expandHome(*dir, home))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", *dir, err)
		}
		*dir = abs
	}

	return cfg, nil
}

// LoadFromEnvironment resolves the configuration for the running process
func LoadFromEnvironment(o Overrides) (*Config, error) {
	home, _ := os.UserHomeDir()
	return Load(os.Getenv, home, o)
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
