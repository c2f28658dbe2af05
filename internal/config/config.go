package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the daemon settings. Resolution order is flags over
// environment over config file over defaults; Load covers the last three,
// the flag layer is applied by the caller.
type Config struct {
	Port        int
	IdleAfter   time.Duration
	SweepEvery  time.Duration
	DataDir     string
	CaptureText bool
}

const (
	defaultConfigPath  = "~/.config/tabruhe/config.toml"
	defaultDataDir     = "~/.local/share/tabruhe"
	defaultPort        = 19292
	defaultIdleMinutes = 30
	defaultSweepMin    = 1
)

// Load reads the config file at path (the default location when empty) and
// applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:       defaultPort,
		IdleAfter:  defaultIdleMinutes * time.Minute,
		SweepEvery: defaultSweepMin * time.Minute,
		DataDir:    mustExpand(defaultDataDir),
	}

	bytes, err := os.ReadFile(resolved)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		var raw struct {
			Port         int    `toml:"port"`
			IdleMinutes  int    `toml:"idle_minutes"`
			SweepMinutes int    `toml:"sweep_minutes"`
			DataDir      string `toml:"data_dir"`
			CaptureText  bool   `toml:"capture_text"`
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if raw.Port > 0 {
			cfg.Port = raw.Port
		}
		if raw.IdleMinutes > 0 {
			cfg.IdleAfter = time.Duration(raw.IdleMinutes) * time.Minute
		}
		if raw.SweepMinutes > 0 {
			cfg.SweepEvery = time.Duration(raw.SweepMinutes) * time.Minute
		}
		if dir := strings.TrimSpace(raw.DataDir); dir != "" {
			cfg.DataDir = mustExpand(dir)
		}
		cfg.CaptureText = raw.CaptureText
	}

	if v := os.Getenv("TABRUHE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid TABRUHE_PORT %q", v)
		}
		cfg.Port = port
	}
	if v := os.Getenv("TABRUHE_IDLE_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid TABRUHE_IDLE_MINUTES %q", v)
		}
		cfg.IdleAfter = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}

// DBPath returns the sqlite file location under the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "tabruhe.db")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
