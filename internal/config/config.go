package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig holds every tunable of the coordinator process. Values come
// from an optional YAML file (CONFIG_FILE) overlaid by environment
// variables; env always wins.
type AppConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	OpsListenAddr string `yaml:"ops_listen_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	// Rating policy applied at settlement. Draws are configurable because
	// product has not committed to a draw increment.
	RatingWinBonus  int `yaml:"rating_win_bonus"`
	RatingDrawBonus int `yaml:"rating_draw_bonus"`

	// Room snapshots expire after this long without a state change.
	SnapshotTTLSec int `yaml:"snapshot_ttl_sec"`

	// Write deadline applied to each peer send.
	SendTimeoutSec int `yaml:"send_timeout_sec"`
}

func (c *AppConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSec) * time.Second
}

func (c *AppConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8080",
		OpsListenAddr:   ":8081",
		RatingWinBonus:  10,
		RatingDrawBonus: 0,
		SnapshotTTLSec:  86400,
		SendTimeoutSec:  5,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("OPS_LISTEN_ADDR")); v != "" {
		cfg.OpsListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RATING_WIN_BONUS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RatingWinBonus = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATING_DRAW_BONUS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RatingDrawBonus = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEND_TIMEOUT")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendTimeoutSec = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}
