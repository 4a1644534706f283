package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// chatConfig is the terminal client's settings file.
type chatConfig struct {
	// Server is the base URL of a running server. Empty runs the
	// conversation in-process using the server's environment settings.
	Server      string `yaml:"server"`
	SessionID   string `yaml:"session_id"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Title       string `yaml:"title"`
	LogFile     string `yaml:"log_file"`
}

const (
	defaultTimeoutSecs = 30
	defaultTitle       = "📚 Course Advisor"
)

// loadChatConfig reads path. A missing file yields the defaults.
func loadChatConfig(path string) (*chatConfig, error) {
	var cfg chatConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *chatConfig) {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = defaultTimeoutSecs
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
}

func (c *chatConfig) timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
