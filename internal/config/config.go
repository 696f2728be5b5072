// Package config loads server settings from an optional YAML file with
// environment overrides on top. Everything has a workable default so the
// server starts with no configuration at all.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen       string `yaml:"listen" json:"listen"`
	DatabasePath string `yaml:"database_path" json:"database_path"`
	BaseURL      string `yaml:"base_url" json:"base_url"`

	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Reminder ReminderConfig `yaml:"reminder" json:"reminder"`
	SMTP     SMTPConfig     `yaml:"smtp" json:"smtp"`
}

type AuthConfig struct {
	// SigningKey signs magic-link tokens. Required outside of dev; when empty
	// a random per-process key is generated and links die on restart.
	SigningKey      string `yaml:"signing_key" json:"-"`
	CookieName      string `yaml:"cookie_name" json:"cookie_name"`
	LinkTTLMinutes  int    `yaml:"link_ttl_minutes" json:"link_ttl_minutes"`
	SessionTTLHours int    `yaml:"session_ttl_hours" json:"session_ttl_hours"`
}

type ReminderConfig struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	WindowMinutes   int  `yaml:"window_minutes" json:"window_minutes"`
	IntervalMinutes int  `yaml:"interval_minutes" json:"interval_minutes"`
}

type SMTPConfig struct {
	// Addr is host:port of the relay. Empty means mail is written to the log.
	Addr     string `yaml:"addr" json:"addr"`
	From     string `yaml:"from" json:"from"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/streaker.db"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "streaker_session"
	}
	if c.Auth.LinkTTLMinutes <= 0 {
		c.Auth.LinkTTLMinutes = 15
	}
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = 30 * 24
	}
	if c.Reminder.WindowMinutes <= 0 {
		c.Reminder.WindowMinutes = 60
	}
	if c.Reminder.IntervalMinutes <= 0 {
		c.Reminder.IntervalMinutes = 15
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "streaker@localhost"
	}
}

// Load reads the YAML file at path (missing file is not an error), applies
// environment overrides, then defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	c.applyEnv()
	c.ApplyDefaults()
	return &c, nil
}
