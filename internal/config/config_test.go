package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Listen != ":8080" {
		t.Fatalf("expected default listen, got %q", c.Listen)
	}
	if c.Auth.LinkTTLMinutes != 15 {
		t.Fatalf("expected default link ttl, got %d", c.Auth.LinkTTLMinutes)
	}
	if c.Reminder.WindowMinutes != 60 || c.Reminder.IntervalMinutes != 15 {
		t.Fatalf("unexpected reminder defaults: %+v", c.Reminder)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen: ":9999"
base_url: "https://habits.example.com"
auth:
  link_ttl_minutes: 5
reminder:
  enabled: true
  window_minutes: 30
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STREAKER_LISTEN", ":7777")
	t.Setenv("STREAKER_SIGNING_KEY", "from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Listen != ":7777" {
		t.Fatalf("expected env to win over file, got %q", c.Listen)
	}
	if c.BaseURL != "https://habits.example.com" {
		t.Fatalf("expected file base url, got %q", c.BaseURL)
	}
	if c.Auth.LinkTTLMinutes != 5 {
		t.Fatalf("expected file link ttl, got %d", c.Auth.LinkTTLMinutes)
	}
	if c.Auth.SigningKey != "from-env" {
		t.Fatalf("expected env signing key, got %q", c.Auth.SigningKey)
	}
	if !c.Reminder.Enabled || c.Reminder.WindowMinutes != 30 {
		t.Fatalf("unexpected reminder config: %+v", c.Reminder)
	}
}
