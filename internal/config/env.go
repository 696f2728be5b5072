package config

import (
	"os"
	"strconv"
)

// applyEnv layers STREAKER_* environment variables over file values.
// Environment wins.
func (c *Config) applyEnv() {
	setString(&c.Listen, "STREAKER_LISTEN")
	setString(&c.DatabasePath, "STREAKER_DB_PATH")
	setString(&c.BaseURL, "STREAKER_BASE_URL")

	setString(&c.Auth.SigningKey, "STREAKER_SIGNING_KEY")
	setString(&c.Auth.CookieName, "STREAKER_COOKIE_NAME")
	setInt(&c.Auth.LinkTTLMinutes, "STREAKER_LINK_TTL_MINUTES")
	setInt(&c.Auth.SessionTTLHours, "STREAKER_SESSION_TTL_HOURS")

	if v := os.Getenv("STREAKER_REMINDERS"); v != "" {
		c.Reminder.Enabled = v == "1" || v == "true" || v == "yes"
	}
	setInt(&c.Reminder.WindowMinutes, "STREAKER_REMINDER_WINDOW_MINUTES")
	setInt(&c.Reminder.IntervalMinutes, "STREAKER_REMINDER_INTERVAL_MINUTES")

	setString(&c.SMTP.Addr, "STREAKER_SMTP_ADDR")
	setString(&c.SMTP.From, "STREAKER_SMTP_FROM")
	setString(&c.SMTP.Username, "STREAKER_SMTP_USERNAME")
	setString(&c.SMTP.Password, "STREAKER_SMTP_PASSWORD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
