package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	synchronousModes = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
	logFormats       = []string{"console", "json"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.LoginIntervalSeconds < 0 {
		return errors.New("server.login_interval_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.BusyTimeoutMS < 0 {
		return errors.New("storage.busy_timeout_ms must be zero or positive")
	}
	if !lo.Contains(synchronousModes, c.Storage.Synchronous) {
		return fmt.Errorf("storage.synchronous must be one of %s", strings.Join(synchronousModes, ", "))
	}
	if c.Storage.ReadOnly && c.Storage.Path == ":memory:" {
		return errors.New("storage.read_only requires a file-backed database")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.AdminEmail == "" || !strings.Contains(c.Auth.AdminEmail, "@") {
		return fmt.Errorf("auth.admin_email must be an email address, got %q", c.Auth.AdminEmail)
	}
	if c.Auth.SessionHours < 0 {
		return errors.New("auth.session_hours must be positive")
	}
	if c.Auth.SessionCacheMinutes < 0 {
		return errors.New("auth.session_cache_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !lo.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s", strings.Join(logFormats, ", "))
	}
	if !lo.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s", strings.Join(logLevels, ", "))
	}
	return nil
}
