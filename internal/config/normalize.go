package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized on top of the config file.
const (
	EnvAddr       = "RECAPADMIN_ADDR"
	EnvDBPath     = "RECAPADMIN_DB"
	EnvAdminEmail = "RECAPADMIN_ADMIN_EMAIL"
	EnvLogLevel   = "RECAPADMIN_LOG_LEVEL"
	EnvLogFormat  = "RECAPADMIN_LOG_FORMAT"
	EnvCORS       = "RECAPADMIN_CORS"
)

func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvAddr); ok {
		c.Server.Addr = value
	}
	if value, ok := lookupEnv(EnvDBPath); ok {
		c.Storage.Path = value
	}
	if value, ok := lookupEnv(EnvAdminEmail); ok {
		c.Auth.AdminEmail = value
	}
	if value, ok := lookupEnv(EnvLogLevel); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupEnv(EnvLogFormat); ok {
		c.Logging.Format = value
	}
	if value, ok := lookupEnv(EnvCORS); ok {
		if enabled, err := strconv.ParseBool(value); err == nil {
			c.Server.CORS = enabled
		}
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeAuth()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
	if c.Storage.Path != ":memory:" {
		var err error
		if c.Storage.Path, err = expandPath(c.Storage.Path); err != nil {
			return fmt.Errorf("storage.path: %w", err)
		}
	}
	c.Storage.Synchronous = strings.ToUpper(strings.TrimSpace(c.Storage.Synchronous))
	if c.Storage.Synchronous == "" {
		c.Storage.Synchronous = defaultSynchronous
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func (c *Config) normalizeAuth() {
	c.Auth.AdminEmail = strings.ToLower(strings.TrimSpace(c.Auth.AdminEmail))
	if c.Auth.SessionHours == 0 {
		c.Auth.SessionHours = defaultSessionHours
	}
	if c.Auth.SessionCacheMinutes == 0 {
		c.Auth.SessionCacheMinutes = defaultSessionCacheMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
