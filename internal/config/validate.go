package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by RequireCredentials.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.Scope {
	case ScopeAllLibrary, ScopeWatchlistOnly:
	default:
		return fmt.Errorf("scan.scope must be %q or %q, got %q", ScopeAllLibrary, ScopeWatchlistOnly, c.Scan.Scope)
	}
	if c.Scan.BatchSize < 1 {
		return errors.New("scan.batch_size must be positive")
	}
	switch c.Scan.ScheduleMode {
	case "full", "incremental", "refresh":
	default:
		return fmt.Errorf("scan.schedule_mode must be full, incremental or refresh, got %q", c.Scan.ScheduleMode)
	}
	if c.Scan.Schedule != "" {
		if _, err := cron.ParseStandard(c.Scan.Schedule); err != nil {
			return fmt.Errorf("scan.schedule: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

// MissingCredentials lists the connection settings a scan needs but that are unset.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.Plex.URL == "" {
		missing = append(missing, "plex.url")
	}
	if c.Plex.Token == "" {
		missing = append(missing, "plex.token")
	}
	if c.TMDB.APIKey == "" {
		missing = append(missing, "tmdb.api_key")
	}
	if c.Plex.Library == "" {
		missing = append(missing, "plex.library")
	}
	return missing
}

// RequireCredentials reports every missing connection setting in one error.
func (c *Config) RequireCredentials() error {
	missing := c.MissingCredentials()
	if len(missing) == 0 {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("missing config values: %s. Set PLEX_TOKEN/TMDB_API_KEY env vars or edit %s (create with 'plexparity config init')",
		strings.Join(missing, ", "), defaultPath)
}
