package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/Lunedor/plex-parity/internal/catalog"
	"github.com/Lunedor/plex-parity/internal/config"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/scan"
	"github.com/Lunedor/plex-parity/internal/scanlog"
	"github.com/Lunedor/plex-parity/internal/seasoncache"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = fmt.Errorf("--log-level: %w", err)
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) wantJSON() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// workspace bundles the opened state for one command. Writers hold the
// state directory lock until close.
type workspace struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *flock.Flock
	shows   *showcache.Store
	history *scanlog.Store
	seasons *seasoncache.Cache
	orch    *scan.Orchestrator
}

func (w *workspace) close() error {
	var errs []error
	if w.seasons != nil {
		errs = append(errs, w.seasons.Close())
	}
	if w.history != nil {
		errs = append(errs, w.history.Close())
	}
	if w.lock != nil {
		errs = append(errs, w.lock.Unlock())
	}
	return errors.Join(errs...)
}

// openShows loads the show cache without locking, for read-only commands.
func (c *commandContext) openShows() (*showcache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return showcache.Open(cfg.ShowCachePath(), c.loggerValue())
}

// withWriter locks the state directory and opens the show cache and history.
func (c *commandContext) withWriter(fn func(*workspace) error) error {
	ws, err := c.openWriter()
	if err != nil {
		return err
	}
	defer ws.close()
	return fn(ws)
}

// withEngine additionally opens the season cache, builds the Plex and TMDB
// clients and constructs the orchestrator.
func (c *commandContext) withEngine(fn func(*workspace) error) error {
	ws, err := c.openWriter()
	if err != nil {
		return err
	}
	defer ws.close()

	if err := ws.cfg.RequireCredentials(); err != nil {
		return err
	}
	seasons, err := seasoncache.Open(ws.cfg.SeasonCachePath(), ws.logger)
	if err != nil {
		return err
	}
	ws.seasons = seasons

	lib, err := library.New(ws.cfg.Plex.URL, ws.cfg.Plex.Token,
		library.WithClientID(ws.cfg.Plex.ClientID),
		library.WithLogger(ws.logger),
	)
	if err != nil {
		return fmt.Errorf("plex client: %w", err)
	}
	cat, err := catalog.New(ws.cfg.TMDB.APIKey, ws.cfg.TMDB.BaseURL, ws.cfg.TMDB.Language,
		catalog.WithImageBaseURL(ws.cfg.TMDB.ImageBaseURL),
	)
	if err != nil {
		return fmt.Errorf("tmdb client: %w", err)
	}

	ws.orch = scan.New(lib, cat, ws.shows, seasons, ws.history,
		scan.WithLogger(ws.logger),
		scan.WithBatchSize(ws.cfg.Scan.BatchSize),
		scan.WithLibraryName(ws.cfg.Plex.Library),
		scan.WithWatchlistOnly(ws.cfg.WatchlistOnly()),
	)
	return fn(ws)
}

func (c *commandContext) openWriter() (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	ws := &workspace{cfg: cfg, logger: c.loggerValue()}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another plexparity command is using %s", cfg.Paths.StateDir)
	}
	ws.lock = lock

	shows, err := showcache.Open(cfg.ShowCachePath(), ws.logger)
	if err != nil {
		_ = ws.close()
		return nil, err
	}
	ws.shows = shows

	history, err := scanlog.Open(cfg.HistoryPath())
	if err != nil {
		_ = ws.close()
		return nil, err
	}
	ws.history = history
	return ws, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
