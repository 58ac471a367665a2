package config

const (
	defaultConfigPath    = "~/.config/plexparity/config.toml"
	defaultStateDir      = "~/.local/share/plexparity"
	defaultPlexURL       = "http://127.0.0.1:32400"
	defaultLibraryName   = "TV Shows"
	defaultTMDBBaseURL   = "https://api.themoviedb.org/3"
	defaultTMDBImageURL  = "https://image.tmdb.org/t/p/w342"
	defaultTMDBLanguage  = "en-US"
	defaultScanScope     = ScopeAllLibrary
	defaultBatchSize     = 3
	defaultScheduleMode  = "incremental"
	defaultLogFormat     = "auto"
	defaultLogLevel      = "info"
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
)

// Scan scopes.
const (
	ScopeAllLibrary    = "all_library"
	ScopeWatchlistOnly = "watchlist_only"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			URL:     defaultPlexURL,
			Library: defaultLibraryName,
		},
		TMDB: TMDB{
			BaseURL:      defaultTMDBBaseURL,
			ImageBaseURL: defaultTMDBImageURL,
			Language:     defaultTMDBLanguage,
		},
		Scan: Scan{
			Scope:        defaultScanScope,
			BatchSize:    defaultBatchSize,
			ScheduleMode: defaultScheduleMode,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
