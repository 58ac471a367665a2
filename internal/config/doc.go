// Package config loads, normalizes, and validates plex-parity configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for credentials (PLEX_URL,
// PLEX_TOKEN, TMDB_API_KEY). Structural problems such as an unknown scan
// scope or a malformed cron schedule fail Load; missing credentials are only
// reported by RequireCredentials so offline commands (results, ignores,
// history) keep working on a fresh install.
package config
