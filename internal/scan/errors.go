package scan

import "errors"

var (
	// ErrInvalidOverride is returned when a manual override value is not an
	// integer or TMDB does not know the id. Nothing is mutated.
	ErrInvalidOverride = errors.New("invalid override")
	// ErrNotRunning is returned when an operation needs an active scan.
	ErrNotRunning = errors.New("no scan running")
	// ErrScanActive is returned when starting a scan while one is active.
	ErrScanActive = errors.New("scan already active")
	// ErrFullScanRequired gates incremental and refresh scans.
	ErrFullScanRequired = errors.New("a full scan must complete first")
	// ErrUnresolved is returned by RefreshShow when no catalog id was found.
	ErrUnresolved = errors.New("catalog mapping unresolved")
)
