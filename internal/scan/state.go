package scan

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/showcache"
)

// Mode selects which shows a scan visits and how deeply.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
	ModeRefresh     Mode = "refresh-cached"
)

// ParseMode accepts a mode name; "refresh" is shorthand for refresh-cached.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeFull):
		return ModeFull, nil
	case string(ModeIncremental):
		return ModeIncremental, nil
	case "refresh", string(ModeRefresh), "refresh_cached":
		return ModeRefresh, nil
	default:
		return "", fmt.Errorf("unknown scan mode %q (want full, incremental or refresh)", value)
	}
}

// Deep reports whether the mode pulls every plausible season.
func (m Mode) Deep() bool {
	return m == ModeFull
}

// Status is the orchestrator lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Active reports whether a scan is loaded and not finished.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Terminal reports whether a scan has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Status lines reported through State.LastStatus.
const (
	statusStartFull        = "Starting full scan..."
	statusStartIncremental = "Starting incremental scan..."
	statusStartRefresh     = "Refreshing cached ongoing data..."
	statusPaused           = "Scan paused"
	statusResumed          = "Resuming scan..."
	statusComplete         = "Scan complete"
	statusCancelled        = "Scan cancelled"
	statusConnectFailed    = "Failed to connect during scan: "
	statusNothingFull      = "No shows available to scan."
	statusNothingScope     = "No shows found for current scan scope."
	statusNothingIncr      = "Incremental scan found nothing new or changed to process."
	statusNothingRefresh   = "Cached refresh found nothing active to process."
)

// State is a snapshot of the current scan.
type State struct {
	RunID           string                      `json:"run_id,omitempty"`
	Mode            Mode                        `json:"mode,omitempty"`
	DeepAudit       bool                        `json:"deep_audit"`
	Keys            []string                    `json:"keys,omitempty"`
	Cursor          int                         `json:"cursor"`
	Total           int                         `json:"total"`
	Status          Status                      `json:"status"`
	CancelRequested bool                        `json:"cancel_requested,omitempty"`
	Results         map[string]showcache.Result `json:"-"`
	Unmatched       []string                    `json:"unmatched,omitempty"`
	LastStatus      string                      `json:"last_status"`
	Err             string                      `json:"error,omitempty"`
	StartedAt       time.Time                   `json:"started_at,omitzero"`
}

// Remaining returns the keys not yet processed.
func (s State) Remaining() []string {
	if s.Cursor >= len(s.Keys) {
		return nil
	}
	return slices.Clone(s.Keys[s.Cursor:])
}

func (s State) clone() State {
	out := s
	out.Keys = slices.Clone(s.Keys)
	out.Unmatched = slices.Clone(s.Unmatched)
	out.Results = maps.Clone(s.Results)
	return out
}
