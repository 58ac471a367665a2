// Package scan drives library scans as a resumable state machine.
//
// An Orchestrator is stepped by its host: Start selects the shows for a mode
// (full, incremental or refresh-cached) and each Step evaluates a small batch
// of them, writing results through the show cache. Pause, Resume and Cancel
// are cooperative and take effect between shows. The show cache is persisted
// at state transitions rather than after every show.
//
// The package also hosts single-show refresh and the manual TMDB override
// flow, which share the per-show evaluation path with Step.
package scan
