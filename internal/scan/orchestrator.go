package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lunedor/plex-parity/internal/diff"
	"github.com/Lunedor/plex-parity/internal/identity"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/reconcile"
	"github.com/Lunedor/plex-parity/internal/scanlog"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

// DefaultBatchSize is the number of shows evaluated per Step.
const DefaultBatchSize = 3

// Catalog is the TMDB surface used by resolution and diffing.
type Catalog interface {
	identity.Catalog
	diff.Catalog
}

// History records runs and the full-scan marker.
type History interface {
	RecordStart(ctx context.Context, run scanlog.Run) error
	RecordProgress(ctx context.Context, run scanlog.Run) error
	RecordFinish(ctx context.Context, run scanlog.Run) error
	FullScanCompleted(ctx context.Context) (bool, error)
	MarkFullScan(ctx context.Context, at time.Time) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBatchSize sets the number of shows per Step.
func WithBatchSize(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithLibraryName selects the library section to scan.
func WithLibraryName(name string) Option {
	return func(o *Orchestrator) {
		o.libraryName = name
	}
}

// WithWatchlistOnly restricts full and incremental scans to watchlisted shows.
func WithWatchlistOnly(enabled bool) Option {
	return func(o *Orchestrator) {
		o.watchlistOnly = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator is the scan state machine. It is not safe for concurrent use;
// a single host loop drives it.
type Orchestrator struct {
	lib      library.Provider
	catalog  Catalog
	shows    *showcache.Store
	history  History
	resolver *identity.Resolver
	engine   *diff.Engine
	logger   *slog.Logger
	sampler  *logging.ProgressSampler

	batchSize     int
	libraryName   string
	watchlistOnly bool
	now           func() time.Time

	state State
}

// New constructs an idle Orchestrator.
func New(lib library.Provider, cat Catalog, shows *showcache.Store, seasons diff.Seasons, history History, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lib:       lib,
		catalog:   cat,
		shows:     shows,
		history:   history,
		logger:    logging.NewNop(),
		sampler:   logging.NewProgressSampler(25),
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "scan")
	o.resolver = identity.NewResolver(cat, o.logger)
	o.engine = diff.NewEngine(cat, seasons, o.logger)
	o.state = State{
		Status:     StatusIdle,
		LastStatus: "Idle",
		Results:    resultsMap(shows.Results()),
	}
	return o
}

// State returns a snapshot of the current scan state.
func (o *Orchestrator) State() State {
	return o.state.clone()
}

// FullScanCompleted reports whether incremental and refresh scans are allowed.
func (o *Orchestrator) FullScanCompleted(ctx context.Context) (bool, error) {
	return o.history.FullScanCompleted(ctx)
}

// Start prepares a scan in mode. An empty selection leaves the orchestrator
// idle with an explanatory status line and no error.
func (o *Orchestrator) Start(ctx context.Context, mode Mode) error {
	if o.state.Status.Active() {
		return ErrScanActive
	}
	if mode != ModeFull {
		done, err := o.history.FullScanCompleted(ctx)
		if err != nil {
			return fmt.Errorf("check full scan marker: %w", err)
		}
		if !done || o.shows.Len() == 0 {
			return ErrFullScanRequired
		}
	}

	now := o.now()
	if changed := o.shows.AdvanceDueUpcoming(now); changed > 0 {
		o.persist("advance_upcoming")
	}

	keys, empty, err := o.selectKeys(ctx, mode)
	if err != nil {
		return err
	}

	previous := resultsMap(o.shows.Results())
	if len(keys) == 0 {
		o.state = State{Status: StatusIdle, Mode: mode, LastStatus: empty, Results: previous}
		o.logger.Info("scan selection empty",
			logging.String(logging.FieldScanMode, string(mode)),
			logging.String("reason", empty),
		)
		return nil
	}

	o.state = State{
		RunID:      uuid.NewString(),
		Mode:       mode,
		DeepAudit:  mode.Deep(),
		Keys:       keys,
		Total:      len(keys),
		Status:     StatusRunning,
		Results:    previous,
		LastStatus: startStatus(mode),
		StartedAt:  now,
	}
	o.sampler.Reset()
	if err := o.history.RecordStart(ctx, o.run()); err != nil {
		logging.WarnWithContext(o.logger, "scan history not recorded", "scan_history_failed",
			logging.String(logging.FieldRunID, o.state.RunID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will be missing from history"),
		)
	}
	o.logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.String(logging.FieldRunID, o.state.RunID),
		logging.String(logging.FieldScanMode, string(mode)),
		logging.Int("total", o.state.Total),
	)
	return nil
}

func (o *Orchestrator) selectKeys(ctx context.Context, mode Mode) ([]string, string, error) {
	if mode == ModeRefresh {
		var keys []string
		for _, key := range o.shows.Keys() {
			if entry, ok := o.shows.Get(key); ok && entry.Active() {
				keys = append(keys, key)
			}
		}
		return keys, statusNothingRefresh, nil
	}

	live, err := o.lib.ListShows(ctx, o.libraryName)
	if err != nil {
		return nil, "", fmt.Errorf("list library shows: %w", err)
	}

	// Reconcile against the whole library so leaving the watchlist never
	// discards a show's cached overrides.
	stats := reconcile.Reconcile(o.shows, live, o.logger)
	if stats.Removed > 0 || stats.Changed > 0 {
		o.persist("reconcile")
	}

	scoped := live
	if o.watchlistOnly {
		watchlist, err := o.lib.ListWatchlist(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load watchlist: %w", err)
		}
		scoped = library.FilterByWatchlist(live, watchlist)
		o.logger.Info("watchlist scope applied",
			logging.Int("matched", len(scoped)),
			logging.Int("watchlist", len(watchlist)),
		)
	}

	keys := make([]string, 0, len(scoped))
	for _, show := range scoped {
		if mode == ModeIncremental {
			if entry, ok := o.shows.Get(show.Key); ok && !entry.Active() {
				continue
			}
		}
		keys = append(keys, show.Key)
	}

	empty := statusNothingFull
	switch {
	case o.watchlistOnly && len(scoped) == 0:
		empty = statusNothingScope
	case mode == ModeIncremental:
		empty = statusNothingIncr
	}
	return keys, empty, nil
}

// Step processes up to one batch of shows. The returned error reports
// context cancellation or persistence failures; scan outcomes are reflected
// in State.
func (o *Orchestrator) Step(ctx context.Context) (State, error) {
	if !o.state.Status.Active() {
		return o.State(), ErrNotRunning
	}
	if o.state.CancelRequested {
		err := o.finish(ctx, StatusCancelled, statusCancelled, "")
		return o.State(), err
	}
	if o.state.Status == StatusPaused {
		return o.State(), nil
	}

	if err := o.lib.Ping(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.State(), ctxErr
		}
		message := statusConnectFailed + err.Error()
		finishErr := o.finish(ctx, StatusFailed, message, message)
		return o.State(), finishErr
	}

	ctx = logging.WithRunID(ctx, o.state.RunID)
	today := o.now()
	for processed := 0; processed < o.batchSize && o.state.Cursor < o.state.Total; processed++ {
		if o.state.CancelRequested || o.state.Status != StatusRunning {
			break
		}
		key := o.state.Keys[o.state.Cursor]
		if err := o.processKey(ctx, key, today); err != nil {
			return o.State(), err
		}
		o.state.Cursor++
	}

	switch {
	case o.state.CancelRequested:
		err := o.finish(ctx, StatusCancelled, statusCancelled, "")
		return o.State(), err
	case o.state.Cursor >= o.state.Total:
		err := o.finish(ctx, StatusCompleted, statusComplete, "")
		return o.State(), err
	}

	if o.sampler.ShouldLog(o.state.Cursor, o.state.Total) {
		o.logger.Info("scan progress",
			logging.String(logging.FieldRunID, o.state.RunID),
			logging.Int("processed", o.state.Cursor),
			logging.Int("total", o.state.Total),
			logging.Int("unmatched", len(o.state.Unmatched)),
		)
	}
	if err := o.history.RecordProgress(ctx, o.run()); err != nil {
		o.logger.Debug("scan progress not recorded", logging.Error(err))
	}
	return o.State(), nil
}

func (o *Orchestrator) processKey(ctx context.Context, key string, today time.Time) error {
	show, err := o.lib.FetchShow(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.state.Unmatched = append(o.state.Unmatched, fmt.Sprintf("key=%s (%v)", key, err))
		logging.WithContext(ctx, o.logger).Debug("show fetch failed", logging.String(logging.FieldShowKey, key), logging.Error(err))
		return nil
	}

	result, matched, err := o.evaluate(ctx, show, o.state.DeepAudit, today)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.state.Unmatched = append(o.state.Unmatched, fmt.Sprintf("key=%s (%v)", key, err))
		return nil
	}
	if matched {
		o.state.Results[key] = result
	} else {
		o.state.Unmatched = append(o.state.Unmatched, label(show))
	}
	o.state.LastStatus = "Checked: " + label(show)
	return nil
}

// Pause suspends a running scan after the current show.
func (o *Orchestrator) Pause() error {
	if o.state.Status != StatusRunning {
		return ErrNotRunning
	}
	o.state.Status = StatusPaused
	o.state.LastStatus = statusPaused
	o.persist("pause")
	if err := o.history.RecordProgress(context.Background(), o.run()); err != nil {
		o.logger.Debug("scan pause not recorded", logging.Error(err))
	}
	return nil
}

// Resume continues a paused scan from its saved cursor.
func (o *Orchestrator) Resume() error {
	if o.state.Status != StatusPaused {
		return ErrNotRunning
	}
	o.state.Status = StatusRunning
	o.state.LastStatus = statusResumed
	return nil
}

// Cancel requests cancellation. A running scan stops at the next show
// boundary; a paused scan is cancelled immediately.
func (o *Orchestrator) Cancel() error {
	if !o.state.Status.Active() {
		return ErrNotRunning
	}
	o.state.CancelRequested = true
	if o.state.Status == StatusPaused {
		return o.finish(context.Background(), StatusCancelled, statusCancelled, "")
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, status Status, message, errMsg string) error {
	o.state.Status = status
	o.state.LastStatus = message
	o.state.Err = errMsg
	o.state.CancelRequested = false

	saveErr := o.shows.Save()
	if saveErr != nil {
		logging.ErrorWithContext(o.logger, "show cache not persisted", "showcache_save_failed",
			logging.String(logging.FieldRunID, o.state.RunID),
			logging.Error(saveErr),
		)
	}

	// History writes must land even when the scan context was cancelled.
	hctx := context.WithoutCancel(ctx)
	if status == StatusCompleted && o.state.Mode == ModeFull {
		if err := o.history.MarkFullScan(hctx, o.now()); err != nil {
			logging.WarnWithContext(o.logger, "full scan marker not recorded", "scan_marker_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "incremental scans stay locked until the next full scan"),
			)
		}
	}
	finished := o.now()
	run := o.run()
	run.FinishedAt = &finished
	if err := o.history.RecordFinish(hctx, run); err != nil {
		o.logger.Debug("scan finish not recorded", logging.Error(err))
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "scan_"+string(status)),
		logging.String(logging.FieldRunID, o.state.RunID),
		logging.String(logging.FieldScanMode, string(o.state.Mode)),
		logging.Int("processed", o.state.Cursor),
		logging.Int("total", o.state.Total),
		logging.Int("unmatched", len(o.state.Unmatched)),
	}
	if status == StatusFailed {
		logging.ErrorWithContext(o.logger, "scan failed", "scan_failed",
			append(attrs, logging.String("error", errMsg), logging.String(logging.FieldErrorHint, "check the Plex server URL and token"))...)
	} else {
		o.logger.Info("scan finished", logging.Args(attrs...)...)
	}

	if saveErr != nil {
		return fmt.Errorf("persist show cache: %w", saveErr)
	}
	return nil
}

func (o *Orchestrator) persist(reason string) {
	if err := o.shows.Save(); err != nil {
		logging.WarnWithContext(o.logger, "show cache not persisted", "showcache_save_failed",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldImpact, "changes will be retried at the next state transition"),
		)
	}
}

func (o *Orchestrator) run() scanlog.Run {
	return scanlog.Run{
		ID:        o.state.RunID,
		Mode:      string(o.state.Mode),
		Status:    string(o.state.Status),
		StartedAt: o.state.StartedAt,
		Processed: o.state.Cursor,
		Total:     o.state.Total,
		Unmatched: len(o.state.Unmatched),
		Error:     o.state.Err,
	}
}

func startStatus(mode Mode) string {
	switch mode {
	case ModeIncremental:
		return statusStartIncremental
	case ModeRefresh:
		return statusStartRefresh
	default:
		return statusStartFull
	}
}

func label(show library.Show) string {
	if show.Year > 0 {
		return fmt.Sprintf("%s (%d)", show.Title, show.Year)
	}
	return show.Title
}

func resultsMap(results []showcache.Result) map[string]showcache.Result {
	out := make(map[string]showcache.Result, len(results))
	for _, res := range results {
		out[res.Key] = res
	}
	return out
}
