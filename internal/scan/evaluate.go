package scan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/diff"
	"github.com/Lunedor/plex-parity/internal/identity"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

// evaluate resolves and diffs one show, writing the outcome to the cache.
// matched is false when the show stays unresolved or TMDB returned no data;
// the entry then only gets a scan stamp. Errors are unexpected per-show
// failures or context cancellation.
func (o *Orchestrator) evaluate(ctx context.Context, show library.Show, deep bool, today time.Time) (showcache.Result, bool, error) {
	entry := o.shows.GetOrInit(show)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldShowKey, show.Key))

	// Checked ahead of resolution, which may itself call the catalog.
	if diff.ShortCircuit(entry) {
		if err := o.shows.MarkScanned(show.Key, today); err != nil {
			return showcache.Result{}, false, err
		}
		logger.Debug("finished show served from cache")
		return o.result(show.Key), true, nil
	}

	prior := identity.Prior{ManualID: entry.ManualID, CachedID: entry.CatalogID}
	resolution, err := o.resolver.Resolve(ctx, show, prior)
	if err != nil {
		return showcache.Result{}, false, err
	}
	if !resolution.Resolved() {
		logger.Info("show unresolved",
			logging.String(logging.FieldEventType, "show_unmatched"),
			logging.String("title", show.Title),
			logging.Int("year", show.Year),
		)
		return showcache.Result{}, false, o.shows.MarkScanned(show.Key, today)
	}

	res, err := o.engine.Evaluate(ctx, diff.Input{
		CatalogID: resolution.CatalogID,
		Source:    string(resolution.Source),
		Local:     show.Episodes,
		Prior:     entry,
		Today:     today,
		DeepAudit: deep,
	})
	if errors.Is(err, diff.ErrNoCatalogData) {
		logger.Info("no catalog data for show",
			logging.String(logging.FieldEventType, "show_no_catalog_data"),
			logging.Int64(logging.FieldCatalogID, resolution.CatalogID),
			logging.Error(err),
		)
		return showcache.Result{}, false, o.shows.MarkScanned(show.Key, today)
	}
	if err != nil {
		return showcache.Result{}, false, err
	}

	if err := o.shows.ApplyDiffResult(show.Key, res.DiffResult, today); err != nil {
		return showcache.Result{}, false, err
	}
	logger.Debug("show evaluated",
		logging.Int64(logging.FieldCatalogID, res.CatalogID),
		logging.String("source", res.Source),
		logging.Int("missing", len(res.Missing)),
		logging.Int("upcoming", len(res.Upcoming)),
		logging.Any("seasons", res.SeasonsPulled),
	)
	return o.result(show.Key), true, nil
}

func (o *Orchestrator) result(key string) showcache.Result {
	entry, _ := o.shows.Get(key)
	return showcache.ResultFor(key, entry)
}

// RefreshShow re-evaluates one cached show with a deep audit and persists
// the cache. ErrUnresolved is returned, with the stale result, when the show
// still has no catalog mapping.
func (o *Orchestrator) RefreshShow(ctx context.Context, key string) (showcache.Result, error) {
	if _, ok := o.shows.Get(key); !ok {
		return showcache.Result{}, fmt.Errorf("refresh %s: %w", key, showcache.ErrUnknownShow)
	}
	show, err := o.lib.FetchShow(ctx, key)
	if err != nil {
		return showcache.Result{}, fmt.Errorf("load show from library: %w", err)
	}

	result, matched, err := o.evaluate(ctx, show, true, o.now())
	if err != nil {
		return showcache.Result{}, fmt.Errorf("evaluate %s: %w", label(show), err)
	}
	if err := o.shows.Save(); err != nil {
		return showcache.Result{}, fmt.Errorf("persist show cache: %w", err)
	}
	if !matched {
		return o.result(key), fmt.Errorf("%s: %w", label(show), ErrUnresolved)
	}
	if o.state.Results != nil {
		o.state.Results[key] = result
	}
	return result, nil
}

// SetOverride pins a manual TMDB id after validating it, then refreshes the
// show. Validation failures return ErrInvalidOverride and change nothing.
func (o *Orchestrator) SetOverride(ctx context.Context, key, raw string) (showcache.Result, error) {
	if _, ok := o.shows.Get(key); !ok {
		return showcache.Result{}, fmt.Errorf("override %s: %w", key, showcache.ErrUnknownShow)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return showcache.Result{}, fmt.Errorf("%w: TMDB ID must be a positive integer, got %q", ErrInvalidOverride, raw)
	}
	exists, err := o.catalog.ShowExists(ctx, id)
	if err != nil {
		return showcache.Result{}, fmt.Errorf("%w: TMDB ID %d is not reachable: %w", ErrInvalidOverride, id, err)
	}
	if !exists {
		return showcache.Result{}, fmt.Errorf("%w: TMDB ID %d does not exist", ErrInvalidOverride, id)
	}

	if err := o.shows.SetManualOverride(key, &id); err != nil {
		return showcache.Result{}, err
	}
	if err := o.shows.Save(); err != nil {
		return showcache.Result{}, fmt.Errorf("persist show cache: %w", err)
	}
	o.logger.Info("manual override set",
		logging.String(logging.FieldEventType, "override_set"),
		logging.String(logging.FieldShowKey, key),
		logging.Int64(logging.FieldCatalogID, id),
	)

	result, err := o.RefreshShow(ctx, key)
	if err != nil {
		return result, fmt.Errorf("override saved, but refresh failed: %w", err)
	}
	return result, nil
}

// ClearOverride removes a manual override and remaps the show.
func (o *Orchestrator) ClearOverride(ctx context.Context, key string) (showcache.Result, error) {
	if err := o.shows.SetManualOverride(key, nil); err != nil {
		return showcache.Result{}, fmt.Errorf("clear override %s: %w", key, err)
	}
	if err := o.shows.Save(); err != nil {
		return showcache.Result{}, fmt.Errorf("persist show cache: %w", err)
	}
	o.logger.Info("manual override cleared",
		logging.String(logging.FieldEventType, "override_cleared"),
		logging.String(logging.FieldShowKey, key),
	)

	result, err := o.RefreshShow(ctx, key)
	if err != nil {
		return result, fmt.Errorf("override cleared, but refresh failed: %w", err)
	}
	return result, nil
}
