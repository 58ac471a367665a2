package identity

import (
	"context"
	"log/slog"

	"github.com/Lunedor/plex-parity/internal/catalog"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
)

// Source tags which strategy produced a resolution.
type Source string

const (
	SourceManual    Source = "manual"
	SourceLocalHint Source = "local-hint"
	SourceSecondary Source = "secondary"
	SourceCache     Source = "cache"
	SourceAuto      Source = "auto"
	SourceNone      Source = "none"
)

// Catalog is the subset of the TMDB client the resolver needs.
type Catalog interface {
	SearchShows(ctx context.Context, query string, year int) ([]catalog.SearchResult, error)
	FindByExternalID(ctx context.Context, imdbID string) ([]catalog.SearchResult, error)
	ShowExists(ctx context.Context, id int64) (bool, error)
}

// Prior carries the identity state already held in the show cache.
type Prior struct {
	ManualID *int64
	CachedID *int64
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	CatalogID int64
	Source    Source
}

// Resolved reports whether a catalog id was found.
func (r Resolution) Resolved() bool {
	return r.CatalogID > 0 && r.Source != SourceNone
}

// Resolver maps local shows to catalog ids.
type Resolver struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(cat Catalog, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: cat,
		logger:  logging.NewComponentLogger(logger, "identity"),
	}
}

// Resolve runs the priority chain for show. Catalog failures are treated as
// "no data" for the strategy in question; only context cancellation is
// returned as an error.
func (r *Resolver) Resolve(ctx context.Context, show library.Show, prior Prior) (Resolution, error) {
	logger := r.logger.With(logging.String(logging.FieldShowKey, show.Key))

	if prior.ManualID != nil && *prior.ManualID > 0 {
		return Resolution{CatalogID: *prior.ManualID, Source: SourceManual}, nil
	}

	if id, ok := show.TMDBHint(); ok {
		return Resolution{CatalogID: id, Source: SourceLocalHint}, nil
	}

	if imdbID := show.IMDbHint(); imdbID != "" {
		results, err := r.catalog.FindByExternalID(ctx, imdbID)
		if err := ctx.Err(); err != nil {
			return Resolution{Source: SourceNone}, err
		}
		if err != nil {
			logger.Debug("imdb cross-reference failed",
				logging.String("imdb_id", imdbID),
				logging.Error(err),
			)
		} else if len(results) > 0 && results[0].ID > 0 {
			return Resolution{CatalogID: results[0].ID, Source: SourceSecondary}, nil
		}
	}

	if prior.CachedID != nil && *prior.CachedID > 0 {
		exists, err := r.catalog.ShowExists(ctx, *prior.CachedID)
		if err := ctx.Err(); err != nil {
			return Resolution{Source: SourceNone}, err
		}
		if err == nil && exists {
			return Resolution{CatalogID: *prior.CachedID, Source: SourceCache}, nil
		}
		logger.Debug("cached catalog id rejected",
			logging.Int64(logging.FieldCatalogID, *prior.CachedID),
			logging.Bool("exists", exists),
			logging.Any("error", err),
		)
	}

	id, found, err := r.search(ctx, logger, show.Title, show.Year)
	if err != nil {
		return Resolution{Source: SourceNone}, err
	}
	if found {
		return Resolution{CatalogID: id, Source: SourceAuto}, nil
	}
	return Resolution{Source: SourceNone}, nil
}

func (r *Resolver) search(ctx context.Context, logger *slog.Logger, title string, year int) (int64, bool, error) {
	var (
		bestID    int64
		bestScore float64
		found     bool
	)
	for _, query := range SearchQueries(title) {
		for _, yearHint := range YearCandidates(year) {
			results, err := r.catalog.SearchShows(ctx, query, yearHint)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, false, ctxErr
			}
			if err != nil {
				logger.Debug("catalog search failed",
					logging.String("query", query),
					logging.Int("year", yearHint),
					logging.Error(err),
				)
				continue
			}
			for _, candidate := range results {
				if candidate.ID <= 0 {
					continue
				}
				score, ok := rank(title, year, candidate)
				if !ok {
					continue
				}
				if !found || score > bestScore {
					bestID, bestScore, found = candidate.ID, score, true
				}
			}
		}
	}
	if found {
		logger.Debug("auto search picked candidate",
			logging.Int64(logging.FieldCatalogID, bestID),
			logging.Float64("score", bestScore),
		)
	}
	return bestID, found, nil
}
