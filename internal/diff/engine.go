package diff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Lunedor/plex-parity/internal/catalog"
	"github.com/Lunedor/plex-parity/internal/episode"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/seasoncache"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

// ErrNoCatalogData is returned when the show detail could not be loaded.
var ErrNoCatalogData = errors.New("no catalog data")

// Catalog is the subset of the TMDB client the engine needs.
type Catalog interface {
	seasoncache.SeasonFetcher
	ShowDetail(ctx context.Context, id int64) (*catalog.ShowDetail, error)
	ExternalIDs(ctx context.Context, id int64) (*catalog.ExternalIDs, error)
	PosterURL(path string) string
}

// Seasons serves compacted season episode lists.
type Seasons interface {
	Episodes(ctx context.Context, catalogID int64, season int, token string, fetcher seasoncache.SeasonFetcher) ([]episode.Aired, bool)
	Prune(catalogID int64, keepToken string) (int, error)
}

// Input is everything one evaluation needs.
type Input struct {
	CatalogID int64
	Source    string
	Local     library.Episodes
	Prior     showcache.Entry
	Today     time.Time
	DeepAudit bool
}

// Result is the evaluation outcome.
type Result struct {
	showcache.DiffResult
	Missing        []string
	NextAir        *episode.Upcoming
	ShortCircuited bool
	// SeasonsPulled lists the seasons requested from the cache, including
	// any that turned out to be unavailable.
	SeasonsPulled []int
}

// Engine evaluates shows against the catalog.
type Engine struct {
	catalog Catalog
	seasons Seasons
	logger  *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(cat Catalog, seasons Seasons, logger *slog.Logger) *Engine {
	return &Engine{
		catalog: cat,
		seasons: seasons,
		logger:  logging.NewComponentLogger(logger, "diff"),
	}
}

// ShortCircuit reports whether prior can be returned without catalog calls:
// a finished show, nothing visibly missing, both ids known, no pending rescan.
func ShortCircuit(prior showcache.Entry) bool {
	return prior.Terminal() && len(prior.Missing) == 0 && prior.FullyResolved() && !prior.ForceRescan
}

// Cached returns prior as a Result verbatim.
func Cached(prior showcache.Entry) Result {
	res := Result{
		DiffResult: showcache.DiffResult{
			Source:      prior.Source,
			SecondaryID: prior.SecondaryID,
			Status:      prior.Status,
			PosterURL:   prior.PosterURL,
			MissingRaw:  slices.Clone(prior.MissingRaw),
			Upcoming:    slices.Clone(prior.Upcoming),
		},
		Missing:        showcache.VisibleMissing(prior.MissingRaw, prior.Ignored, prior.IgnoreAll),
		ShortCircuited: true,
	}
	if prior.CatalogID != nil {
		res.CatalogID = *prior.CatalogID
	}
	if prior.NextAir != nil {
		next := *prior.NextAir
		res.NextAir = &next
	}
	return res
}

// Evaluate runs the diff for one resolved show.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Result, error) {
	if ShortCircuit(in.Prior) {
		return Cached(in.Prior), nil
	}

	logger := e.logger.With(logging.Int64(logging.FieldCatalogID, in.CatalogID))
	detail, err := e.catalog.ShowDetail(ctx, in.CatalogID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: show %d: %w", ErrNoCatalogData, in.CatalogID, err)
	}
	if detail == nil {
		return Result{}, fmt.Errorf("%w: show %d: empty detail", ErrNoCatalogData, in.CatalogID)
	}

	today := episode.DateOf(in.Today)
	local := in.Local

	// Sticky carry-forward: only local presence clears a raw missing code.
	var raw []string
	for _, code := range in.Prior.MissingRaw {
		season, number, ok := episode.ParseCode(code)
		if !ok || local.Has(season, number) {
			continue
		}
		raw = append(raw, code)
	}

	var fresh []episode.Upcoming
	if ref := detail.NextEpisodeToAir; ref != nil {
		if code, date, ok := refCode(ref); ok && date.After(today) {
			fresh = append(fresh, episode.Upcoming{Date: ref.AirDate, Code: code})
		}
	}
	if ref := detail.LastEpisodeToAir; ref != nil {
		if code, date, ok := refCode(ref); ok && !date.After(today) && !local.Has(ref.SeasonNumber, ref.EpisodeNumber.Value) {
			raw = append(raw, code)
		}
	}

	pulled := selectSeasons(detail, local, in.DeepAudit)
	token := seasoncache.Token(detail)
	var fetched []int
	for _, season := range pulled {
		aired, ok := e.seasons.Episodes(ctx, in.CatalogID, season, token, e.catalog)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if !ok {
			logger.Debug("season unavailable, keeping prior data", logging.Int("season", season))
			continue
		}
		fetched = append(fetched, season)
		for _, ep := range aired {
			date, ok := episode.ParseDate(ep.AirDate)
			if !ok {
				logger.Debug("skipping malformed air date",
					logging.Int("season", season),
					logging.Int("episode", ep.Episode),
					logging.String("air_date", ep.AirDate),
				)
				continue
			}
			code := episode.Code(season, ep.Episode)
			switch {
			case date.After(today):
				fresh = append(fresh, episode.Upcoming{Date: ep.AirDate, Code: code})
			case !local.Has(season, ep.Episode):
				raw = append(raw, code)
			}
		}
	}

	if len(fetched) > 0 {
		// Seasons stored under an older token are unreachable now.
		if _, err := e.seasons.Prune(in.CatalogID, token); err != nil {
			logger.Debug("season prune failed", logging.Error(err))
		}
	}

	upcoming := carryUpcoming(in.Prior.Upcoming, fresh, fetched, today)

	secondary := detail.IMDbID()
	if secondary == "" {
		ids, err := e.catalog.ExternalIDs(ctx, in.CatalogID)
		switch {
		case err == nil && ids != nil:
			secondary = ids.IMDbID
		case err != nil:
			logger.Debug("external ids lookup failed", logging.Error(err))
		}
	}
	if secondary == "" && in.Prior.CatalogID != nil && *in.Prior.CatalogID == in.CatalogID {
		secondary = in.Prior.SecondaryID
	}

	status := detail.Status
	if status == "" {
		status = "Unknown"
	}

	res := Result{
		DiffResult: showcache.DiffResult{
			CatalogID:   in.CatalogID,
			Source:      in.Source,
			SecondaryID: secondary,
			Status:      status,
			PosterURL:   e.catalog.PosterURL(detail.PosterPath),
			MissingRaw:  episode.SortCodes(raw),
			Upcoming:    episode.SortUpcoming(upcoming),
		},
		SeasonsPulled: pulled,
	}
	res.Missing = showcache.VisibleMissing(res.MissingRaw, in.Prior.Ignored, in.Prior.IgnoreAll)
	if len(res.Upcoming) > 0 {
		next := res.Upcoming[0]
		res.NextAir = &next
	}
	return res, nil
}

// selectSeasons returns the seasons to pull in ascending order. Season 0
// (specials) is never pulled.
func selectSeasons(detail *catalog.ShowDetail, local library.Episodes, deep bool) []int {
	if deep {
		highest := local.MaxSeason()
		var seasons []int
		for _, summary := range detail.Seasons {
			if summary.SeasonNumber < 1 || summary.SeasonNumber > highest+1 {
				continue
			}
			seasons = append(seasons, summary.SeasonNumber)
		}
		slices.Sort(seasons)
		return slices.Compact(seasons)
	}

	last := detail.LastEpisodeToAir
	if last == nil || last.SeasonNumber < 1 {
		return nil
	}
	number, ok := last.EpisodeNumber.Int()
	if !ok || number < 1 {
		return nil
	}
	if len(local[last.SeasonNumber]) >= number {
		return nil
	}
	return []int{last.SeasonNumber}
}

// carryUpcoming keeps prior upcoming items for seasons that were not fetched,
// unless they have aired or a fresh item now covers the same code.
func carryUpcoming(prior, fresh []episode.Upcoming, fetched []int, today time.Time) []episode.Upcoming {
	covered := make(map[string]struct{}, len(fresh))
	for _, item := range fresh {
		covered[item.Code] = struct{}{}
	}
	out := slices.Clone(fresh)
	for _, item := range prior {
		if _, ok := covered[item.Code]; ok {
			continue
		}
		season, ok := episode.SeasonOf(item.Code)
		if !ok || slices.Contains(fetched, season) {
			continue
		}
		date, ok := episode.ParseDate(item.Date)
		if !ok || !date.After(today) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func refCode(ref *catalog.EpisodeRef) (string, time.Time, bool) {
	number, ok := ref.EpisodeNumber.Int()
	if !ok || number < 1 || ref.SeasonNumber < 1 {
		return "", time.Time{}, false
	}
	date, ok := episode.ParseDate(ref.AirDate)
	if !ok {
		return "", time.Time{}, false
	}
	return episode.Code(ref.SeasonNumber, number), date, true
}
