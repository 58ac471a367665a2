// Package identity maps a local library show onto a TMDB show id.
//
// Resolver walks a fixed priority chain and stops at the first strategy that
// yields an id: a pinned manual override, a tmdb:// hint on the local record,
// an imdb:// hint cross-referenced through TMDB's find endpoint, the
// previously cached id (re-validated live), and finally fuzzy title search.
// Each outcome is tagged with the Source that produced it.
//
// Score is the search ranking heuristic, kept free of I/O so it can be
// exercised directly against literal candidates.
package identity
