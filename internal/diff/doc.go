// Package diff computes which aired episodes a show is missing locally and
// which episodes air next.
//
// Engine.Evaluate combines the cached state with fresh TMDB data. Raw missing
// codes are sticky: a code leaves the list only once the episode shows up in
// the local library. Deep audits pull every season up to one past the
// highest local season; lightweight audits pull at most the season holding
// the last aired episode, and only when the local copy of that season looks
// short. Finished, fully resolved shows with nothing missing are returned
// from cache without any catalog call.
package diff
