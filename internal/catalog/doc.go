// Package catalog provides the TMDB API client used to resolve and audit TV
// shows.
//
// It authenticates requests with an API key and exposes show detail (with
// external ids appended), season detail, TV search with an optional first-air
// year, IMDb cross-reference lookups, and a cheap existence check used to
// validate cached and manually supplied ids. Non-success responses map onto
// the package sentinels so callers can treat every failure uniformly as "no
// data". Options let tests supply custom HTTP clients.
package catalog
