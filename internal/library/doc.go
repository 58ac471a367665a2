// Package library talks to a Plex Media Server and the Plex discover service.
//
// Client lists the shows of a named TV library section, fetches one show
// with its full season/episode enumeration, reads the account watchlist, and
// pings the server so a scan can fail fast when Plex is unreachable. Shows
// carry their external guid hints (tmdb://, imdb://, tvdb://) which the
// identity resolver uses before falling back to catalog search.
//
// FilterByWatchlist narrows a show list to the titles present on the
// watchlist, matching on shared guids or on lowercased title and year.
package library
