package library

import "errors"

var (
	// ErrUnavailable indicates the Plex server could not be reached.
	ErrUnavailable = errors.New("library server unavailable")
	// ErrUnauthorized indicates Plex rejected the token.
	ErrUnauthorized = errors.New("library rejected token")
	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("library item not found")
	// ErrSectionNotFound indicates the named library section does not exist.
	ErrSectionNotFound = errors.New("library section not found")
)
