package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates TMDB could not be reached.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotFound indicates TMDB has no record for the requested id.
	ErrNotFound = errors.New("catalog record not found")
	// ErrUnauthorized indicates TMDB rejected the API key.
	ErrUnauthorized = errors.New("catalog rejected credentials")
)

// StatusError reports an unexpected non-success HTTP status.
type StatusError struct {
	Operation string
	Code      int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb %s returned %d", e.Operation, e.Code)
}
