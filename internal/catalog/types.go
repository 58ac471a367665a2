package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SearchResult is a single TMDB TV search match.
type SearchResult struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	Overview     string  `json:"overview"`
}

// Year returns the first-air year of the result, or zero when unknown.
func (r SearchResult) Year() int {
	if len(r.FirstAirDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(r.FirstAirDate[:4])
	if err != nil {
		return 0
	}
	return year
}

type searchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type findResponse struct {
	TVResults []SearchResult `json:"tv_results"`
}

// ExternalIDs carries the cross-reference identifiers TMDB knows for a show.
type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// EpisodeRef is the next/last episode pointer embedded in show detail.
type EpisodeRef struct {
	AirDate       string        `json:"air_date"`
	SeasonNumber  int           `json:"season_number"`
	EpisodeNumber EpisodeNumber `json:"episode_number"`
}

// SeasonSummary is the per-season entry in show detail.
type SeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// ShowDetail captures the TMDB TV detail payload.
type ShowDetail struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Status           string          `json:"status"`
	PosterPath       string          `json:"poster_path"`
	LastAirDate      string          `json:"last_air_date"`
	Seasons          []SeasonSummary `json:"seasons"`
	NextEpisodeToAir *EpisodeRef     `json:"next_episode_to_air"`
	LastEpisodeToAir *EpisodeRef     `json:"last_episode_to_air"`
	ExternalIDs      *ExternalIDs    `json:"external_ids"`
}

// IMDbID returns the appended IMDb id, if any.
func (d ShowDetail) IMDbID() string {
	if d.ExternalIDs == nil {
		return ""
	}
	return d.ExternalIDs.IMDbID
}

// Episode is a single season episode as returned by TMDB.
type Episode struct {
	EpisodeNumber EpisodeNumber `json:"episode_number"`
	SeasonNumber  int           `json:"season_number"`
	Name          string        `json:"name"`
	AirDate       string        `json:"air_date"`
}

// SeasonDetail captures the TMDB season payload.
type SeasonDetail struct {
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// EpisodeNumber tolerates malformed episode numbers so one bad record never
// fails decoding of the whole season.
type EpisodeNumber struct {
	Value int
	Valid bool
}

// Int returns the number and whether it was a valid integer.
func (n EpisodeNumber) Int() (int, bool) {
	return n.Value, n.Valid
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *EpisodeNumber) UnmarshalJSON(data []byte) error {
	*n = EpisodeNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return nil
	}
	value, err := strconv.Atoi(string(data))
	if err != nil {
		return nil
	}
	n.Value = value
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n EpisodeNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
