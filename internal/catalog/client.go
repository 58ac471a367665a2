package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	// DefaultImageBaseURL prefixes poster paths.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w342"
)

// Provider defines the TMDB operations consumed by the scan engine.
type Provider interface {
	ShowDetail(ctx context.Context, id int64) (*ShowDetail, error)
	SeasonDetail(ctx context.Context, id int64, season int) (*SeasonDetail, error)
	ExternalIDs(ctx context.Context, id int64) (*ExternalIDs, error)
	SearchShows(ctx context.Context, query string, year int) ([]SearchResult, error)
	FindByExternalID(ctx context.Context, imdbID string) ([]SearchResult, error)
	ShowExists(ctx context.Context, id int64) (bool, error)
	PosterURL(path string) string
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	language     string
	httpClient   *http.Client
}

var _ Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithImageBaseURL overrides the poster URL prefix.
func WithImageBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: DefaultImageBaseURL,
		language:     strings.TrimSpace(language),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ShowDetail fetches a show with its external ids appended.
func (c *Client) ShowDetail(ctx context.Context, id int64) (*ShowDetail, error) {
	params := url.Values{}
	params.Set("append_to_response", "external_ids")
	var payload ShowDetail
	if err := c.get(ctx, "tv details", fmt.Sprintf("/tv/%d", id), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SeasonDetail fetches the episode list of one season.
func (c *Client) SeasonDetail(ctx context.Context, id int64, season int) (*SeasonDetail, error) {
	var payload SeasonDetail
	if err := c.get(ctx, "season fetch", fmt.Sprintf("/tv/%d/season/%d", id, season), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ExternalIDs fetches the cross-reference ids for a show.
func (c *Client) ExternalIDs(ctx context.Context, id int64) (*ExternalIDs, error) {
	var payload ExternalIDs
	if err := c.get(ctx, "external ids", fmt.Sprintf("/tv/%d/external_ids", id), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchShows performs a TMDB TV search, biased by first-air year when year > 0.
func (c *Client) SearchShows(ctx context.Context, query string, year int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}
	var payload searchResponse
	if err := c.get(ctx, "tv search", "/search/tv", params, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// FindByExternalID resolves an IMDb id to TMDB TV results.
func (c *Client) FindByExternalID(ctx context.Context, imdbID string) ([]SearchResult, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("external id must not be empty")
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	var payload findResponse
	if err := c.get(ctx, "find", "/find/"+url.PathEscape(imdbID), params, &payload); err != nil {
		return nil, err
	}
	return payload.TVResults, nil
}

// ShowExists reports whether TMDB returns a show for id. A missing record is
// not an error; transport and auth failures are.
func (c *Client) ShowExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	var payload struct {
		ID int64 `json:"id"`
	}
	err := c.get(ctx, "tv details", fmt.Sprintf("/tv/%d", id), nil, &payload)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// PosterURL expands a poster path into a full image URL.
func (c *Client) PosterURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.imageBaseURL + path
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("%w: tmdb %s (latency=%v): %w", ErrUnavailable, operation, latency, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("tmdb %s: %w", operation, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("tmdb %s: %w", operation, ErrUnauthorized)
	default:
		return &StatusError{Operation: operation, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tmdb %s response: %w", operation, err)
	}
	return nil
}
