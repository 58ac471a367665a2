package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/logging"
)

const (
	// DefaultDiscoverURL hosts the account watchlist.
	DefaultDiscoverURL = "https://discover.provider.plex.tv"
	// DefaultClientID identifies this application to Plex.
	DefaultClientID = "plex-parity"

	defaultTimeout    = 30 * time.Second
	watchlistPageSize = 50
)

// Provider is the library surface consumed by the scan engine.
type Provider interface {
	Ping(ctx context.Context) error
	ListShows(ctx context.Context, libraryName string) ([]Show, error)
	FetchShow(ctx context.Context, key string) (Show, error)
	ListWatchlist(ctx context.Context) ([]WatchlistItem, error)
}

// Client implements Provider against the Plex HTTP API.
type Client struct {
	baseURL     string
	discoverURL string
	token       string
	clientID    string
	httpClient  *http.Client
	logger      *slog.Logger
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

// WithDiscoverURL overrides the watchlist host.
func WithDiscoverURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.discoverURL = strings.TrimRight(base, "/")
		}
	}
}

// WithClientID overrides the X-Plex-Client-Identifier header.
func WithClientID(id string) Option {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.clientID = id
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Plex client.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("plex base url required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("plex token required")
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		discoverURL: DefaultDiscoverURL,
		token:       token,
		clientID:    DefaultClientID,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "plex")
	return client, nil
}

// Ping checks that the server answers an authenticated identity request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, c.baseURL, "/identity", nil)
	return err
}

// ListShows returns every show in the named library section.
func (c *Client) ListShows(ctx context.Context, libraryName string) ([]Show, error) {
	sectionKey, err := c.sectionKey(ctx, libraryName)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("type", "2")
	query.Set("includeGuids", "1")
	container, err := c.getContainer(ctx, c.baseURL, "/library/sections/"+url.PathEscape(sectionKey)+"/all", query)
	if err != nil {
		return nil, err
	}
	shows := make([]Show, 0, len(container.Metadata))
	for _, item := range container.Metadata {
		if item.RatingKey == "" {
			continue
		}
		shows = append(shows, item.toShow())
	}
	c.logger.Debug("listed library shows",
		logging.String("library", libraryName),
		logging.Int("count", len(shows)),
	)
	return shows, nil
}

// FetchShow loads a show and its local season/episode enumeration.
func (c *Client) FetchShow(ctx context.Context, key string) (Show, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Show{}, fmt.Errorf("fetch show: %w", ErrNotFound)
	}
	query := url.Values{}
	query.Set("includeGuids", "1")
	container, err := c.getContainer(ctx, c.baseURL, "/library/metadata/"+url.PathEscape(key), query)
	if err != nil {
		return Show{}, fmt.Errorf("fetch show %s: %w", key, err)
	}
	if len(container.Metadata) == 0 {
		return Show{}, fmt.Errorf("fetch show %s: %w", key, ErrNotFound)
	}
	show := container.Metadata[0].toShow()
	if show.Key == "" {
		show.Key = key
	}

	leaves, err := c.getContainer(ctx, c.baseURL, "/library/metadata/"+url.PathEscape(key)+"/allLeaves", nil)
	if err != nil {
		return Show{}, fmt.Errorf("fetch episodes of %s: %w", key, err)
	}
	show.Episodes = make(Episodes)
	for _, ep := range leaves.Metadata {
		if ep.Type != "" && ep.Type != "episode" {
			continue
		}
		if ep.Index <= 0 {
			continue
		}
		if !slices.Contains(show.Episodes[ep.ParentIndex], ep.Index) {
			show.Episodes[ep.ParentIndex] = append(show.Episodes[ep.ParentIndex], ep.Index)
		}
	}
	for season := range show.Episodes {
		slices.Sort(show.Episodes[season])
	}
	return show, nil
}

// ListWatchlist returns every show on the account watchlist, following pagination.
func (c *Client) ListWatchlist(ctx context.Context) ([]WatchlistItem, error) {
	var items []WatchlistItem
	offset := 0
	for {
		query := url.Values{}
		query.Set("libtype", "show")
		query.Set("includeGuids", "1")
		query.Set("X-Plex-Container-Start", strconv.Itoa(offset))
		query.Set("X-Plex-Container-Size", strconv.Itoa(watchlistPageSize))
		container, err := c.getContainer(ctx, c.discoverURL, "/library/sections/watchlist/all", query)
		if err != nil {
			return nil, fmt.Errorf("load watchlist: %w", err)
		}
		for _, item := range container.Metadata {
			if item.Type != "" && item.Type != "show" {
				continue
			}
			items = append(items, WatchlistItem{
				Title: item.Title,
				Year:  item.Year,
				Guids: item.guidIDs(),
				GUID:  item.GUID,
			})
		}
		offset += len(container.Metadata)
		if len(container.Metadata) == 0 || offset >= container.TotalSize {
			break
		}
	}
	return items, nil
}

func (c *Client) sectionKey(ctx context.Context, libraryName string) (string, error) {
	container, err := c.getContainer(ctx, c.baseURL, "/library/sections", nil)
	if err != nil {
		return "", fmt.Errorf("list sections: %w", err)
	}
	want := strings.TrimSpace(libraryName)
	for _, dir := range container.Directory {
		if strings.EqualFold(strings.TrimSpace(dir.Title), want) {
			return dir.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSectionNotFound, want)
}

func (c *Client) getContainer(ctx context.Context, base, path string, query url.Values) (*mediaContainer, error) {
	body, err := c.doRequest(ctx, base, path, query)
	if err != nil {
		return nil, err
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse plex response: %w", err)
	}
	return &resp.MediaContainer, nil
}

func (c *Client) doRequest(ctx context.Context, base, path string, query url.Values) ([]byte, error) {
	reqURL := base + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", "plex-parity")

	c.logger.Debug("plex request", logging.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read plex response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("plex %s returned %d", path, resp.StatusCode)
	}
}
