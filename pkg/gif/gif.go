// Package gif searches a Giphy-compatible API for GIFs.
package gif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/putto11262002/roomchat/pkg/cache"
)

const (
	DefaultBaseURL = "https://api.giphy.com/v1/gifs/search"
	DefaultLimit   = 20
	MaxLimit       = 50
)

var (
	ErrEmptyQuery = errors.New("empty query")
	ErrUpstream   = errors.New("gif provider error")
)

// GIF is a single search result.
type GIF struct {
	Title      string `json:"title"`
	PreviewURL string `json:"preview_url"`
	URL        string `json:"url"`
}

type SearchResult struct {
	Data []GIF `json:"data"`
}

type giphyResponse struct {
	Data []struct {
		Title  string `json:"title"`
		Images struct {
			FixedHeightSmall struct {
				URL string `json:"url"`
			} `json:"fixed_height_small"`
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"images"`
	} `json:"data"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   cache.Cache
	logger  *slog.Logger
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCache caches results per normalised query and limit.
func WithCache(cc cache.Cache) ClientOption {
	return func(c *Client) {
		c.cache = cc
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to limit GIFs matching query. A limit outside 1..MaxLimit
// falls back to DefaultLimit.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	key := "gif:" + strings.ToLower(query) + ":" + strconv.Itoa(limit)
	if c.cache != nil {
		var cached SearchResult
		ok, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.Warn("gif cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return &cached, nil
		}
	}

	result, err := c.fetch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, result); err != nil {
			c.logger.Warn("gif cache write failed", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, query string, limit int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var body giphyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	result := &SearchResult{Data: make([]GIF, 0, len(body.Data))}
	for _, d := range body.Data {
		result.Data = append(result.Data, GIF{
			Title:      d.Title,
			PreviewURL: d.Images.FixedHeightSmall.URL,
			URL:        d.Images.Original.URL,
		})
	}
	return result, nil
}
