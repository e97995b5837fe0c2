// Package unsplash implements the image search adapter used by the chat
// orchestrator's search_unsplash tool.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoResults indicates the search returned zero photos for the query.
var ErrNoResults = errors.New("unsplash search returned no results")

// Searcher resolves a text query to a single image URL.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Client implements Searcher against the Unsplash search API.
type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
}

// Config holds connection settings for the Unsplash client.
type Config struct {
	BaseURL   string
	AccessKey string
}

// NewClient creates an Unsplash search client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		accessKey: cfg.AccessKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Search issues one photo search and returns the first result's "regular"
// rendition URL. There is no fallback image and no retry: zero results, a
// malformed body, or a network failure all surface as errors.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s/search/photos?query=%s&client_id=%s",
		c.baseURL, url.QueryEscape(query), url.QueryEscape(c.accessKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	if len(parsed.Results) == 0 {
		return "", fmt.Errorf("%w: query %q", ErrNoResults, query)
	}

	imageURL := parsed.Results[0].URLs.Regular
	if imageURL == "" {
		return "", fmt.Errorf("unsplash result missing regular url for query %q", query)
	}
	return imageURL, nil
}
