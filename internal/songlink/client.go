// Package songlink resolves cross-platform streaming links for a
// track through the song.link API. Lookups are best effort: importers
// fall back to the bare Spotify URL when the service is unavailable.
package songlink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAPIURL  = "https://api.song.link/v1-alpha.1/links"
	defaultTimeout = 15 * time.Second
)

// Links holds the per-platform URLs song.link reports for a track.
// Absent platforms stay empty.
type Links struct {
	Spotify     string `json:"spotify"`
	AppleMusic  string `json:"appleMusic"`
	AmazonMusic string `json:"amazonMusic"`
	Deezer      string `json:"deezer"`
}

// Client queries the song.link links endpoint.
type Client struct {
	httpClient *http.Client
	apiURL     string
}

// NewClient creates a song.link client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     defaultAPIURL,
	}
}

// NewClientForURL points the client at a non-default endpoint, used by
// tests.
func NewClientForURL(apiURL string) *Client {
	c := NewClient()
	c.apiURL = apiURL
	return c
}

type linksResponse struct {
	PageURL         string `json:"pageUrl"`
	LinksByPlatform map[string]struct {
		URL string `json:"url"`
	} `json:"linksByPlatform"`
}

// Resolve returns the cross-platform links for the given source URL.
func (c *Client) Resolve(ctx context.Context, sourceURL string) (*Links, error) {
	endpoint := c.apiURL + "?url=" + url.QueryEscape(sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("song.link returned HTTP %d", resp.StatusCode)
	}

	var payload linksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	links := &Links{}
	if p, ok := payload.LinksByPlatform["spotify"]; ok {
		links.Spotify = p.URL
	}
	if p, ok := payload.LinksByPlatform["appleMusic"]; ok {
		links.AppleMusic = p.URL
	}
	if p, ok := payload.LinksByPlatform["amazonMusic"]; ok {
		links.AmazonMusic = p.URL
	}
	if p, ok := payload.LinksByPlatform["deezer"]; ok {
		links.Deezer = p.URL
	}
	return links, nil
}
