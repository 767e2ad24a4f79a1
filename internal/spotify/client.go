// Package spotify is a thin client for the Spotify Web API: token
// exchange plus the three catalog endpoints the sync engine consumes.
// Pagination strategy lives in the sync engine; this client only
// fetches single pages and classifies failures.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIBase  = "https://api.spotify.com/v1"

	defaultTimeout = 30 * time.Second

	// Refresh the cached token slightly before Spotify expires it.
	tokenExpiryMargin = 30 * time.Second
)

// Config carries the external artist identity the sync engine pulls.
type Config struct {
	ClientID     string
	ClientSecret string
	ArtistID     string
	Market       string
}

// Configured reports whether enough is present to talk to Spotify.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.ArtistID != ""
}

// Client interfaces with the Spotify Web API using the
// client-credentials flow.
type Client struct {
	httpClient *http.Client

	tokenURL string
	apiBase  string

	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Spotify API client.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		tokenURL:     defaultTokenURL,
		apiBase:      defaultAPIBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// NewClientForBase creates a client pointed at a non-default API base,
// used by tests with httptest servers.
func NewClientForBase(clientID, clientSecret, tokenURL, apiBase string) *Client {
	c := NewClient(clientID, clientSecret)
	c.tokenURL = tokenURL
	c.apiBase = apiBase
	return c
}

// Image is an album artwork variant.
type Image struct {
	URL string `json:"url"`
}

// ExternalURLs carries the public web links of an item.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Album is an album as listed for an artist.
type Album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ReleaseDate  string       `json:"release_date"`
	TotalTracks  int          `json:"total_tracks"`
	Images       []Image      `json:"images"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Track is a track as listed inside an album.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	TrackNumber  int          `json:"track_number"`
	DiscNumber   int          `json:"disc_number"`
	DurationMS   int          `json:"duration_ms"`
	PreviewURL   string       `json:"preview_url"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// AlbumPage is one page of an artist's album listing.
type AlbumPage struct {
	Items []Album `json:"items"`
	Total int     `json:"total"`
}

// TrackPage is one page of an album's track listing.
type TrackPage struct {
	Items []Track `json:"items"`
	Total int     `json:"total"`
}

type apiError struct {
	ErrorDescription string `json:"error_description"`
	ErrorField       any    `json:"error"`
}

// message digs the human-readable error out of the three shapes
// Spotify uses.
func (e apiError) message() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	switch v := e.ErrorField.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, exchanging credentials
// when none is held or the held one is about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrNotConfigured
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+encoded)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyFailure(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "empty access token"}
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.token, nil
}

// classifyFailure turns a non-success response into the package's
// error taxonomy. The caller must not have consumed the body.
func classifyFailure(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		rateErr := &RateLimitedError{}
		if hint := strings.TrimSpace(resp.Header.Get("Retry-After")); hint != "" {
			if seconds, err := strconv.Atoi(hint); err == nil {
				rateErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return rateErr
	}

	var payload apiError
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := payload.message()

	if strings.Contains(strings.ToLower(message), "invalid limit") {
		return ErrInvalidPageSize
	}
	return &UpstreamError{StatusCode: resp.StatusCode, Message: message}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.apiBase + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyFailure(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListArtistAlbums fetches one page of the artist's albums and
// singles. Passing market == "" lists without a region filter, which
// may surface different results.
func (c *Client) ListArtistAlbums(ctx context.Context, artistID, market string, limit, offset int) (*AlbumPage, error) {
	q := url.Values{}
	q.Set("include_groups", "album,single")
	if market != "" {
		q.Set("market", market)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page AlbumPage
	err := c.get(ctx, "/artists/"+url.PathEscape(artistID)+"/albums", q, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAlbumTracks fetches one page of an album's tracks.
func (c *Client) ListAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*TrackPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page TrackPage
	err := c.get(ctx, "/albums/"+url.PathEscape(albumID)+"/tracks", q, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTrack resolves a single track, market-filtered when market is
// non-empty.
func (c *Client) GetTrack(ctx context.Context, trackID, market string) (*Track, error) {
	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}

	var track Track
	err := c.get(ctx, "/tracks/"+url.PathEscape(trackID), q, &track)
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// ParseTrackID extracts the track id from a spotify:track: URI or an
// open.spotify.com track URL. Returns "" when the input carries no
// recognizable track id.
func ParseTrackID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(raw, "spotify:track:"); ok {
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "track" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return ""
}
