package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmentado/catalog/internal/auth"
	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/store/filestore"
	"github.com/fragmentado/catalog/internal/sync"
)

type testServer struct {
	*httptest.Server
	store  *filestore.Store
	client *http.Client
}

func setupServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	s := filestore.New(filepath.Join(t.TempDir(), "content.json"))
	s.Now = func() time.Time {
		return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	}

	sessions, err := auth.NewSessionManager(nil, time.Hour, false)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Store:    s,
		Sessions: sessions,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server: server,
		store:  s,
		client: &http.Client{Jar: jar},
	}
}

// stubProvider serves a single known track and empty listings.
type stubProvider struct {
	track *spotify.Track
}

func (p *stubProvider) ListArtistAlbums(ctx context.Context, artistID, market string, limit, offset int) (*spotify.AlbumPage, error) {
	return &spotify.AlbumPage{}, nil
}

func (p *stubProvider) ListAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*spotify.TrackPage, error) {
	return &spotify.TrackPage{}, nil
}

func (p *stubProvider) GetTrack(ctx context.Context, trackID, market string) (*spotify.Track, error) {
	if p.track != nil && p.track.ID == trackID {
		return p.track, nil
	}
	return nil, &spotify.UpstreamError{StatusCode: 404, Message: "track not found"}
}

func setupServerWithEngine(t *testing.T, provider sync.Provider) *testServer {
	gin.SetMode(gin.TestMode)

	s := filestore.New(filepath.Join(t.TempDir(), "content.json"))
	sessions, err := auth.NewSessionManager(nil, time.Hour, false)
	require.NoError(t, err)

	engine := sync.NewEngine(s, provider, nil, spotify.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		ArtistID:     "artist-1",
		Market:       "MX",
	})

	router := NewRouter(RouterConfig{
		Store:    s,
		Sessions: sessions,
		Engine:   engine,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server: server,
		store:  s,
		client: &http.Client{Jar: jar},
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (ts *testServer) bootstrap(t *testing.T) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/admin/bootstrap", map[string]string{
		"username": "admin",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestPublicReleases(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, http.MethodGet, "/api/releases", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Albums   []json.RawMessage `json:"albums"`
		Releases []json.RawMessage `json:"releases"`
	}
	decode(t, resp, &payload)
	assert.Empty(t, payload.Albums)
	assert.Empty(t, payload.Releases)
}

func TestTrackClick(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, http.MethodPost, "/api/track-click", map[string]string{
		"releaseId": "cancion",
		"channel":   "spotify",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Key   string `json:"key"`
		Value int64  `json:"value"`
	}
	decode(t, resp, &payload)
	assert.Equal(t, "cancion:spotify", payload.Key)
	assert.Equal(t, int64(1), payload.Value)

	resp = ts.do(t, http.MethodPost, "/api/track-click", map[string]string{"releaseId": "cancion"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, http.MethodGet, "/api/admin/albums", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginFlow(t *testing.T) {
	ts := setupServer(t)

	// No admin exists yet.
	resp := ts.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "supersecret",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	ts.bootstrap(t)

	// Bootstrap opened a session already; log out to test login.
	resp = ts.do(t, http.MethodPost, "/api/admin/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "supersecret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/admin/albums", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestBootstrapOnlyOnce(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/bootstrap", map[string]string{
		"username": "other", "password": "supersecret",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestBootstrapValidation(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/bootstrap", map[string]string{
		"username": "ab", "password": "supersecret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/bootstrap", map[string]string{
		"username": "admin", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAlbumCRUD(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "Disco Uno", "title": "Disco Uno"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Duplicate id, normalized the same way.
	resp = ts.do(t, http.MethodPost, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "disco-uno", "title": "Otro"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "disco-uno", "title": "Renombrado"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "fantasma", "title": "Fantasma"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/admin/albums?id=disco-uno", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/admin/albums?id=disco-uno", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteAlbumWithReleasesRejected(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "disco", "title": "Disco"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/releases", map[string]any{
		"release": map[string]any{"id": "cancion", "title": "Cancion", "albumId": "disco"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/admin/albums?id=disco", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestReleaseCRUD(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "disco", "title": "Disco"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/releases", map[string]any{
		"release": map[string]any{"id": "cancion", "title": "Mi Canción", "albumId": "disco", "releaseDate": "2024-03-01"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Same title, album and date under a different id is equivalent.
	resp = ts.do(t, http.MethodPost, "/api/admin/releases", map[string]any{
		"release": map[string]any{"id": "otra-id", "title": "MI CANCION", "albumId": "disco", "releaseDate": "2024-03-01"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/releases", map[string]any{
		"release": map[string]any{"id": "fantasma", "title": "Fantasma", "albumId": "disco"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/admin/releases?id=cancion", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/admin/releases?ids=a,b", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSettingsCascade(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/albums", map[string]any{
		"album": map[string]string{"id": "disco", "title": "Disco"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/settings", map[string]any{
		"settings": map[string]string{"artistName": "Nuevo Nombre"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/admin/albums", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Albums []struct {
			Artist string `json:"artist"`
		} `json:"albums"`
	}
	decode(t, resp, &payload)
	require.Len(t, payload.Albums, 1)
	assert.Equal(t, "Nuevo Nombre", payload.Albums[0].Artist)
}

func TestUpdateAccount(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodPut, "/api/admin/account", map[string]string{
		"currentPassword": "wrong",
		"username":        "renamed",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/account", map[string]string{
		"currentPassword": "supersecret",
		"newPassword":     "otherpassword",
		"confirmPassword": "mismatch",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/admin/account", map[string]string{
		"currentPassword": "supersecret",
		"username":        "renamed",
		"newPassword":     "otherpassword",
		"confirmPassword": "otherpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "renamed", "password": "otherpassword",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestSpotifyEndpointsUnavailableWithoutEngine(t *testing.T) {
	ts := setupServer(t)
	ts.bootstrap(t)

	resp := ts.do(t, http.MethodGet, "/api/admin/spotify/songs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/spotify/preview?url=spotify:track:abc123", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestTrackPreviewEndpoint(t *testing.T) {
	ts := setupServerWithEngine(t, &stubProvider{track: &spotify.Track{
		ID:         "abc123",
		Name:       "Uno",
		PreviewURL: "https://p.scdn.co/mp3-preview/abc123",
	}})

	resp := ts.do(t, http.MethodGet, "/api/spotify/preview?url="+url.QueryEscape("https://open.spotify.com/track/abc123"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		TrackID    string `json:"trackId"`
		PreviewURL string `json:"previewUrl"`
	}
	decode(t, resp, &payload)
	assert.Equal(t, "abc123", payload.TrackID)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/abc123", payload.PreviewURL)

	resp = ts.do(t, http.MethodGet, "/api/spotify/preview?url=not-a-track-link", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/spotify/preview?url="+url.QueryEscape("spotify:track:missing"), nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp.Body.Close()
}

func TestSessionEndpoint(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, http.MethodGet, "/api/admin/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Authenticated bool `json:"authenticated"`
		AdminExists   bool `json:"adminExists"`
	}
	decode(t, resp, &payload)
	assert.False(t, payload.Authenticated)
	assert.False(t, payload.AdminExists)

	ts.bootstrap(t)

	resp = ts.do(t, http.MethodGet, "/api/admin/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	assert.True(t, payload.Authenticated)
	assert.True(t, payload.AdminExists)
}
