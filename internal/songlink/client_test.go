package songlink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://open.spotify.com/track/t1", r.URL.Query().Get("url"))
		w.Write([]byte(`{
			"pageUrl": "https://song.link/x",
			"linksByPlatform": {
				"spotify": {"url": "https://open.spotify.com/track/t1"},
				"appleMusic": {"url": "https://music.apple.com/track/t1"},
				"deezer": {"url": "https://deezer.com/track/t1"}
			}
		}`))
	}))
	t.Cleanup(server.Close)

	client := NewClientForURL(server.URL)
	links, err := client.Resolve(context.Background(), "https://open.spotify.com/track/t1")
	require.NoError(t, err)

	assert.Equal(t, "https://open.spotify.com/track/t1", links.Spotify)
	assert.Equal(t, "https://music.apple.com/track/t1", links.AppleMusic)
	assert.Equal(t, "https://deezer.com/track/t1", links.Deezer)
	assert.Empty(t, links.AmazonMusic)
}

func TestResolve_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClientForURL(server.URL)
	_, err := client.Resolve(context.Background(), "https://open.spotify.com/track/t1")
	assert.Error(t, err)
}
