package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fragmentado/catalog/internal/auth"
	"github.com/fragmentado/catalog/internal/store"
	"github.com/fragmentado/catalog/internal/sync"
)

// RouterConfig carries the router's dependencies. Engine and Links may
// be nil when the Spotify integration is not configured; the sync
// endpoints then respond 503.
type RouterConfig struct {
	Store          store.Store
	Sessions       *auth.SessionManager
	Engine         *sync.Engine
	Links          sync.LinkResolver
	CSRFSecret     []byte
	SecureCookies  bool
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before session loading so the session context is
	// not overwritten by CSRF's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.Sessions.SessionLoadSave())

	content := NewContentController(cfg.Store)
	account := NewAccountController(cfg.Store, cfg.Sessions)

	var spotifyCtrl *SpotifyController
	if cfg.Engine != nil {
		spotifyCtrl = NewSpotifyController(cfg.Engine, cfg.Links)
	}

	router.GET("/api/releases", content.PublicReleases)
	router.POST("/api/track-click", content.TrackClick)
	if spotifyCtrl != nil {
		router.GET("/api/spotify/preview", spotifyCtrl.TrackPreview)
	} else {
		router.GET("/api/spotify/preview", syncUnavailable)
	}

	router.POST("/api/admin/login", account.Login)
	router.POST("/api/admin/bootstrap", account.Bootstrap)
	router.GET("/api/admin/session", account.Session)

	admin := router.Group("/api/admin")
	admin.Use(cfg.Sessions.RequireAdmin())
	{
		admin.POST("/logout", account.Logout)
		admin.PUT("/account", account.UpdateAccount)

		admin.GET("/albums", content.ListAlbums)
		admin.POST("/albums", content.CreateAlbum)
		admin.PUT("/albums", content.UpdateAlbum)
		admin.DELETE("/albums", content.DeleteAlbum)

		admin.GET("/releases", content.ListReleases)
		admin.POST("/releases", content.CreateRelease)
		admin.PUT("/releases", content.UpdateRelease)
		admin.DELETE("/releases", content.DeleteReleases)

		admin.GET("/settings", content.GetSettings)
		admin.PUT("/settings", content.UpdateSettings)

		admin.GET("/stats", content.GetStats)

		if spotifyCtrl != nil {
			admin.GET("/spotify/songs", spotifyCtrl.FetchSongs)
			admin.POST("/spotify/import", spotifyCtrl.BulkImport)
			admin.GET("/spotify/song-links", spotifyCtrl.SongLinks)
			admin.GET("/spotify/preview", spotifyCtrl.TrackPreview)
		} else {
			admin.GET("/spotify/songs", syncUnavailable)
			admin.POST("/spotify/import", syncUnavailable)
			admin.GET("/spotify/song-links", syncUnavailable)
			admin.GET("/spotify/preview", syncUnavailable)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func syncUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "spotify integration is not configured"})
}
