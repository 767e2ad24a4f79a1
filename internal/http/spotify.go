package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/sync"
)

// SpotifyController exposes the catalog sync engine to the admin UI:
// fetching importable tracks, running a bulk import, and resolving
// cross-platform links for a single URL.
type SpotifyController struct {
	Engine *sync.Engine
	Links  sync.LinkResolver
}

func NewSpotifyController(engine *sync.Engine, links sync.LinkResolver) *SpotifyController {
	return &SpotifyController{Engine: engine, Links: links}
}

// FetchSongs lists the artist's tracks that are not yet in the catalog.
func (ctrl *SpotifyController) FetchSongs(c *gin.Context) {
	result, err := ctrl.Engine.FetchCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkImportRequest struct {
	Songs           []sync.Candidate `json:"songs"`
	FallbackAlbumID string           `json:"fallbackAlbumId"`
}

// BulkImport imports the selected candidates and reports per-bucket
// accounting. A provider failure mid-batch still returns the partial
// result alongside the error status.
func (ctrl *SpotifyController) BulkImport(c *gin.Context) {
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Songs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "songs must not be empty"})
		return
	}

	result, err := ctrl.Engine.BulkImport(c.Request.Context(), req.Songs, strings.TrimSpace(req.FallbackAlbumID), nil)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TrackPreview resolves the preview audio URL for a Spotify track URL
// or URI. The preview URL may be empty when Spotify exposes none.
func (ctrl *SpotifyController) TrackPreview(c *gin.Context) {
	trackID := spotify.ParseTrackID(c.Query("url"))
	if trackID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not extract a track id from url"})
		return
	}

	track, err := ctrl.Engine.TrackPreview(c.Request.Context(), trackID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackId": trackID, "previewUrl": track.PreviewURL})
}

// SongLinks resolves cross-platform streaming links for one track URL.
func (ctrl *SpotifyController) SongLinks(c *gin.Context) {
	sourceURL := strings.TrimSpace(c.Query("url"))
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if ctrl.Links == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link resolution is not available"})
		return
	}

	links, err := ctrl.Links.Resolve(c.Request.Context(), sourceURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}
