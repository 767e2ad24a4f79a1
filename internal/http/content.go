package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/slug"
	"github.com/fragmentado/catalog/internal/store"
)

// ContentController serves the catalog content endpoints, public and
// admin. All writes go through the store's whole-collection replace;
// handlers read, modify, and write the full set.
type ContentController struct {
	Store store.Store
}

func NewContentController(s store.Store) *ContentController {
	return &ContentController{Store: s}
}

// PublicReleases returns the whole catalog for the display page.
func (ctrl *ContentController) PublicReleases(c *gin.Context) {
	albums, err := ctrl.Store.Albums()
	if err != nil {
		respondError(c, err)
		return
	}
	releases, err := ctrl.Store.Releases()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums, "releases": releases})
}

type trackClickRequest struct {
	ReleaseID string `json:"releaseId"`
	Channel   string `json:"channel"`
}

// TrackClick lazily creates and bumps a per-channel click counter.
func (ctrl *ContentController) TrackClick(c *gin.Context) {
	var req trackClickRequest
	_ = c.ShouldBindJSON(&req)

	releaseID := strings.TrimSpace(req.ReleaseID)
	channel := strings.TrimSpace(req.Channel)
	if releaseID == "" || channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "releaseId and channel are required"})
		return
	}

	key := fmt.Sprintf("%s:%s", releaseID, channel)
	value, err := ctrl.Store.IncrementStat(key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "key": key, "value": value})
}

func (ctrl *ContentController) ListAlbums(c *gin.Context) {
	albums, err := ctrl.Store.Albums()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

type albumRequest struct {
	Album entities.Album `json:"album"`
}

func (ctrl *ContentController) CreateAlbum(c *gin.Context) {
	var req albumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	album := req.Album
	album.ID = slug.NormalizeName(album.ID)
	album.Title = strings.TrimSpace(album.Title)
	if album.ID == "" || album.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and title are required"})
		return
	}

	albums, err := ctrl.Store.Albums()
	if err != nil {
		respondError(c, err)
		return
	}
	for _, existing := range albums {
		if existing.ID == album.ID {
			c.JSON(http.StatusConflict, gin.H{"error": "an album with that id already exists"})
			return
		}
	}

	next, err := ctrl.Store.SetAlbums(append(albums, album))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": next})
}

func (ctrl *ContentController) UpdateAlbum(c *gin.Context) {
	var req albumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	album := req.Album
	album.ID = slug.NormalizeName(album.ID)
	album.Title = strings.TrimSpace(album.Title)
	if album.ID == "" || album.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and title are required"})
		return
	}

	albums, err := ctrl.Store.Albums()
	if err != nil {
		respondError(c, err)
		return
	}
	index := -1
	for i, existing := range albums {
		if existing.ID == album.ID {
			index = i
			break
		}
	}
	if index == -1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such album"})
		return
	}

	albums[index] = album
	next, err := ctrl.Store.SetAlbums(albums)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": next})
}

// DeleteAlbum removes an album, rejecting the delete while releases
// still reference it.
func (ctrl *ContentController) DeleteAlbum(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	if err := store.RemoveAlbum(ctrl.Store, id); err != nil {
		respondError(c, err)
		return
	}
	albums, err := ctrl.Store.Albums()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

func (ctrl *ContentController) ListReleases(c *gin.Context) {
	releases, err := ctrl.Store.Releases()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": releases})
}

type releaseRequest struct {
	Release entities.Release `json:"release"`
}

func validateRelease(release *entities.Release) string {
	release.ID = slug.NormalizeName(release.ID)
	release.AlbumID = slug.NormalizeName(release.AlbumID)
	release.Title = strings.TrimSpace(release.Title)
	if release.ID == "" || release.Title == "" || release.AlbumID == "" {
		return "id, albumId and title are required"
	}
	return ""
}

func (ctrl *ContentController) CreateRelease(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	release := req.Release
	if msg := validateRelease(&release); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	releases, err := ctrl.Store.Releases()
	if err != nil {
		respondError(c, err)
		return
	}
	for _, existing := range releases {
		if existing.ID == release.ID {
			c.JSON(http.StatusConflict, gin.H{"error": "a release with that id already exists"})
			return
		}
		if trackID := release.SpotifyTrackID(); trackID != "" && existing.SpotifyTrackID() == trackID {
			c.JSON(http.StatusConflict, gin.H{"error": "this track was already imported"})
			return
		}
	}
	if hasEquivalentRelease(release, releases) {
		c.JSON(http.StatusConflict, gin.H{"error": "a similar release already exists (title, date and album)"})
		return
	}

	next, err := ctrl.Store.SetReleases(append(releases, release))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": next})
}

// hasEquivalentRelease guards manual creates against near-duplicates:
// same album, same slugified title, and the same date when the
// incoming release has a comparable one.
func hasEquivalentRelease(release entities.Release, releases []entities.Release) bool {
	incomingDate := slug.ComparableDate(release.ReleaseDate)
	for _, existing := range releases {
		if existing.AlbumID != release.AlbumID {
			continue
		}
		if slug.Make(existing.Title) != slug.Make(release.Title) {
			continue
		}
		if incomingDate == "" || slug.ComparableDate(existing.ReleaseDate) == incomingDate {
			return true
		}
	}
	return false
}

func (ctrl *ContentController) UpdateRelease(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	release := req.Release
	if msg := validateRelease(&release); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	releases, err := ctrl.Store.Releases()
	if err != nil {
		respondError(c, err)
		return
	}
	index := -1
	for i, existing := range releases {
		if existing.ID == release.ID {
			index = i
			break
		}
	}
	if index == -1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such release"})
		return
	}

	releases[index] = release
	next, err := ctrl.Store.SetReleases(releases)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": next})
}

// DeleteReleases removes one release (?id=) or several (?ids=a,b,c).
// Stat counters for deleted releases are left in place on purpose.
func (ctrl *ContentController) DeleteReleases(c *gin.Context) {
	ids := make(map[string]bool)
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		ids[id] = true
	}
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = true
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or ids is required"})
		return
	}

	releases, err := ctrl.Store.Releases()
	if err != nil {
		respondError(c, err)
		return
	}
	remaining := make([]entities.Release, 0, len(releases))
	for _, release := range releases {
		if !ids[release.ID] {
			remaining = append(remaining, release)
		}
	}
	if len(remaining) == len(releases) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such release"})
		return
	}

	next, err := ctrl.Store.SetReleases(remaining)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": next})
}

func (ctrl *ContentController) GetSettings(c *gin.Context) {
	settings, err := ctrl.Store.Settings()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type settingsRequest struct {
	Settings entities.Settings `json:"settings"`
}

// UpdateSettings writes the singleton and cascades the artist name
// across the whole catalog.
func (ctrl *ContentController) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	next, err := ctrl.Store.SetSettings(req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": next})
}

func (ctrl *ContentController) GetStats(c *gin.Context) {
	stats, err := ctrl.Store.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
