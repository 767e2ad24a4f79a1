// Package sync pulls the full track catalog for the configured artist
// from the metadata provider and turns it into de-duplicated,
// album-resolved release candidates ready for the content store.
package sync

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/slug"
	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/store"
)

// safePageSizes are the page sizes tried against the provider, largest
// first. A size the provider rejects is retried at the same offset
// with the next smaller candidate; the first accepted size sticks for
// the rest of that listing.
var safePageSizes = []int{20, 10, 1}

// Provider is the paginated listing surface of the metadata provider.
// *spotify.Client satisfies it.
type Provider interface {
	ListArtistAlbums(ctx context.Context, artistID, market string, limit, offset int) (*spotify.AlbumPage, error)
	ListAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*spotify.TrackPage, error)
	GetTrack(ctx context.Context, trackID, market string) (*spotify.Track, error)
}

// Candidate is a provider track not yet accepted into the catalog.
type Candidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	TrackNumber int    `json:"trackNumber"`
	DiscNumber  int    `json:"discNumber"`
	DurationMS  int    `json:"durationMs"`
	SpotifyURL  string `json:"spotifyUrl"`
	PreviewURL  string `json:"previewUrl"`
	AlbumID     string `json:"albumId"`
	AlbumName   string `json:"albumName"`
	ReleaseDate string `json:"releaseDate"`
	Cover       string `json:"cover"`
}

// CatalogResult is the outcome of a full catalog fetch.
type CatalogResult struct {
	ArtistID    string      `json:"artistId"`
	Market      string      `json:"market"`
	TotalAlbums int         `json:"totalAlbums"`
	Candidates  []Candidate `json:"tracks"`
}

// Engine drives catalog synchronization against the content store.
type Engine struct {
	store    store.Store
	provider Provider
	links    LinkResolver
	cfg      spotify.Config
	log      logrus.FieldLogger
}

// NewEngine creates a sync engine. links may be nil, in which case
// imported releases carry only their Spotify link.
func NewEngine(s store.Store, provider Provider, links LinkResolver, cfg spotify.Config) *Engine {
	return &Engine{
		store:    s,
		provider: provider,
		links:    links,
		cfg:      cfg,
		log:      logrus.StandardLogger(),
	}
}

// SetLogger overrides the engine's logger.
func (e *Engine) SetLogger(log logrus.FieldLogger) {
	e.log = log
}

// sizesFrom returns the fallback candidates starting at the sticky
// active size.
func sizesFrom(active int) []int {
	for i, size := range safePageSizes {
		if size == active {
			return safePageSizes[i:]
		}
	}
	return safePageSizes
}

// fetchArtistAlbums pages through the artist's album listing for one
// market setting. A rate limit aborts the whole listing; only an
// invalid page size is retried, at the same offset, with the next
// smaller size.
func (e *Engine) fetchArtistAlbums(ctx context.Context, market string) ([]spotify.Album, error) {
	var albums []spotify.Album
	offset := 0
	active := safePageSizes[0]

	for {
		var page *spotify.AlbumPage
		succeeded := false
		for _, limit := range sizesFrom(active) {
			p, err := e.provider.ListArtistAlbums(ctx, e.cfg.ArtistID, market, limit, offset)
			if err == nil {
				page = p
				active = limit
				succeeded = true
				break
			}
			if errors.Is(err, spotify.ErrInvalidPageSize) {
				continue
			}
			return nil, err
		}
		if !succeeded {
			return nil, spotify.ErrInvalidPageSize
		}

		albums = append(albums, page.Items...)
		if len(page.Items) < active {
			return albums, nil
		}
		offset += active
	}
}

// fetchAlbumTracks pages through one album's tracks with the same
// fallback protocol, its own sticky size per listing.
func (e *Engine) fetchAlbumTracks(ctx context.Context, albumID string) ([]spotify.Track, error) {
	var tracks []spotify.Track
	offset := 0
	active := safePageSizes[0]

	for {
		var page *spotify.TrackPage
		succeeded := false
		for _, limit := range sizesFrom(active) {
			p, err := e.provider.ListAlbumTracks(ctx, albumID, limit, offset)
			if err == nil {
				page = p
				active = limit
				succeeded = true
				break
			}
			if errors.Is(err, spotify.ErrInvalidPageSize) {
				continue
			}
			return nil, err
		}
		if !succeeded {
			return nil, spotify.ErrInvalidPageSize
		}

		tracks = append(tracks, page.Items...)
		if len(page.Items) < active {
			return tracks, nil
		}
		offset += active
	}
}

// artistAlbums lists the artist's albums with the configured market
// and without one, then unions the two by album id. The provider may
// report different result sets depending on the region filter.
func (e *Engine) artistAlbums(ctx context.Context) ([]spotify.Album, error) {
	withMarket, err := e.fetchArtistAlbums(ctx, e.cfg.Market)
	if err != nil {
		return nil, err
	}
	withoutMarket, err := e.fetchArtistAlbums(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []spotify.Album
	for _, album := range append(withMarket, withoutMarket...) {
		if album.ID == "" || seen[album.ID] {
			continue
		}
		seen[album.ID] = true
		merged = append(merged, album)
	}
	return merged, nil
}

// FetchCatalog pulls the artist's complete track list and filters out
// everything the catalog already holds.
func (e *Engine) FetchCatalog(ctx context.Context) (*CatalogResult, error) {
	if !e.cfg.Configured() {
		return nil, spotify.ErrNotConfigured
	}

	albums, err := e.artistAlbums(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	seenTracks := make(map[string]bool)
	for _, album := range albums {
		tracks, err := e.fetchAlbumTracks(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		cover := ""
		if len(album.Images) > 0 {
			cover = album.Images[0].URL
		}
		for _, track := range tracks {
			if track.ID == "" || seenTracks[track.ID] {
				continue
			}
			seenTracks[track.ID] = true
			candidates = append(candidates, Candidate{
				ID:          track.ID,
				Title:       track.Name,
				TrackNumber: track.TrackNumber,
				DiscNumber:  track.DiscNumber,
				DurationMS:  track.DurationMS,
				SpotifyURL:  track.ExternalURLs.Spotify,
				PreviewURL:  track.PreviewURL,
				AlbumID:     album.ID,
				AlbumName:   album.Name,
				ReleaseDate: album.ReleaseDate,
				Cover:       cover,
			})
		}
	}

	releases, err := e.store.Releases()
	if err != nil {
		return nil, err
	}
	fresh := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if !AlreadyImported(candidate, releases) {
			fresh = append(fresh, candidate)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].ReleaseDate > fresh[j].ReleaseDate
	})

	e.log.WithFields(logrus.Fields{
		"albums":     len(albums),
		"candidates": len(fresh),
	}).Info("fetched spotify catalog")

	return &CatalogResult{
		ArtistID:    e.cfg.ArtistID,
		Market:      e.cfg.Market,
		TotalAlbums: len(albums),
		Candidates:  fresh,
	}, nil
}

// TrackPreview looks up a single track for its preview audio URL. A
// market-filtered lookup that fails is retried without the market
// filter; rate limiting aborts immediately.
func (e *Engine) TrackPreview(ctx context.Context, trackID string) (*spotify.Track, error) {
	track, err := e.provider.GetTrack(ctx, trackID, e.cfg.Market)
	if err == nil {
		return track, nil
	}
	var rateLimited *spotify.RateLimitedError
	if errors.As(err, &rateLimited) {
		return nil, err
	}
	if e.cfg.Market == "" {
		return nil, err
	}
	return e.provider.GetTrack(ctx, trackID, "")
}

// AlreadyImported reports whether the catalog already holds the
// candidate: either its track id matches an existing release's source
// track id, or its slugified title matches and the dates agree when
// the candidate has a resolvable date. A candidate with no resolvable
// date is a duplicate on title alone.
func AlreadyImported(candidate Candidate, releases []entities.Release) bool {
	trackID := strings.TrimSpace(candidate.ID)
	title := slug.Make(candidate.Title)
	date := slug.ComparableDate(slug.NormalizeReleaseDate(candidate.ReleaseDate))

	for _, release := range releases {
		if trackID != "" && release.SpotifyTrackID() == trackID {
			return true
		}
		if title == "" || slug.Make(release.Title) != title {
			continue
		}
		if date == "" || slug.ComparableDate(release.ReleaseDate) == date {
			return true
		}
	}
	return false
}

// ResolveAlbum maps a candidate to a catalog album: an exact slug
// match on the provider's album name wins, otherwise the operator's
// fallback album when it still exists. "" means no album resolved and
// the candidate must be skipped, never imported with a dangling album.
func ResolveAlbum(candidate Candidate, albums []entities.Album, fallbackID string) string {
	if albumSlug := slug.Make(candidate.AlbumName); albumSlug != "" {
		for _, album := range albums {
			if slug.Make(album.Title) == albumSlug {
				return album.ID
			}
		}
	}
	for _, album := range albums {
		if album.ID == fallbackID {
			return fallbackID
		}
	}
	return ""
}
