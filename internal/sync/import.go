package sync

import (
	"context"
	"strings"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/slug"
	"github.com/fragmentado/catalog/internal/songlink"
)

// LinkResolver resolves cross-platform streaming links for a track
// URL. *songlink.Client satisfies it.
type LinkResolver interface {
	Resolve(ctx context.Context, sourceURL string) (*songlink.Links, error)
}

// ProgressFunc receives (current, total) before each candidate is
// attempted.
type ProgressFunc func(current, total int)

// ImportResult accounts for a bulk import. The three buckets are
// disjoint; Imported lists provider track ids in import order.
type ImportResult struct {
	Imported         []string `json:"imported"`
	SkippedDuplicate int      `json:"skippedDuplicate"`
	SkippedNoAlbum   int      `json:"skippedNoAlbum"`
	Total            int      `json:"total"`
}

// Icon paths for auto-filled platform links, matching the presets the
// admin editor offers.
var platformIcons = map[string]string{
	"spotify":      "/icons/spotify.svg",
	"apple music":  "/icons/apple-music.svg",
	"amazon music": "/icons/amazon-music.svg",
	"deezer":       "/icons/deezer.svg",
}

// BulkImport imports the selected candidates one at a time. Imports
// are deliberately sequential: each candidate is re-checked against
// the working copy of the catalog so that earlier imports are visible
// to later duplicate and id checks. An unexpected store failure aborts
// the remaining batch but the releases imported so far stay imported.
func (e *Engine) BulkImport(ctx context.Context, candidates []Candidate, fallbackAlbumID string, progress ProgressFunc) (*ImportResult, error) {
	result := &ImportResult{Total: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	working, err := e.store.Releases()
	if err != nil {
		return result, err
	}
	albums, err := e.store.Albums()
	if err != nil {
		return result, err
	}

	for i, candidate := range candidates {
		if progress != nil {
			progress(i+1, len(candidates))
		}

		if AlreadyImported(candidate, working) {
			result.SkippedDuplicate++
			continue
		}
		albumID := ResolveAlbum(candidate, albums, fallbackAlbumID)
		if albumID == "" {
			result.SkippedNoAlbum++
			continue
		}

		release := e.buildRelease(ctx, candidate, albumID, working)
		next := make([]entities.Release, len(working), len(working)+1)
		copy(next, working)
		next = append(next, release)

		saved, err := e.store.SetReleases(next)
		if err != nil {
			return result, err
		}
		working = saved
		result.Imported = append(result.Imported, candidate.ID)

		e.log.WithField("release", release.ID).Info("imported spotify track")
	}

	return result, nil
}

// buildRelease turns an accepted candidate into a release. The id is
// the slugified title, disambiguated against every id the working set
// already holds.
func (e *Engine) buildRelease(ctx context.Context, candidate Candidate, albumID string, working []entities.Release) entities.Release {
	existingIDs := make(map[string]bool, len(working))
	for _, release := range working {
		existingIDs[release.ID] = true
	}
	releaseID := slug.EnsureUnique(slug.Make(candidate.Title), existingIDs, "")

	releaseDate := slug.NormalizeReleaseDate(candidate.ReleaseDate)
	year := ""
	if len(releaseDate) >= 4 {
		year = releaseDate[:4]
	}

	trackID := strings.TrimSpace(candidate.ID)
	release := entities.Release{
		ID:                     releaseID,
		AlbumID:                albumID,
		Title:                  strings.TrimSpace(candidate.Title),
		Year:                   year,
		ReleaseDate:            releaseDate,
		Cover:                  candidate.Cover,
		PreviewAudio:           candidate.PreviewURL,
		Platforms:              e.resolvePlatforms(ctx, candidate),
		SourceSpotifyAlbumID:   candidate.AlbumID,
		SourceSpotifyAlbumName: candidate.AlbumName,
	}
	if trackID != "" {
		release.SourceSpotifyTrackID = &trackID
	}
	return release
}

// resolvePlatforms fills in cross-platform links via song.link, best
// effort. Any failure degrades to the bare Spotify link.
func (e *Engine) resolvePlatforms(ctx context.Context, candidate Candidate) []entities.Platform {
	if candidate.SpotifyURL == "" {
		return nil
	}

	spotifyOnly := []entities.Platform{{
		Title: "spotify",
		Icon:  platformIcons["spotify"],
		Link:  candidate.SpotifyURL,
	}}

	if e.links == nil {
		return spotifyOnly
	}
	links, err := e.links.Resolve(ctx, candidate.SpotifyURL)
	if err != nil {
		e.log.WithError(err).Warn("cross-platform link lookup failed")
		return spotifyOnly
	}

	spotifyLink := links.Spotify
	if spotifyLink == "" {
		spotifyLink = candidate.SpotifyURL
	}
	resolved := []entities.Platform{
		{Title: "spotify", Icon: platformIcons["spotify"], Link: spotifyLink},
		{Title: "apple music", Icon: platformIcons["apple music"], Link: links.AppleMusic},
		{Title: "amazon music", Icon: platformIcons["amazon music"], Link: links.AmazonMusic},
		{Title: "deezer", Icon: platformIcons["deezer"], Link: links.Deezer},
	}

	platforms := resolved[:0]
	for _, platform := range resolved {
		if strings.TrimSpace(platform.Link) != "" {
			platforms = append(platforms, platform)
		}
	}
	if len(platforms) == 0 {
		return spotifyOnly
	}
	return platforms
}
