package store

import (
	"strings"
	"time"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/slug"
	"github.com/fragmentado/catalog/internal/status"
)

// DefaultArtistName seeds the settings singleton before the admin has
// configured anything.
const DefaultArtistName = "FRAGMENTADO"

// NormalizeSettings trims the artist name and falls back to the
// default when it comes out empty.
func NormalizeSettings(settings entities.Settings) entities.Settings {
	name := strings.TrimSpace(settings.ArtistName)
	if name == "" {
		name = DefaultArtistName
	}
	return entities.Settings{Key: entities.SettingsKey, ArtistName: name}
}

// NormalizeAlbums applies the shared normalization rules and drops
// entries missing an id or title. The artist field is forced to the
// global artist name whenever it is blank.
func NormalizeAlbums(albums []entities.Album, settings entities.Settings) []entities.Album {
	artistName := settings.ArtistName
	if artistName == "" {
		artistName = DefaultArtistName
	}

	out := make([]entities.Album, 0, len(albums))
	for _, album := range albums {
		normalized := entities.Album{
			ID:     slug.NormalizeName(album.ID),
			Title:  strings.TrimSpace(album.Title),
			Artist: strings.TrimSpace(album.Artist),
			Year:   strings.TrimSpace(album.Year),
		}
		if normalized.Artist == "" {
			normalized.Artist = artistName
		}
		if normalized.ID == "" || normalized.Title == "" {
			continue
		}
		out = append(out, normalized)
	}
	return out
}

// AlbumConflicts rejects a normalized batch containing duplicate ids.
func AlbumConflicts(albums []entities.Album) error {
	ids := make(map[string]bool, len(albums))
	for _, album := range albums {
		if ids[album.ID] {
			return &ConflictError{Entity: "album", Field: "id", Value: album.ID}
		}
		ids[album.ID] = true
	}
	return nil
}

// NormalizeReleases applies the shared normalization rules, drops
// invalid entries and recomputes badges against now. A blank or
// dangling album reference is pointed at the first known album. Empty
// source track ids are stripped entirely so the partial uniqueness
// constraint never sees them.
func NormalizeReleases(releases []entities.Release, albums []entities.Album, settings entities.Settings, now time.Time) []entities.Release {
	artistName := settings.ArtistName
	if artistName == "" {
		artistName = DefaultArtistName
	}

	validAlbums := make(map[string]bool, len(albums))
	for _, album := range albums {
		validAlbums[album.ID] = true
	}
	defaultAlbumID := ""
	if len(albums) > 0 {
		defaultAlbumID = albums[0].ID
	}

	out := make([]entities.Release, 0, len(releases))
	for _, release := range releases {
		normalized := release
		normalized.ID = slug.NormalizeName(release.ID)
		normalized.Title = strings.TrimSpace(release.Title)
		normalized.Artist = strings.TrimSpace(release.Artist)
		if normalized.Artist == "" {
			normalized.Artist = artistName
		}
		normalized.Year = strings.TrimSpace(release.Year)
		normalized.ReleaseDate = strings.TrimSpace(release.ReleaseDate)

		normalized.AlbumID = strings.TrimSpace(strings.ToLower(release.AlbumID))
		if normalized.AlbumID == "" || !validAlbums[normalized.AlbumID] {
			normalized.AlbumID = defaultAlbumID
		}

		if trackID := strings.TrimSpace(release.SpotifyTrackID()); trackID == "" {
			normalized.SourceSpotifyTrackID = nil
		} else {
			normalized.SourceSpotifyTrackID = &trackID
		}

		if normalized.ID == "" || normalized.Title == "" || normalized.AlbumID == "" {
			continue
		}
		out = append(out, normalized)
	}

	return status.Apply(out, now)
}

// ReleaseConflicts validates a normalized batch ahead of a
// whole-collection replace: duplicate ids and duplicate non-empty
// source track ids reject the whole batch before anything is written.
func ReleaseConflicts(releases []entities.Release) error {
	ids := make(map[string]bool, len(releases))
	trackIDs := make(map[string]bool, len(releases))
	for _, release := range releases {
		if ids[release.ID] {
			return &ConflictError{Entity: "release", Field: "id", Value: release.ID}
		}
		ids[release.ID] = true

		if trackID := release.SpotifyTrackID(); trackID != "" {
			if trackIDs[trackID] {
				return &ConflictError{Entity: "release", Field: "sourceSpotifyTrackId", Value: trackID}
			}
			trackIDs[trackID] = true
		}
	}
	return nil
}

// StripDerived clears the fields that are recomputed on read so they
// are never written back to storage.
func StripDerived(releases []entities.Release) []entities.Release {
	out := make([]entities.Release, len(releases))
	for i, release := range releases {
		release.Badge = ""
		out[i] = release
	}
	return out
}

// ApplyArtistName overwrites the artist on every album and release;
// invoked by SetSettings so the "one global artist name" invariant is
// an explicit re-derivation step, not ambient mutation.
func ApplyArtistName(albums []entities.Album, releases []entities.Release, settings entities.Settings) ([]entities.Album, []entities.Release) {
	for i := range albums {
		albums[i].Artist = settings.ArtistName
	}
	for i := range releases {
		releases[i].Artist = settings.ArtistName
	}
	return albums, releases
}

// NormalizeStatKey trims a stat counter key; an empty key is not a
// counter.
func NormalizeStatKey(key string) string {
	return strings.TrimSpace(key)
}
