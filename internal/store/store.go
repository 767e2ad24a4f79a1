// Package store defines the content store contract and the
// normalization rules shared by its two backends.
//
// The store owns the canonical Album, Release, Settings,
// AdminCredential and StatCounter collections. Every read re-applies
// normalization so that legacy or hand-edited data self-heals: entries
// missing required fields are silently dropped, never surfaced as
// errors. Collection writes are whole-collection replaces; callers
// read-modify-write the full set. Two concurrent writers can race and
// the second full replace wins; the backends make no attempt to
// serialize logical operations, only to keep individual writes atomic.
package store

import (
	"strings"

	"github.com/fragmentado/catalog/internal/entities"
)

// Store is the content store contract. Both the flat-file snapshot
// backend and the sqlite multi-collection backend satisfy it with
// identical normalization semantics.
type Store interface {
	Albums() ([]entities.Album, error)
	SetAlbums(albums []entities.Album) ([]entities.Album, error)

	Releases() ([]entities.Release, error)
	SetReleases(releases []entities.Release) ([]entities.Release, error)

	Settings() (entities.Settings, error)
	SetSettings(settings entities.Settings) (entities.Settings, error)

	// Admin returns nil when no administrator has been bootstrapped.
	// SetAdmin(nil) removes the credential.
	Admin() (*entities.AdminCredential, error)
	SetAdmin(admin *entities.AdminCredential) (*entities.AdminCredential, error)

	Stats() (map[string]int64, error)
	SetStats(stats map[string]int64) (map[string]int64, error)
	IncrementStat(key string) (int64, error)

	Close() error
}

// RemoveAlbum deletes a single album through the whole-collection
// replace. An album still referenced by releases is rejected rather
// than orphaning them; use SetAlbums directly when reassignment to
// the first remaining album is the desired behavior.
func RemoveAlbum(s Store, id string) error {
	id = strings.TrimSpace(strings.ToLower(id))
	albums, err := s.Albums()
	if err != nil {
		return err
	}

	remaining := make([]entities.Album, 0, len(albums))
	found := false
	for _, album := range albums {
		if album.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, album)
	}
	if !found {
		return ErrNotFound
	}

	releases, err := s.Releases()
	if err != nil {
		return err
	}
	for _, release := range releases {
		if release.AlbumID == id {
			return &ConflictError{Entity: "album", Field: "id", Value: id}
		}
	}

	_, err = s.SetAlbums(remaining)
	return err
}
