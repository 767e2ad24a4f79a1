// Package filestore backs the content store with a single JSON
// document on disk. Writes go to a temp file in the same directory
// and are renamed into place, so a reader never observes a
// half-written snapshot. There is no isolation between the read and
// write phase of a logical operation beyond a process-local mutex.
package filestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/store"
)

// document is the persisted snapshot layout.
type document struct {
	Admin    *entities.AdminCredential `json:"admin"`
	Settings *entities.Settings        `json:"settings"`
	Albums   []entities.Album          `json:"albums"`
	Releases []entities.Release        `json:"releases"`
	Stats    map[string]int64          `json:"stats"`
}

// Store implements store.Store on top of a flat JSON snapshot.
type Store struct {
	path string
	mu   sync.Mutex

	// Now is the clock used for badge computation. Overridable in tests.
	Now func() time.Time
}

// New creates a file-backed store writing to path. The file is
// created lazily on first write.
func New(path string) *Store {
	return &Store{path: path, Now: time.Now}
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{Stats: map[string]int64{}}, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "read", Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &store.PersistenceError{Op: "decode", Err: err}
	}
	if doc.Stats == nil {
		doc.Stats = map[string]int64{}
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &store.PersistenceError{Op: "encode", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &store.PersistenceError{Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &store.PersistenceError{Op: "write", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &store.PersistenceError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &store.PersistenceError{Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &store.PersistenceError{Op: "rename", Err: err}
	}
	return nil
}

func (s *Store) settingsOf(doc *document) entities.Settings {
	if doc.Settings == nil {
		return entities.Settings{Key: entities.SettingsKey, ArtistName: store.DefaultArtistName}
	}
	return store.NormalizeSettings(*doc.Settings)
}

func (s *Store) Albums() ([]entities.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return store.NormalizeAlbums(doc.Albums, s.settingsOf(doc)), nil
}

func (s *Store) SetAlbums(albums []entities.Album) ([]entities.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	settings := s.settingsOf(doc)
	normalized := store.NormalizeAlbums(albums, settings)
	if err := store.AlbumConflicts(normalized); err != nil {
		return nil, err
	}
	doc.Albums = normalized

	// Reassign releases whose album vanished to the first remaining
	// album rather than leaving them dangling.
	if len(normalized) > 0 {
		valid := make(map[string]bool, len(normalized))
		for _, album := range normalized {
			valid[album.ID] = true
		}
		for i := range doc.Releases {
			if !valid[doc.Releases[i].AlbumID] {
				doc.Releases[i].AlbumID = normalized[0].ID
			}
		}
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *Store) Releases() ([]entities.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	settings := s.settingsOf(doc)
	albums := store.NormalizeAlbums(doc.Albums, settings)
	return store.NormalizeReleases(doc.Releases, albums, settings, s.Now()), nil
}

func (s *Store) SetReleases(releases []entities.Release) ([]entities.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	settings := s.settingsOf(doc)
	albums := store.NormalizeAlbums(doc.Albums, settings)
	normalized := store.NormalizeReleases(releases, albums, settings, s.Now())
	if err := store.ReleaseConflicts(normalized); err != nil {
		return nil, err
	}

	doc.Releases = store.StripDerived(normalized)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *Store) Settings() (entities.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return entities.Settings{}, err
	}
	return s.settingsOf(doc), nil
}

func (s *Store) SetSettings(settings entities.Settings) (entities.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return entities.Settings{}, err
	}

	next := store.NormalizeSettings(settings)
	doc.Settings = &next
	doc.Albums, doc.Releases = store.ApplyArtistName(doc.Albums, doc.Releases, next)

	if err := s.save(doc); err != nil {
		return entities.Settings{}, err
	}
	return next, nil
}

func (s *Store) Admin() (*entities.AdminCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if doc.Admin == nil {
		return nil, nil
	}
	admin := *doc.Admin
	return &admin, nil
}

func (s *Store) SetAdmin(admin *entities.AdminCredential) (*entities.AdminCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	if admin == nil {
		doc.Admin = nil
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return nil, nil
	}

	next := *admin
	next.Key = entities.AdminKey
	now := s.Now()
	if doc.Admin == nil || next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	doc.Admin = &next

	if err := s.save(doc); err != nil {
		return nil, err
	}
	saved := *doc.Admin
	return &saved, nil
}

func (s *Store) Stats() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(doc.Stats))
	for key, count := range doc.Stats {
		out[key] = count
	}
	return out, nil
}

func (s *Store) SetStats(stats map[string]int64) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	doc.Stats = make(map[string]int64, len(stats))
	for key, count := range stats {
		if key = store.NormalizeStatKey(key); key != "" {
			doc.Stats[key] = count
		}
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc.Stats, nil
}

// IncrementStat is a best-effort read-modify-write increment: the
// mutex serializes writers within this process, nothing serializes
// across processes.
func (s *Store) IncrementStat(key string) (int64, error) {
	key = store.NormalizeStatKey(key)
	if key == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	doc.Stats[key]++
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return doc.Stats[key], nil
}

func (s *Store) Close() error {
	return nil
}

var _ store.Store = (*Store)(nil)

// Path returns the snapshot location, mainly for logging.
func (s *Store) Path() string {
	return s.path
}
