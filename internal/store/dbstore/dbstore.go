// Package dbstore backs the content store with sqlite through GORM,
// one collection per entity type. Uniqueness lives in the schema: a
// primary key on id, and a unique index on source_spotify_track_id
// that only bites for non-NULL values, which is how the partial
// uniqueness of the track id is expressed relationally. Schema races
// that slip past the in-memory batch validation surface as
// ConflictError instead of silent corruption.
package dbstore

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/store"
)

// Store implements store.Store on sqlite.
type Store struct {
	db        *gorm.DB
	setupOnce sync.Once
	setupErr  error

	// Now is the clock used for badge computation. Overridable in tests.
	Now func() time.Time
}

// New opens (or creates) the sqlite database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &store.PersistenceError{Op: "open", Err: err}
	}
	return &Store{db: db, Now: time.Now}, nil
}

// ensureSetup migrates the schema and scrubs legacy rows, once per
// process lifetime. Empty track ids stored by older versions are
// rewritten to NULL so the unique index never counts them as
// duplicates of each other.
func (s *Store) ensureSetup() error {
	s.setupOnce.Do(func() {
		err := s.db.AutoMigrate(
			&entities.AdminCredential{},
			&entities.Settings{},
			&entities.Album{},
			&entities.Release{},
			&entities.StatCounter{},
		)
		if err != nil {
			s.setupErr = &store.PersistenceError{Op: "migrate", Err: err}
			return
		}
		err = s.db.Model(&entities.Release{}).
			Where("source_spotify_track_id = ?", "").
			Update("source_spotify_track_id", nil).Error
		if err != nil {
			s.setupErr = &store.PersistenceError{Op: "migrate", Err: err}
		}
	})
	return s.setupErr
}

// translate maps sqlite uniqueness violations onto the store's
// conflict taxonomy; everything else is a persistence failure.
func translate(op, entity string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return &store.ConflictError{Entity: entity, Field: "unique", Value: sqliteErr.Error()}
	}
	return &store.PersistenceError{Op: op, Err: err}
}

func (s *Store) settings() (entities.Settings, error) {
	var settings entities.Settings
	err := s.db.Where("key = ?", entities.SettingsKey).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Settings{Key: entities.SettingsKey, ArtistName: store.DefaultArtistName}, nil
	}
	if err != nil {
		return entities.Settings{}, &store.PersistenceError{Op: "read settings", Err: err}
	}
	return store.NormalizeSettings(settings), nil
}

func (s *Store) rawAlbums() ([]entities.Album, error) {
	var albums []entities.Album
	if err := s.db.Find(&albums).Error; err != nil {
		return nil, &store.PersistenceError{Op: "read albums", Err: err}
	}
	return albums, nil
}

func (s *Store) Albums() ([]entities.Album, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	albums, err := s.rawAlbums()
	if err != nil {
		return nil, err
	}
	return store.NormalizeAlbums(albums, settings), nil
}

func (s *Store) SetAlbums(albums []entities.Album) ([]entities.Album, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}

	normalized := store.NormalizeAlbums(albums, settings)
	if err := store.AlbumConflicts(normalized); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.Album{}).Error; err != nil {
			return err
		}
		if len(normalized) > 0 {
			if err := tx.Create(&normalized).Error; err != nil {
				return err
			}
			validIDs := make([]string, 0, len(normalized))
			for _, album := range normalized {
				validIDs = append(validIDs, album.ID)
			}
			err := tx.Model(&entities.Release{}).
				Where("album_id NOT IN ?", validIDs).
				Update("album_id", normalized[0].ID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate("replace albums", "album", err)
	}
	return normalized, nil
}

func (s *Store) rawReleases() ([]entities.Release, error) {
	var releases []entities.Release
	if err := s.db.Find(&releases).Error; err != nil {
		return nil, &store.PersistenceError{Op: "read releases", Err: err}
	}
	return releases, nil
}

func (s *Store) Releases() ([]entities.Release, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	albums, err := s.rawAlbums()
	if err != nil {
		return nil, err
	}
	releases, err := s.rawReleases()
	if err != nil {
		return nil, err
	}
	return store.NormalizeReleases(releases, store.NormalizeAlbums(albums, settings), settings, s.Now()), nil
}

func (s *Store) SetReleases(releases []entities.Release) ([]entities.Release, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	albums, err := s.rawAlbums()
	if err != nil {
		return nil, err
	}

	normalized := store.NormalizeReleases(releases, store.NormalizeAlbums(albums, settings), settings, s.Now())
	if err := store.ReleaseConflicts(normalized); err != nil {
		return nil, err
	}

	rows := store.StripDerived(normalized)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.Release{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			return tx.Create(&rows).Error
		}
		return nil
	})
	if err != nil {
		return nil, translate("replace releases", "release", err)
	}
	return normalized, nil
}

func (s *Store) Settings() (entities.Settings, error) {
	if err := s.ensureSetup(); err != nil {
		return entities.Settings{}, err
	}
	return s.settings()
}

func (s *Store) SetSettings(settings entities.Settings) (entities.Settings, error) {
	if err := s.ensureSetup(); err != nil {
		return entities.Settings{}, err
	}
	next := store.NormalizeSettings(settings)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&next).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.Album{}).Where("1 = 1").Update("artist", next.ArtistName).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Release{}).Where("1 = 1").Update("artist", next.ArtistName).Error
	})
	if err != nil {
		return entities.Settings{}, &store.PersistenceError{Op: "write settings", Err: err}
	}
	return next, nil
}

func (s *Store) Admin() (*entities.AdminCredential, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	var admin entities.AdminCredential
	err := s.db.Where("key = ?", entities.AdminKey).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "read admin", Err: err}
	}
	return &admin, nil
}

func (s *Store) SetAdmin(admin *entities.AdminCredential) (*entities.AdminCredential, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}

	if admin == nil {
		err := s.db.Where("key = ?", entities.AdminKey).Delete(&entities.AdminCredential{}).Error
		if err != nil {
			return nil, &store.PersistenceError{Op: "delete admin", Err: err}
		}
		return nil, nil
	}

	existing, err := s.Admin()
	if err != nil {
		return nil, err
	}

	next := *admin
	next.Key = entities.AdminKey
	now := s.Now()
	if existing == nil || next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&next).Error; err != nil {
		return nil, translate("write admin", "admin", err)
	}
	return &next, nil
}

func (s *Store) Stats() (map[string]int64, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	var counters []entities.StatCounter
	if err := s.db.Find(&counters).Error; err != nil {
		return nil, &store.PersistenceError{Op: "read stats", Err: err}
	}
	out := make(map[string]int64, len(counters))
	for _, counter := range counters {
		out[counter.Key] = counter.Count
	}
	return out, nil
}

func (s *Store) SetStats(stats map[string]int64) (map[string]int64, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}

	rows := make([]entities.StatCounter, 0, len(stats))
	out := make(map[string]int64, len(stats))
	for key, count := range stats {
		if key = store.NormalizeStatKey(key); key == "" {
			continue
		}
		rows = append(rows, entities.StatCounter{Key: key, Count: count})
		out[key] = count
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.StatCounter{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			return tx.Create(&rows).Error
		}
		return nil
	})
	if err != nil {
		return nil, &store.PersistenceError{Op: "replace stats", Err: err}
	}
	return out, nil
}

// IncrementStat is atomic: the upsert bumps the counter in a single
// statement, so concurrent requests never lose increments.
func (s *Store) IncrementStat(key string) (int64, error) {
	if err := s.ensureSetup(); err != nil {
		return 0, err
	}
	key = store.NormalizeStatKey(key)
	if key == "" {
		return 0, nil
	}

	err := s.db.Exec(
		`INSERT INTO stats (key, count) VALUES (?, 1)
		 ON CONFLICT(key) DO UPDATE SET count = count + 1`,
		key,
	).Error
	if err != nil {
		return 0, &store.PersistenceError{Op: "increment stat", Err: err}
	}

	var counter entities.StatCounter
	if err := s.db.Where("key = ?", key).First(&counter).Error; err != nil {
		return 0, &store.PersistenceError{Op: "increment stat", Err: err}
	}
	return counter.Count, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying connection for collaborators that need
// raw access, e.g. the session store.
func (s *Store) SQLDB() (*sql.DB, error) {
	if err := s.ensureSetup(); err != nil {
		return nil, err
	}
	return s.db.DB()
}

var _ store.Store = (*Store)(nil)
