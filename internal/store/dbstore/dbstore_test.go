package dbstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/status"
	"github.com/fragmentado/catalog/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	s.Now = func() time.Time {
		return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFreshDatabaseReadsEmpty(t *testing.T) {
	s := setupTestStore(t)

	albums, err := s.Albums()
	require.NoError(t, err)
	assert.Empty(t, albums)

	settings, err := s.Settings()
	require.NoError(t, err)
	assert.Equal(t, store.DefaultArtistName, settings.ArtistName)

	admin, err := s.Admin()
	require.NoError(t, err)
	assert.Nil(t, admin)
}

func TestSetAlbums_NormalizesAndPersists(t *testing.T) {
	s := setupTestStore(t)

	saved, err := s.SetAlbums([]entities.Album{
		{ID: "  Disco Uno ", Title: " Disco Uno "},
		{ID: "sin-titulo", Title: "  "},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "disco-uno", saved[0].ID)

	albums, err := s.Albums()
	require.NoError(t, err)
	assert.Equal(t, saved, albums)
}

func TestSetAlbums_DuplicateID(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.SetAlbums([]entities.Album{
		{ID: "disco", Title: "Disco"},
		{ID: "disco", Title: "Otro"},
	})

	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestSetAlbums_ReassignsOrphanedReleases(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.SetAlbums([]entities.Album{
		{ID: "primero", Title: "Primero"},
		{ID: "segundo", Title: "Segundo"},
	})
	require.NoError(t, err)
	_, err = s.SetReleases([]entities.Release{
		{ID: "cancion", Title: "Cancion", AlbumID: "segundo"},
	})
	require.NoError(t, err)

	_, err = s.SetAlbums([]entities.Album{{ID: "primero", Title: "Primero"}})
	require.NoError(t, err)

	releases, err := s.Releases()
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Equal(t, "primero", releases[0].AlbumID)
}

func TestSetReleases_DuplicateTrackID(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SetAlbums([]entities.Album{{ID: "disco", Title: "Disco"}})
	require.NoError(t, err)

	trackA := "spotify-1"
	trackB := "spotify-1"
	_, err = s.SetReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "disco", SourceSpotifyTrackID: &trackA},
		{ID: "dos", Title: "Dos", AlbumID: "disco", SourceSpotifyTrackID: &trackB},
	})

	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestSetReleases_ManualReleasesNeverCollide(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SetAlbums([]entities.Album{{ID: "disco", Title: "Disco"}})
	require.NoError(t, err)

	saved, err := s.SetReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "disco"},
		{ID: "dos", Title: "Dos", AlbumID: "disco"},
	})
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestLegacyEmptyTrackIDsScrubbed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	now := func() time.Time {
		return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	}

	s, err := New(path)
	require.NoError(t, err)
	s.Now = now
	_, err = s.SetAlbums([]entities.Album{{ID: "disco", Title: "Disco"}})
	require.NoError(t, err)

	// Simulate rows written by an older version that stored "" instead
	// of NULL, which would otherwise trip the unique index.
	sqlDB, err := s.SQLDB()
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO releases (id, album_id, title, source_spotify_track_id) VALUES ('uno', 'disco', 'Uno', '')`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()
	reopened.Now = now

	releases, err := reopened.Releases()
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Nil(t, releases[0].SourceSpotifyTrackID)
}

func TestReleases_BadgesRecomputedPerRead(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SetAlbums([]entities.Album{{ID: "disco", Title: "Disco"}})
	require.NoError(t, err)
	_, err = s.SetReleases([]entities.Release{
		{ID: "proximo", Title: "Proximo", AlbumID: "disco", ReleaseDate: "2024-08-01"},
	})
	require.NoError(t, err)

	releases, err := s.Releases()
	require.NoError(t, err)
	assert.Equal(t, status.BadgeUpcoming, releases[0].Badge)

	s.Now = func() time.Time {
		return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	}
	releases, err = s.Releases()
	require.NoError(t, err)
	assert.Equal(t, status.BadgeNew, releases[0].Badge)
}

func TestSetSettings_CascadesArtistName(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SetAlbums([]entities.Album{{ID: "disco", Title: "Disco"}})
	require.NoError(t, err)
	_, err = s.SetReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "disco"},
	})
	require.NoError(t, err)

	_, err = s.SetSettings(entities.Settings{ArtistName: "Nuevo Nombre"})
	require.NoError(t, err)

	albums, err := s.Albums()
	require.NoError(t, err)
	assert.Equal(t, "Nuevo Nombre", albums[0].Artist)

	releases, err := s.Releases()
	require.NoError(t, err)
	assert.Equal(t, "Nuevo Nombre", releases[0].Artist)
}

func TestAdminLifecycle(t *testing.T) {
	s := setupTestStore(t)

	saved, err := s.SetAdmin(&entities.AdminCredential{
		Username:     "admin",
		PasswordSalt: "salt",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.AdminKey, saved.Key)
	created := saved.CreatedAt
	assert.False(t, created.IsZero())

	// Updating keeps the original creation time.
	saved.Username = "renamed"
	updated, err := s.SetAdmin(saved)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username)
	assert.Equal(t, created, updated.CreatedAt)

	_, err = s.SetAdmin(nil)
	require.NoError(t, err)
	admin, err := s.Admin()
	require.NoError(t, err)
	assert.Nil(t, admin)
}

func TestIncrementStat(t *testing.T) {
	s := setupTestStore(t)

	value, err := s.IncrementStat("cancion:spotify")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = s.IncrementStat("cancion:spotify")
	require.NoError(t, err)
	assert.Equal(t, int64(2), value)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"cancion:spotify": 2}, stats)
}
