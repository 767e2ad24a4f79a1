package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/status"
)

var testNow = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestNormalizeSettings(t *testing.T) {
	out := NormalizeSettings(entities.Settings{ArtistName: "  Mi Banda  "})
	assert.Equal(t, "Mi Banda", out.ArtistName)
	assert.Equal(t, entities.SettingsKey, out.Key)

	out = NormalizeSettings(entities.Settings{ArtistName: "   "})
	assert.Equal(t, DefaultArtistName, out.ArtistName)
}

func TestNormalizeAlbums_DropsInvalid(t *testing.T) {
	settings := entities.Settings{ArtistName: "Banda"}
	albums := NormalizeAlbums([]entities.Album{
		{ID: "  Disco Uno ", Title: " Disco Uno "},
		{ID: "", Title: "Sin ID"},
		{ID: "sin-titulo", Title: "   "},
	}, settings)

	require.Len(t, albums, 1)
	assert.Equal(t, "disco-uno", albums[0].ID)
	assert.Equal(t, "Disco Uno", albums[0].Title)
	assert.Equal(t, "Banda", albums[0].Artist)
}

func TestAlbumConflicts_DuplicateID(t *testing.T) {
	err := AlbumConflicts([]entities.Album{
		{ID: "disco", Title: "Disco"},
		{ID: "disco", Title: "Otro Disco"},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "disco", conflict.Value)
}

func TestNormalizeReleases_ReassignsDanglingAlbum(t *testing.T) {
	albums := []entities.Album{{ID: "primero", Title: "Primero"}}
	releases := NormalizeReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "borrado"},
		{ID: "dos", Title: "Dos", AlbumID: ""},
	}, albums, entities.Settings{ArtistName: "Banda"}, testNow)

	require.Len(t, releases, 2)
	assert.Equal(t, "primero", releases[0].AlbumID)
	assert.Equal(t, "primero", releases[1].AlbumID)
}

func TestNormalizeReleases_NoAlbumsDropsEverything(t *testing.T) {
	releases := NormalizeReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "borrado"},
	}, nil, entities.Settings{}, testNow)

	assert.Empty(t, releases)
}

func TestNormalizeReleases_StripsEmptyTrackID(t *testing.T) {
	empty := ""
	padded := "  track-1  "
	albums := []entities.Album{{ID: "disco", Title: "Disco"}}
	releases := NormalizeReleases([]entities.Release{
		{ID: "uno", Title: "Uno", AlbumID: "disco", SourceSpotifyTrackID: &empty},
		{ID: "dos", Title: "Dos", AlbumID: "disco", SourceSpotifyTrackID: &padded},
	}, albums, entities.Settings{}, testNow)

	require.Len(t, releases, 2)
	assert.Nil(t, releases[0].SourceSpotifyTrackID)
	assert.Equal(t, "track-1", releases[1].SpotifyTrackID())
}

func TestNormalizeReleases_RecomputesBadges(t *testing.T) {
	albums := []entities.Album{{ID: "disco", Title: "Disco"}}
	releases := NormalizeReleases([]entities.Release{
		{ID: "viejo", Title: "Viejo", AlbumID: "disco", ReleaseDate: "2024-01-01"},
		{ID: "reciente", Title: "Reciente", AlbumID: "disco", ReleaseDate: "2024-06-01"},
		{ID: "futuro", Title: "Futuro", AlbumID: "disco", ReleaseDate: "2099-01-01"},
	}, albums, entities.Settings{}, testNow)

	require.Len(t, releases, 3)
	assert.Equal(t, status.BadgePublished, releases[0].Badge)
	assert.Equal(t, status.BadgeNew, releases[1].Badge)
	assert.Equal(t, status.BadgeUpcoming, releases[2].Badge)
}

func TestReleaseConflicts(t *testing.T) {
	track := "t1"
	sameTrack := "t1"

	err := ReleaseConflicts([]entities.Release{
		{ID: "uno", SourceSpotifyTrackID: &track},
		{ID: "dos", SourceSpotifyTrackID: &sameTrack},
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sourceSpotifyTrackId", conflict.Field)

	err = ReleaseConflicts([]entities.Release{
		{ID: "uno"},
		{ID: "uno"},
	})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "id", conflict.Field)

	// Releases without a source track never collide with each other.
	err = ReleaseConflicts([]entities.Release{
		{ID: "uno"},
		{ID: "dos"},
	})
	assert.NoError(t, err)
}

func TestApplyArtistName_Cascades(t *testing.T) {
	albums := []entities.Album{{ID: "disco", Title: "Disco", Artist: "Viejo Nombre"}}
	releases := []entities.Release{{ID: "uno", Title: "Uno", Artist: "Viejo Nombre"}}

	albums, releases = ApplyArtistName(albums, releases, entities.Settings{ArtistName: "Nuevo Nombre"})

	assert.Equal(t, "Nuevo Nombre", albums[0].Artist)
	assert.Equal(t, "Nuevo Nombre", releases[0].Artist)
}
