package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbutil "github.com/piju/piju-server/internal/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := dbutil.OpenForTest(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, InitSchema(database))
	return database
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func TestEnsureAlbumExists(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		first, err := EnsureAlbumExists(tx, Album{
			Title:       "Parklife",
			Artist:      strPtr("Blur"),
			VolumeCount: int64Ptr(1),
		})
		require.NoError(t, err)
		require.NotZero(t, first.ID)

		// Same identity comes back with the same id.
		again, err := EnsureAlbumExists(tx, Album{Title: "Parklife", Artist: strPtr("Blur")})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		// VolumeCount and ReleaseYear only ever rise.
		raised, err := EnsureAlbumExists(tx, Album{
			Title:       "Parklife",
			Artist:      strPtr("Blur"),
			VolumeCount: int64Ptr(2),
			ReleaseYear: int64Ptr(1994),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), *raised.VolumeCount)
		assert.Equal(t, int64(1994), *raised.ReleaseYear)

		lowered, err := EnsureAlbumExists(tx, Album{
			Title:       "Parklife",
			Artist:      strPtr("Blur"),
			VolumeCount: int64Ptr(1),
			ReleaseYear: int64Ptr(1993),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), *lowered.VolumeCount)
		assert.Equal(t, int64(1994), *lowered.ReleaseYear)

		count, err := CountAlbums(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureAlbumExists_CompilationDropsArtist(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		a, err := EnsureAlbumExists(tx, Album{
			Title:         "Now That's What I Call Music",
			Artist:        strPtr("Various"),
			IsCompilation: true,
		})
		require.NoError(t, err)
		assert.Nil(t, a.Artist)

		// A second compilation ref with a different artist still matches.
		b, err := EnsureAlbumExists(tx, Album{
			Title:         "Now That's What I Call Music",
			Artist:        strPtr("Someone Else"),
			IsCompilation: true,
		})
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureTrackExists_Idempotent(t *testing.T) {
	database := setupTestDB(t)

	ref := TrackRef{
		Filepath:    "/music/blur/parklife/01.mp3",
		Title:       "Girls & Boys",
		DurationMS:  290000,
		Artist:      "Blur",
		Genre:       "Britpop",
		TrackNumber: int64Ptr(1),
	}

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		first, err := EnsureTrackExists(tx, ref)
		require.NoError(t, err)
		require.NotZero(t, first.ID)

		second, err := EnsureTrackExists(tx, ref)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		count, err := CountTracks(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		genres, err := GetAllGenres(tx)
		require.NoError(t, err)
		require.Len(t, genres, 1)
		assert.Equal(t, "Britpop", genres[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureTrackExists_RelocatedFileMatchesIdentity(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		first, err := EnsureTrackExists(tx, TrackRef{
			Filepath:    "/music/blur/parklife/01.mp3",
			Title:       "Girls & Boys",
			DurationMS:  290000,
			Artist:      "Blur",
			Composer:    "Albarn",
			Genre:       "Britpop",
			TrackNumber: int64Ptr(1),
			TrackCount:  int64Ptr(16),
		})
		require.NoError(t, err)

		// A moved file with retagged composer, genre and track count is
		// the same track; the identity tuple ignores those fields.
		moved, err := EnsureTrackExists(tx, TrackRef{
			Filepath:    "/archive/parklife/01.mp3",
			Title:       "Girls & Boys",
			DurationMS:  290000,
			Artist:      "Blur",
			Composer:    "Albarn/Coxon",
			Genre:       "Pop",
			TrackNumber: int64Ptr(1),
			TrackCount:  int64Ptr(17),
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, moved.ID)

		count, err := CountTracks(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		// The mutable attributes were refreshed on the match.
		got, err := GetTrackByID(tx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "/archive/parklife/01.mp3", got.Filepath)
		assert.Equal(t, "Albarn/Coxon", got.Composer)
		assert.Equal(t, int64(17), *got.TrackCount)
		require.NotNil(t, got.GenreID)
		genre, err := GetGenreByID(tx, *got.GenreID)
		require.NoError(t, err)
		assert.Equal(t, "Pop", genre.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureTrackExists_KnownIDUpdates(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		first, err := EnsureTrackExists(tx, TrackRef{
			Filepath: "/music/a.mp3",
			Title:    "Untagged",
		})
		require.NoError(t, err)

		updated, err := EnsureTrackExists(tx, TrackRef{
			ID:       first.ID,
			Filepath: "/music/a.mp3",
			Title:    "Song Two",
			Artist:   "Blur",
			Genre:    "Britpop",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)

		got, err := GetTrackByID(tx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Song Two", got.Title)
		assert.Equal(t, "Blur", got.Artist)
		require.NotNil(t, got.GenreID)
		return nil
	})
	require.NoError(t, err)
}

func TestGetTrackByFilepath_CaseSensitive(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		_, err := EnsureTrackExists(tx, TrackRef{Filepath: "/music/A.mp3", Title: "a"})
		require.NoError(t, err)

		_, err = GetTrackByFilepath(tx, "/music/A.mp3")
		require.NoError(t, err)

		_, err = GetTrackByFilepath(tx, "/music/a.mp3")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestGetAllTracksPaged(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		// Sparse id allocation: rows at 1, 2 and 20.
		for _, id := range []int64{1, 2, 20} {
			_, err := tx.Exec(`INSERT INTO tracks (id, filepath) VALUES (?, ?)`,
				id, "/music/"+string(rune('a'+id))+".mp3")
			require.NoError(t, err)
		}

		page, err := GetAllTracksPaged(tx, 1, 10)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		// A gap inside the catalog keeps the iteration going.
		page, err = GetAllTracksPaged(tx, 11, 5)
		require.NoError(t, err)
		require.NotNil(t, page)
		assert.Empty(t, page)

		// Past max(id) the sentinel is returned.
		page, err = GetAllTracksPaged(tx, 21, 5)
		require.NoError(t, err)
		assert.Nil(t, page)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteTrack_CollectsOrphanedArtwork(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		art, err := EnsureArtworkExists(tx, Artwork{Blob: []byte("jpeg bytes"), Width: 500, Height: 500})
		require.NoError(t, err)

		first, err := EnsureTrackExists(tx, TrackRef{Filepath: "/music/1.mp3", Title: "one", ArtworkID: &art.ID})
		require.NoError(t, err)
		second, err := EnsureTrackExists(tx, TrackRef{Filepath: "/music/2.mp3", Title: "two", ArtworkID: &art.ID})
		require.NoError(t, err)

		require.NoError(t, DeleteTrack(tx, first.ID))
		_, err = GetArtworkByID(tx, art.ID)
		require.NoError(t, err, "artwork still referenced by one track")

		require.NoError(t, DeleteTrack(tx, second.ID))
		_, err = GetArtworkByID(tx, art.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureArtworkExists_DedupByBlob(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		blob := []byte("image payload")
		first, err := EnsureArtworkExists(tx, Artwork{Blob: blob, Width: 300, Height: 300})
		require.NoError(t, err)

		again, err := EnsureArtworkExists(tx, Artwork{Blob: blob, Width: 300, Height: 300})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		other, err := EnsureArtworkExists(tx, Artwork{Blob: []byte("different payload")})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, other.ID)

		count, err := CountArtworks(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureArtworkExists_RequiresPathOrBlob(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		_, err := EnsureArtworkExists(tx, Artwork{})
		assert.ErrorIs(t, err, ErrBadInput)
		return nil
	})
	require.NoError(t, err)
}

func TestReleaseDateRoundTrip(t *testing.T) {
	database := setupTestDB(t)

	when := time.Date(2015, 7, 15, 16, 54, 33, 0, time.UTC)
	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		tr, err := EnsureTrackExists(tx, TrackRef{
			Filepath:    "/music/dated.mp3",
			Title:       "dated",
			ReleaseDate: &when,
		})
		require.NoError(t, err)

		got, err := GetTrackByID(tx, tr.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReleaseDate)
		assert.True(t, got.ReleaseDate.Equal(when))
		return nil
	})
	require.NoError(t, err)
}

func TestGetEmptyGenres(t *testing.T) {
	database := setupTestDB(t)

	err := dbutil.WithTx(database, func(tx *sql.Tx) error {
		used, err := EnsureGenreExists(tx, "Rock")
		require.NoError(t, err)
		empty, err := EnsureGenreExists(tx, "Ambient")
		require.NoError(t, err)

		album, err := EnsureAlbumExists(tx, Album{Title: "Album", Artist: strPtr("Artist")})
		require.NoError(t, err)
		require.NoError(t, AddAlbumGenre(tx, album.ID, used.ID))

		got, err := GetEmptyGenres(tx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, empty.ID, got[0].ID)
		return nil
	})
	require.NoError(t, err)
}
