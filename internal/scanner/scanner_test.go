package scanner

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := dbutil.OpenForTest(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, store.InitSchema(database))
	return database
}

func strPtr(s string) *string { return &s }

// ingest runs SetCrossRefs the way a scan does: carrying forward the id of
// any track already known under the same path.
func ingest(t *testing.T, db *sql.DB, track store.TrackRef, album store.Album) store.Track {
	t.Helper()

	var saved store.Track
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		existing, err := store.GetTrackByFilepath(tx, track.Filepath)
		switch {
		case err == nil:
			track.ID = existing.ID
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		saved, err = SetCrossRefs(tx, track, album, nil)
		return err
	})
	require.NoError(t, err)
	return saved
}

func albumGenreNames(t *testing.T, db *sql.DB, albumID int64) []string {
	t.Helper()

	var names []string
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		ids, err := store.AlbumGenres(tx, albumID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			g, err := store.GetGenreByID(tx, id)
			if err != nil {
				return err
			}
			names = append(names, g.Name)
		}
		return nil
	})
	require.NoError(t, err)
	return names
}

func TestReingestWithChangedGenre(t *testing.T) {
	db := setupTestDB(t)

	track := store.TrackRef{Filepath: "/music/a/t1.mp3", Title: "T1", Genre: "Rock"}
	album := store.Album{Title: "A", Artist: strPtr("Artist")}

	first := ingest(t, db, track, album)
	require.NotNil(t, first.AlbumID)
	assert.Equal(t, []string{"Rock"}, albumGenreNames(t, db, *first.AlbumID))

	track.Genre = "Punk"
	second := ingest(t, db, track, album)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"Punk"}, albumGenreNames(t, db, *second.AlbumID))

	// The old genre is no longer linked to any album.
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		rock, err := store.EnsureGenreExists(tx, "Rock")
		require.NoError(t, err)
		albums, err := store.AlbumsForGenre(tx, rock.ID)
		require.NoError(t, err)
		assert.Empty(t, albums)
		return nil
	})
	require.NoError(t, err)
}

func TestCompilationToSingleArtistFlip(t *testing.T) {
	db := setupTestDB(t)

	track := store.TrackRef{Filepath: "/music/c/my-track.mp3", Title: "My Track", Artist: "Various Artists"}
	compilation := store.Album{Title: "My Album", IsCompilation: true}
	ingest(t, db, track, compilation)

	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		count, err := store.CountAlbums(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		return nil
	})
	require.NoError(t, err)

	// Retagged: same file, now a single-artist release. The compilation
	// album is left empty by the move and must disappear.
	track.Artist = "Bill and Ben"
	single := store.Album{Title: "My Album", Artist: strPtr("Bill and Ben")}
	saved := ingest(t, db, track, single)

	err = dbutil.WithTx(db, func(tx *sql.Tx) error {
		count, err := store.CountAlbums(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		album, err := store.GetAlbumByID(tx, *saved.AlbumID)
		require.NoError(t, err)
		assert.False(t, album.IsCompilation)
		require.NotNil(t, album.Artist)
		assert.Equal(t, "Bill and Ben", *album.Artist)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteMissingTracks(t *testing.T) {
	db := setupTestDB(t)

	dir := t.TempDir()
	present := filepath.Join(dir, "present.mp3")
	require.NoError(t, os.WriteFile(present, []byte("audio"), 0o644))
	absent := filepath.Join(dir, "absent.mp3")

	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		for _, path := range []string{present, absent} {
			_, err := store.EnsureTrackExists(tx, store.TrackRef{Filepath: path, Title: filepath.Base(path)})
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)

	removed, err := DeleteMissingTracks(db)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	err = dbutil.WithTx(db, func(tx *sql.Tx) error {
		remaining, err := store.GetAllTracks(tx, 10)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, present, remaining[0].Filepath)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteAlbumsWithoutTracks(t *testing.T) {
	db := setupTestDB(t)

	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		_, err := store.EnsureAlbumExists(tx, store.Album{Title: "Empty", Artist: strPtr("Nobody")})
		require.NoError(t, err)
		full, err := store.EnsureAlbumExists(tx, store.Album{Title: "Full", Artist: strPtr("Somebody")})
		require.NoError(t, err)
		_, err = store.EnsureTrackExists(tx, store.TrackRef{Filepath: "/music/full/1.mp3", AlbumID: &full.ID})
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)

	removed, err := DeleteAlbumsWithoutTracks(db)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
