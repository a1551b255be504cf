package store

import (
	"database/sql"
	"fmt"

	dbutil "github.com/piju/piju-server/internal/db"
)

const albumColumns = `id, title, artist, volume_count, release_year, is_compilation,
	musicbrainz_album_id, musicbrainz_album_artist_id`

func scanAlbum(row interface{ Scan(...interface{}) error }) (Album, error) {
	var a Album
	var artist sql.NullString
	var title, mbAlbum, mbAlbumArtist sql.NullString
	var volumeCount, releaseYear sql.NullInt64

	err := row.Scan(&a.ID, &title, &artist, &volumeCount, &releaseYear, &a.IsCompilation,
		&mbAlbum, &mbAlbumArtist)
	if err != nil {
		return Album{}, err
	}
	a.Title = title.String
	a.Artist = dbutil.NullStringToPtr(artist)
	a.VolumeCount = dbutil.NullInt64ToPtr(volumeCount)
	a.ReleaseYear = dbutil.NullInt64ToPtr(releaseYear)
	a.MusicBrainzAlbumID = mbAlbum.String
	a.MusicBrainzAlbumArtistID = mbAlbumArtist.String
	return a, nil
}

// EnsureAlbumExists looks up the album identified by (Title, Artist) —
// Artist forced to null for compilations — inserting it if absent.
// On a match, VolumeCount and ReleaseYear are only ever raised, never
// lowered, so repeated ingestion with partial tags cannot regress them.
func EnsureAlbumExists(tx *sql.Tx, ref Album) (Album, error) {
	if ref.IsCompilation {
		ref.Artist = nil
	}

	rows, err := tx.Query(`SELECT `+albumColumns+` FROM albums WHERE title IS ? AND artist IS ?`,
		ref.Title, dbutil.PtrToNullString(ref.Artist))
	if err != nil {
		return Album{}, err
	}
	defer rows.Close()

	var existing *Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return Album{}, err
		}
		if existing != nil {
			return Album{}, fmt.Errorf("album %q/%v has duplicate rows: %w", ref.Title, ref.Artist, ErrCorrupt)
		}
		existing = &a
	}
	if err := rows.Err(); err != nil {
		return Album{}, err
	}

	if existing == nil {
		res, err := tx.Exec(`INSERT INTO albums
			(title, artist, volume_count, release_year, is_compilation,
			 musicbrainz_album_id, musicbrainz_album_artist_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ref.Title, dbutil.PtrToNullString(ref.Artist),
			dbutil.PtrToNullInt64(ref.VolumeCount), dbutil.PtrToNullInt64(ref.ReleaseYear),
			ref.IsCompilation, ref.MusicBrainzAlbumID, ref.MusicBrainzAlbumArtistID)
		if err != nil {
			return Album{}, err
		}
		ref.ID, err = res.LastInsertId()
		return ref, err
	}

	changed := false
	if ref.VolumeCount != nil && (existing.VolumeCount == nil || *existing.VolumeCount < *ref.VolumeCount) {
		existing.VolumeCount = ref.VolumeCount
		changed = true
	}
	if ref.ReleaseYear != nil && (existing.ReleaseYear == nil || *existing.ReleaseYear < *ref.ReleaseYear) {
		existing.ReleaseYear = ref.ReleaseYear
		changed = true
	}
	if changed {
		_, err := tx.Exec(`UPDATE albums SET volume_count = ?, release_year = ? WHERE id = ?`,
			dbutil.PtrToNullInt64(existing.VolumeCount), dbutil.PtrToNullInt64(existing.ReleaseYear),
			existing.ID)
		if err != nil {
			return Album{}, err
		}
	}
	return *existing, nil
}

// GetAlbumByID returns the album for the given id, or ErrNotFound.
func GetAlbumByID(tx *sql.Tx, id int64) (Album, error) {
	row := tx.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	a, err := scanAlbum(row)
	if err == sql.ErrNoRows {
		return Album{}, fmt.Errorf("album %d: %w", id, ErrNotFound)
	}
	return a, err
}

// GetAllAlbums returns every album ordered by artist then title.
func GetAllAlbums(tx *sql.Tx) ([]Album, error) {
	rows, err := tx.Query(`SELECT ` + albumColumns + ` FROM albums ORDER BY artist, title COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// GetAlbumsWithoutTracks returns albums no track references.
func GetAlbumsWithoutTracks(tx *sql.Tx) ([]Album, error) {
	rows, err := tx.Query(`SELECT ` + albumColumns + ` FROM albums
		WHERE NOT EXISTS (SELECT 1 FROM tracks WHERE tracks.album_id = albums.id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// GetArtistAlbums returns albums whose artist matches the given name,
// as a substring when substring is set, case-insensitively otherwise.
func GetArtistAlbums(tx *sql.Tx, name string, substring bool, limit int) ([]Album, error) {
	pattern := name
	if substring {
		pattern = "%" + name + "%"
	}
	rows, err := tx.Query(`SELECT `+albumColumns+` FROM albums
		WHERE artist LIKE ? ORDER BY artist LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// GetCompilations returns albums flagged as compilations, ordered by title.
func GetCompilations(tx *sql.Tx, limit int) ([]Album, error) {
	rows, err := tx.Query(`SELECT `+albumColumns+` FROM albums
		WHERE is_compilation ORDER BY title COLLATE NOCASE LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// DeleteAlbum removes the album and its genre links. Tracks are never
// deleted because their album vanished.
func DeleteAlbum(tx *sql.Tx, id int64) error {
	if _, err := GetAlbumByID(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM album_genres WHERE album_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE tracks SET album_id = NULL WHERE album_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM albums WHERE id = ?`, id)
	return err
}

// CountAlbums returns the number of albums in the catalog.
func CountAlbums(tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&n)
	return n, err
}

// AlbumGenres returns the genre ids linked to the album.
func AlbumGenres(tx *sql.Tx, albumID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT genre_id FROM album_genres WHERE album_id = ? ORDER BY genre_id`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetAlbumGenres replaces the album's genre set.
func SetAlbumGenres(tx *sql.Tx, albumID int64, genreIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM album_genres WHERE album_id = ?`, albumID); err != nil {
		return err
	}
	for _, gid := range genreIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO album_genres (album_id, genre_id) VALUES (?, ?)`,
			albumID, gid); err != nil {
			return err
		}
	}
	return nil
}

// SetAlbumReleaseYear overwrites the album's release year. Unlike
// ingestion this is an explicit edit, so no monotonicity applies.
func SetAlbumReleaseYear(tx *sql.Tx, albumID int64, year *int64) error {
	if _, err := GetAlbumByID(tx, albumID); err != nil {
		return err
	}
	_, err := tx.Exec(`UPDATE albums SET release_year = ? WHERE id = ?`,
		dbutil.PtrToNullInt64(year), albumID)
	return err
}

// AddAlbumGenre links one genre to the album if not already linked.
func AddAlbumGenre(tx *sql.Tx, albumID, genreID int64) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO album_genres (album_id, genre_id) VALUES (?, ?)`,
		albumID, genreID)
	return err
}

func collectAlbums(rows *sql.Rows) ([]Album, error) {
	var albums []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}
