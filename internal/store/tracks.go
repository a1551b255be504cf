package store

import (
	"database/sql"
	"fmt"

	dbutil "github.com/piju/piju-server/internal/db"
)

const trackColumns = `id, filepath, title, duration_ms, composer, artist, genre_id,
	volume_number, track_count, track_number, release_date,
	musicbrainz_track_id, musicbrainz_artist_id, album_id, artwork_id`

func scanTrack(row interface{ Scan(...interface{}) error }) (Track, error) {
	var t Track
	var title, composer, artist, mbTrack, mbArtist, releaseDate sql.NullString
	var durationMS, genreID, volumeNumber, trackCount, trackNumber, albumID, artworkID sql.NullInt64

	err := row.Scan(&t.ID, &t.Filepath, &title, &durationMS, &composer, &artist, &genreID,
		&volumeNumber, &trackCount, &trackNumber, &releaseDate,
		&mbTrack, &mbArtist, &albumID, &artworkID)
	if err != nil {
		return Track{}, err
	}
	t.Title = title.String
	t.DurationMS = dbutil.NullInt64Value(durationMS)
	t.Composer = composer.String
	t.Artist = artist.String
	t.GenreID = dbutil.NullInt64ToPtr(genreID)
	t.VolumeNumber = dbutil.NullInt64ToPtr(volumeNumber)
	t.TrackCount = dbutil.NullInt64ToPtr(trackCount)
	t.TrackNumber = dbutil.NullInt64ToPtr(trackNumber)
	t.ReleaseDate = parseReleaseDate(dbutil.NullStringToPtr(releaseDate))
	t.MusicBrainzTrackID = mbTrack.String
	t.MusicBrainzArtistID = mbArtist.String
	t.AlbumID = dbutil.NullInt64ToPtr(albumID)
	t.ArtworkID = dbutil.NullInt64ToPtr(artworkID)
	return t, nil
}

// EnsureTrackExists reconciles one scanned file with the catalog. A ref with
// a known ID updates that row. A ref without one is matched against rows that
// agree on the identity tuple (album, title, duration, artist, volume and
// track number, release date, MusicBrainz ids); a hit refreshes the mutable
// attributes outside the tuple, a miss inserts a fresh row. The genre is
// carried by name and resolved here.
func EnsureTrackExists(tx *sql.Tx, ref TrackRef) (Track, error) {
	var genreID *int64
	if ref.Genre != "" {
		g, err := EnsureGenreExists(tx, ref.Genre)
		if err != nil {
			return Track{}, err
		}
		genreID = &g.ID
	}

	track := Track{
		ID:                  ref.ID,
		Filepath:            ref.Filepath,
		Title:               ref.Title,
		DurationMS:          ref.DurationMS,
		Composer:            ref.Composer,
		Artist:              ref.Artist,
		GenreID:             genreID,
		VolumeNumber:        ref.VolumeNumber,
		TrackCount:          ref.TrackCount,
		TrackNumber:         ref.TrackNumber,
		ReleaseDate:         ref.ReleaseDate,
		MusicBrainzTrackID:  ref.MusicBrainzTrackID,
		MusicBrainzArtistID: ref.MusicBrainzArtistID,
		AlbumID:             ref.AlbumID,
		ArtworkID:           ref.ArtworkID,
	}

	if track.ID == 0 {
		row := tx.QueryRow(`SELECT `+trackColumns+` FROM tracks
			WHERE title IS ? AND duration_ms IS ? AND artist IS ?
			  AND volume_number IS ? AND track_number IS ?
			  AND release_date IS ? AND musicbrainz_track_id IS ? AND musicbrainz_artist_id IS ?
			  AND album_id IS ?`,
			sqlNullIfEmpty(track.Title), track.DurationMS, sqlNullIfEmpty(track.Artist),
			dbutil.PtrToNullInt64(track.VolumeNumber),
			dbutil.PtrToNullInt64(track.TrackNumber), formatReleaseDate(track.ReleaseDate),
			sqlNullIfEmpty(track.MusicBrainzTrackID), sqlNullIfEmpty(track.MusicBrainzArtistID),
			dbutil.PtrToNullInt64(track.AlbumID))
		existing, err := scanTrack(row)
		switch err {
		case nil:
			track.ID = existing.ID
			if existing.Filepath == track.Filepath &&
				existing.Composer == track.Composer &&
				equalInt64Ptr(existing.GenreID, track.GenreID) &&
				equalInt64Ptr(existing.TrackCount, track.TrackCount) &&
				equalInt64Ptr(existing.ArtworkID, track.ArtworkID) {
				return existing, nil
			}
		case sql.ErrNoRows:
			res, err := tx.Exec(`INSERT INTO tracks
				(filepath, title, duration_ms, composer, artist, genre_id,
				 volume_number, track_count, track_number, release_date,
				 musicbrainz_track_id, musicbrainz_artist_id, album_id, artwork_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				track.Filepath, sqlNullIfEmpty(track.Title), track.DurationMS,
				sqlNullIfEmpty(track.Composer), sqlNullIfEmpty(track.Artist),
				dbutil.PtrToNullInt64(track.GenreID),
				dbutil.PtrToNullInt64(track.VolumeNumber), dbutil.PtrToNullInt64(track.TrackCount),
				dbutil.PtrToNullInt64(track.TrackNumber), formatReleaseDate(track.ReleaseDate),
				sqlNullIfEmpty(track.MusicBrainzTrackID), sqlNullIfEmpty(track.MusicBrainzArtistID),
				dbutil.PtrToNullInt64(track.AlbumID), dbutil.PtrToNullInt64(track.ArtworkID))
			if err != nil {
				return Track{}, err
			}
			track.ID, err = res.LastInsertId()
			return track, err
		default:
			return Track{}, err
		}
	}

	_, err := tx.Exec(`UPDATE tracks SET
			filepath = ?, title = ?, duration_ms = ?, composer = ?, artist = ?, genre_id = ?,
			volume_number = ?, track_count = ?, track_number = ?, release_date = ?,
			musicbrainz_track_id = ?, musicbrainz_artist_id = ?, album_id = ?, artwork_id = ?
		WHERE id = ?`,
		track.Filepath, sqlNullIfEmpty(track.Title), track.DurationMS,
		sqlNullIfEmpty(track.Composer), sqlNullIfEmpty(track.Artist),
		dbutil.PtrToNullInt64(track.GenreID),
		dbutil.PtrToNullInt64(track.VolumeNumber), dbutil.PtrToNullInt64(track.TrackCount),
		dbutil.PtrToNullInt64(track.TrackNumber), formatReleaseDate(track.ReleaseDate),
		sqlNullIfEmpty(track.MusicBrainzTrackID), sqlNullIfEmpty(track.MusicBrainzArtistID),
		dbutil.PtrToNullInt64(track.AlbumID), dbutil.PtrToNullInt64(track.ArtworkID),
		track.ID)
	return track, err
}

// GetTrackByID returns the track for the given id, or ErrNotFound.
func GetTrackByID(tx *sql.Tx, id int64) (Track, error) {
	row := tx.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return Track{}, fmt.Errorf("track %d: %w", id, ErrNotFound)
	}
	return t, err
}

// GetTrackByFilepath matches the path exactly, case sensitively. Callers
// normalize paths before the lookup.
func GetTrackByFilepath(tx *sql.Tx, filepath string) (Track, error) {
	row := tx.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE filepath = ?`, filepath)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return Track{}, fmt.Errorf("track %q: %w", filepath, ErrNotFound)
	}
	return t, err
}

// GetAllTracks returns tracks in id order, at most limit of them.
func GetAllTracks(tx *sql.Tx, limit int) ([]Track, error) {
	rows, err := tx.Query(`SELECT `+trackColumns+` FROM tracks ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracks(rows)
}

// GetAllTracksPaged returns the tracks whose id falls in the window
// [startID, startID+limit), in id order. When startID is already past the
// highest id it returns nil to signal the end of iteration; gaps in the id
// sequence return an empty, non-nil slice so callers keep paging.
func GetAllTracksPaged(tx *sql.Tx, startID int64, limit int) ([]Track, error) {
	rows, err := tx.Query(`SELECT `+trackColumns+` FROM tracks
		WHERE id >= ? AND id < ? ORDER BY id`, startID, startID+int64(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks, err := collectTracks(rows)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		return tracks, nil
	}

	var maxID sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(id) FROM tracks`).Scan(&maxID); err != nil {
		return nil, err
	}
	if !maxID.Valid || startID > maxID.Int64 {
		return nil, nil
	}
	return []Track{}, nil
}

// DeleteTrack removes the track and garbage-collects its artwork when no
// other track references it. The containing album is left alone; tidy
// sweeps remove empty albums.
func DeleteTrack(tx *sql.Tx, id int64) error {
	t, err := GetTrackByID(tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM playlist_entries WHERE track_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tracks WHERE id = ?`, id); err != nil {
		return err
	}
	if t.ArtworkID != nil {
		var n int64
		err := tx.QueryRow(`SELECT COUNT(*) FROM tracks WHERE artwork_id = ?`, *t.ArtworkID).Scan(&n)
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := tx.Exec(`DELETE FROM artwork WHERE id = ?`, *t.ArtworkID); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountTracks returns the number of tracks in the catalog.
func CountTracks(tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n)
	return n, err
}

// TracksForAlbum returns the album's tracks sorted by volume then track
// number, unnumbered tracks last.
func TracksForAlbum(tx *sql.Tx, albumID int64) ([]Track, error) {
	rows, err := tx.Query(`SELECT `+trackColumns+` FROM tracks
		WHERE album_id = ?
		ORDER BY volume_number IS NULL, volume_number, track_number IS NULL, track_number, id`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracks(rows)
}

// TracksForGenre returns tracks carrying the genre, in id order.
func TracksForGenre(tx *sql.Tx, genreID int64) ([]Track, error) {
	rows, err := tx.Query(`SELECT `+trackColumns+` FROM tracks WHERE genre_id = ? ORDER BY id`, genreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracks(rows)
}

// SetTrackAlbum points the track at the given album (or none).
func SetTrackAlbum(tx *sql.Tx, trackID int64, albumID *int64) error {
	_, err := tx.Exec(`UPDATE tracks SET album_id = ? WHERE id = ?`,
		dbutil.PtrToNullInt64(albumID), trackID)
	return err
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func collectTracks(rows *sql.Rows) ([]Track, error) {
	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
