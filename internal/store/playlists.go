package store

import (
	"database/sql"
	"fmt"
)

// CreatePlaylist inserts a playlist with the given ordered track ids and
// records the distinct genres of its tracks.
func CreatePlaylist(tx *sql.Tx, title string, trackIDs []int64) (Playlist, error) {
	res, err := tx.Exec(`INSERT INTO playlists (title) VALUES (?)`, title)
	if err != nil {
		return Playlist{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Playlist{}, err
	}
	if err := writePlaylistEntries(tx, id, trackIDs); err != nil {
		return Playlist{}, err
	}
	return GetPlaylistByID(tx, id)
}

// UpdatePlaylist replaces the playlist's title and entries wholesale and
// recomputes its genre links.
func UpdatePlaylist(tx *sql.Tx, id int64, title string, trackIDs []int64) (Playlist, error) {
	res, err := tx.Exec(`UPDATE playlists SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return Playlist{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Playlist{}, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM playlist_entries WHERE playlist_id = ?`, id); err != nil {
		return Playlist{}, err
	}
	if err := writePlaylistEntries(tx, id, trackIDs); err != nil {
		return Playlist{}, err
	}
	return GetPlaylistByID(tx, id)
}

// DeletePlaylist removes the playlist; entries and genre links cascade.
func DeletePlaylist(tx *sql.Tx, id int64) error {
	res, err := tx.Exec(`DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetPlaylistByID returns the playlist with its ordered entries and genre
// links, or ErrNotFound.
func GetPlaylistByID(tx *sql.Tx, id int64) (Playlist, error) {
	var p Playlist
	err := tx.QueryRow(`SELECT id, title FROM playlists WHERE id = ?`, id).Scan(&p.ID, &p.Title)
	if err == sql.ErrNoRows {
		return Playlist{}, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Playlist{}, err
	}
	if p.Entries, err = playlistEntries(tx, id); err != nil {
		return Playlist{}, err
	}
	if p.GenreIDs, err = playlistGenres(tx, id); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// GetAllPlaylists returns every playlist ordered by title, entries included.
func GetAllPlaylists(tx *sql.Tx) ([]Playlist, error) {
	rows, err := tx.Query(`SELECT id, title FROM playlists ORDER BY title COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Title); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range playlists {
		if playlists[i].Entries, err = playlistEntries(tx, playlists[i].ID); err != nil {
			return nil, err
		}
		if playlists[i].GenreIDs, err = playlistGenres(tx, playlists[i].ID); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func writePlaylistEntries(tx *sql.Tx, playlistID int64, trackIDs []int64) error {
	genres := map[int64]bool{}
	for i, trackID := range trackIDs {
		t, err := GetTrackByID(tx, trackID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO playlist_entries (playlist_id, track_id, playlist_index)
			VALUES (?, ?, ?)`, playlistID, trackID, i); err != nil {
			return err
		}
		if t.GenreID != nil {
			genres[*t.GenreID] = true
		}
	}

	if _, err := tx.Exec(`DELETE FROM playlist_genres WHERE playlist_id = ?`, playlistID); err != nil {
		return err
	}
	for gid := range genres {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO playlist_genres (playlist_id, genre_id)
			VALUES (?, ?)`, playlistID, gid); err != nil {
			return err
		}
	}
	return nil
}

func playlistEntries(tx *sql.Tx, playlistID int64) ([]PlaylistEntry, error) {
	rows, err := tx.Query(`SELECT id, track_id, playlist_index FROM playlist_entries
		WHERE playlist_id = ? ORDER BY playlist_index`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []PlaylistEntry
	for rows.Next() {
		var e PlaylistEntry
		if err := rows.Scan(&e.ID, &e.TrackID, &e.PlaylistIndex); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func playlistGenres(tx *sql.Tx, playlistID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT genre_id FROM playlist_genres WHERE playlist_id = ? ORDER BY genre_id`,
		playlistID)
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
