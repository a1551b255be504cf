package store

import (
	"database/sql"
	"fmt"
)

// EnsureGenreExists is insert-or-fetch on the unique genre name.
func EnsureGenreExists(tx *sql.Tx, name string) (Genre, error) {
	var g Genre
	err := tx.QueryRow(`SELECT id, name FROM genres WHERE name = ?`, name).Scan(&g.ID, &g.Name)
	if err == nil {
		return g, nil
	}
	if err != sql.ErrNoRows {
		return Genre{}, err
	}

	res, err := tx.Exec(`INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		return Genre{}, err
	}
	id, err := res.LastInsertId()
	return Genre{ID: id, Name: name}, err
}

// GetGenreByID returns the genre for the given id, or ErrNotFound.
func GetGenreByID(tx *sql.Tx, id int64) (Genre, error) {
	var g Genre
	err := tx.QueryRow(`SELECT id, name FROM genres WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return Genre{}, fmt.Errorf("genre %d: %w", id, ErrNotFound)
	}
	return g, err
}

// GetAllGenres returns every genre ordered by name.
func GetAllGenres(tx *sql.Tx) ([]Genre, error) {
	rows, err := tx.Query(`SELECT id, name FROM genres ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGenres(rows)
}

// GetEmptyGenres returns genres with no albums and no playlists.
func GetEmptyGenres(tx *sql.Tx) ([]Genre, error) {
	rows, err := tx.Query(`SELECT id, name FROM genres
		WHERE NOT EXISTS (SELECT 1 FROM album_genres WHERE album_genres.genre_id = genres.id)
		  AND NOT EXISTS (SELECT 1 FROM playlist_genres WHERE playlist_genres.genre_id = genres.id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGenres(rows)
}

// DeleteGenre removes a genre. Tracks referencing it keep no genre.
func DeleteGenre(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec(`UPDATE tracks SET genre_id = NULL WHERE genre_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM genres WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("genre %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountGenres returns the number of genres in the catalog.
func CountGenres(tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRow(`SELECT COUNT(*) FROM genres`).Scan(&n)
	return n, err
}

// AlbumsForGenre returns the albums linked to the genre.
func AlbumsForGenre(tx *sql.Tx, genreID int64) ([]Album, error) {
	rows, err := tx.Query(`SELECT `+albumColumns+` FROM albums
		JOIN album_genres ON album_genres.album_id = albums.id
		WHERE album_genres.genre_id = ?
		ORDER BY albums.artist, albums.title COLLATE NOCASE`, genreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// PlaylistIDsForGenre returns ids of playlists linked to the genre.
func PlaylistIDsForGenre(tx *sql.Tx, genreID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT playlist_id FROM playlist_genres WHERE genre_id = ? ORDER BY playlist_id`,
		genreID)
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

func collectGenres(rows *sql.Rows) ([]Genre, error) {
	var genres []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
