package store

import (
	"database/sql"
	"sort"
	"strings"
)

// SearchAlbums returns albums whose title or artist contains every word,
// case-insensitively, ordered by artist.
func SearchAlbums(tx *sql.Tx, words []string, limit int) ([]Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums`
	var args []interface{}
	for i, word := range words {
		if i == 0 {
			query += ` WHERE`
		} else {
			query += ` AND`
		}
		query += ` (title LIKE ? OR artist LIKE ?)`
		pattern := "%" + word + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY artist LIMIT ?`
	args = append(args, limit)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// SearchArtists returns albums whose artist contains every word,
// case-insensitively, ordered by artist.
func SearchArtists(tx *sql.Tx, words []string, limit int) ([]Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums`
	var args []interface{}
	for i, word := range words {
		if i == 0 {
			query += ` WHERE`
		} else {
			query += ` AND`
		}
		query += ` artist LIKE ?`
		args = append(args, "%"+word+"%")
	}
	query += ` ORDER BY artist LIMIT ?`
	args = append(args, limit)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlbums(rows)
}

// Search limits. The candidate query fetches generously; the scored result
// is truncated much harder.
const (
	searchQueryLimit  = 1000
	searchReturnLimit = 100
)

// SearchTracks returns tracks whose title, artist or album title contains
// every word. Candidates are re-ranked by match quality: an exact word in
// the track title scores 4, a substring of the title 3, an album-only match
// 2 and an artist match 1, summed across words. The best 100 are returned.
func SearchTracks(tx *sql.Tx, words []string) ([]Track, error) {
	query := `SELECT ` + qualifiedTrackColumns() + ` FROM tracks
		JOIN albums ON albums.id = tracks.album_id`
	var args []interface{}
	for i, word := range words {
		if i == 0 {
			query += ` WHERE`
		} else {
			query += ` AND`
		}
		query += ` (tracks.title LIKE ? OR albums.title LIKE ? OR tracks.artist LIKE ?)`
		pattern := "%" + word + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query += ` LIMIT ?`
	args = append(args, searchQueryLimit)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks, err := collectTracks(rows)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	scores := make(map[int64]int, len(tracks))
	for _, t := range tracks {
		scores[t.ID] = scoreTrack(t, lowered)
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		return scores[tracks[i].ID] > scores[tracks[j].ID]
	})
	if len(tracks) > searchReturnLimit {
		tracks = tracks[:searchReturnLimit]
	}
	return tracks, nil
}

func scoreTrack(t Track, words []string) int {
	title := strings.ToLower(t.Title)
	titleWords := strings.Fields(title)
	artist := strings.ToLower(t.Artist)

	score := 0
	for _, word := range words {
		switch {
		case strings.Contains(title, word):
			if containsWord(titleWords, word) {
				score += 4
			} else {
				score += 3
			}
		case !strings.Contains(artist, word):
			score += 2
		default:
			score += 1
		}
	}
	return score
}

func containsWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

// qualifiedTrackColumns prefixes trackColumns with the tracks table for
// queries that join albums.
func qualifiedTrackColumns() string {
	cols := strings.Split(trackColumns, ",")
	for i, c := range cols {
		cols[i] = "tracks." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
