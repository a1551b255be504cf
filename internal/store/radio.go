package store

import (
	"database/sql"
	"fmt"
)

const stationColumns = `id, name, url, artwork_url, now_playing_url, now_playing_jq,
	now_playing_artwork_url, now_playing_artwork_jq, sort_order`

func scanStation(row interface{ Scan(...interface{}) error }) (RadioStation, error) {
	var s RadioStation
	var artworkURL, npURL, npJq, npArtURL, npArtJq sql.NullString

	err := row.Scan(&s.ID, &s.Name, &s.URL, &artworkURL, &npURL, &npJq, &npArtURL, &npArtJq,
		&s.SortOrder)
	if err != nil {
		return RadioStation{}, err
	}
	s.ArtworkURL = artworkURL.String
	s.NowPlayingURL = npURL.String
	s.NowPlayingJq = npJq.String
	s.NowPlayingArtworkURL = npArtURL.String
	s.NowPlayingArtworkJq = npArtJq.String
	return s, nil
}

// AddRadioStation appends a station at the end of the sort order.
func AddRadioStation(tx *sql.Tx, s RadioStation) (RadioStation, error) {
	var maxOrder sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(sort_order) FROM radio_stations`).Scan(&maxOrder); err != nil {
		return RadioStation{}, err
	}
	s.SortOrder = maxOrder.Int64 + 1

	res, err := tx.Exec(`INSERT INTO radio_stations
		(name, url, artwork_url, now_playing_url, now_playing_jq,
		 now_playing_artwork_url, now_playing_artwork_jq, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.URL, sqlNullIfEmpty(s.ArtworkURL),
		sqlNullIfEmpty(s.NowPlayingURL), sqlNullIfEmpty(s.NowPlayingJq),
		sqlNullIfEmpty(s.NowPlayingArtworkURL), sqlNullIfEmpty(s.NowPlayingArtworkJq),
		s.SortOrder)
	if err != nil {
		return RadioStation{}, err
	}
	s.ID, err = res.LastInsertId()
	return s, err
}

// UpdateRadioStation rewrites the station's fields. SortOrder is preserved;
// ReorderRadioStations is the only way to change it.
func UpdateRadioStation(tx *sql.Tx, s RadioStation) error {
	res, err := tx.Exec(`UPDATE radio_stations SET
			name = ?, url = ?, artwork_url = ?, now_playing_url = ?, now_playing_jq = ?,
			now_playing_artwork_url = ?, now_playing_artwork_jq = ?
		WHERE id = ?`,
		s.Name, s.URL, sqlNullIfEmpty(s.ArtworkURL),
		sqlNullIfEmpty(s.NowPlayingURL), sqlNullIfEmpty(s.NowPlayingJq),
		sqlNullIfEmpty(s.NowPlayingArtworkURL), sqlNullIfEmpty(s.NowPlayingArtworkJq),
		s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("radio station %d: %w", s.ID, ErrNotFound)
	}
	return nil
}

// DeleteRadioStation removes a station.
func DeleteRadioStation(tx *sql.Tx, id int64) error {
	res, err := tx.Exec(`DELETE FROM radio_stations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("radio station %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetRadioStationByID returns the station for the given id, or ErrNotFound.
func GetRadioStationByID(tx *sql.Tx, id int64) (RadioStation, error) {
	row := tx.QueryRow(`SELECT `+stationColumns+` FROM radio_stations WHERE id = ?`, id)
	s, err := scanStation(row)
	if err == sql.ErrNoRows {
		return RadioStation{}, fmt.Errorf("radio station %d: %w", id, ErrNotFound)
	}
	return s, err
}

// GetAllRadioStations returns every station in sort order.
func GetAllRadioStations(tx *sql.Tx) ([]RadioStation, error) {
	rows, err := tx.Query(`SELECT ` + stationColumns + ` FROM radio_stations ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []RadioStation
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// ReorderRadioStations assigns sort positions following the given id order.
// ids must be a complete permutation of the stored station ids.
func ReorderRadioStations(tx *sql.Tx, ids []int64) error {
	existing, err := GetAllRadioStations(tx)
	if err != nil {
		return err
	}
	if len(ids) != len(existing) {
		return fmt.Errorf("reorder lists %d stations, catalog has %d: %w",
			len(ids), len(existing), ErrBadInput)
	}
	known := map[int64]bool{}
	for _, s := range existing {
		known[s.ID] = true
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		if !known[id] || seen[id] {
			return fmt.Errorf("reorder entry %d: %w", id, ErrBadInput)
		}
		seen[id] = true
	}

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE radio_stations SET sort_order = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}
