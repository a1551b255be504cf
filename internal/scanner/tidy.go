package scanner

import (
	"database/sql"
	"os"

	"github.com/rs/zerolog/log"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
)

const tidyPageSize = 100

// DeleteMissingTracks walks the catalog in id-paged chunks and removes
// tracks whose file no longer exists on disk. Returns the number removed.
func DeleteMissingTracks(db *sql.DB) (int, error) {
	removed := 0
	startID := int64(1)
	for {
		done := false
		err := dbutil.WithTx(db, func(tx *sql.Tx) error {
			page, err := store.GetAllTracksPaged(tx, startID, tidyPageSize)
			if err != nil {
				return err
			}
			if page == nil {
				done = true
				return nil
			}
			for _, track := range page {
				if _, err := os.Stat(track.Filepath); err == nil {
					continue
				}
				log.Info().Str("path", track.Filepath).Msg("removing missing track")
				if err := store.DeleteTrack(tx, track.ID); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
		if done {
			return removed, nil
		}
		startID += tidyPageSize
	}
}

// DeleteAlbumsWithoutTracks removes albums that own no tracks.
func DeleteAlbumsWithoutTracks(db *sql.DB) (int, error) {
	removed := 0
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		albums, err := store.GetAlbumsWithoutTracks(tx)
		if err != nil {
			return err
		}
		for _, album := range albums {
			if err := store.DeleteAlbum(tx, album.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// DeleteArtworkWithoutTracks removes artwork rows no track references.
// Track deletion already collects orphans; this sweep catches any that
// slipped through.
func DeleteArtworkWithoutTracks(db *sql.DB) (int, error) {
	removed := 0
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		orphans, err := store.GetArtworkWithoutTracks(tx)
		if err != nil {
			return err
		}
		for _, art := range orphans {
			if err := store.DeleteArtwork(tx, art.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// DeleteEmptyGenres removes genres with no albums and no playlists.
func DeleteEmptyGenres(db *sql.DB) (int, error) {
	removed := 0
	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		empty, err := store.GetEmptyGenres(tx)
		if err != nil {
			return err
		}
		for _, genre := range empty {
			if err := store.DeleteGenre(tx, genre.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
