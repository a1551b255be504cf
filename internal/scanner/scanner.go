// Package scanner walks the music directory and reconciles what it finds
// with the catalog. It also hosts the tidy sweeps that remove entries whose
// backing files have gone away.
package scanner

import (
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog/log"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
	"github.com/piju/piju-server/internal/tags"
)

// ScanDirectory ingests every supported audio file under root. Files whose
// tags cannot be read are skipped; an unreadable file never aborts the walk.
// Returns the number of files visited.
func ScanDirectory(db *sql.DB, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !tags.Supported(path) {
			return nil
		}
		count++
		if err := scanFile(db, path); err != nil {
			log.Error().Str("path", path).Err(err).Msg("scan failed")
		}
		return nil
	})
	return count, err
}

func scanFile(db *sql.DB, path string) error {
	result, err := tags.Read(path)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	return dbutil.WithTx(db, func(tx *sql.Tx) error {
		existing, err := store.GetTrackByFilepath(tx, result.Track.Filepath)
		switch {
		case err == nil:
			result.Track.ID = existing.ID
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		_, err = SetCrossRefs(tx, result.Track, result.Album, result.Artwork)
		return err
	})
}

// SetCrossRefs wires one scanned file into the catalog: it resolves the
// album and artwork references, upserts the track, and keeps the album's
// genre set consistent with the tracks it now owns. When an update moves
// the track off an album that is left empty, that album is deleted.
func SetCrossRefs(tx *sql.Tx, trackRef store.TrackRef, albumRef store.Album, artworkRef *store.Artwork) (store.Track, error) {
	album, err := store.EnsureAlbumExists(tx, albumRef)
	if err != nil {
		return store.Track{}, err
	}
	trackRef.AlbumID = &album.ID

	if artworkRef != nil {
		artwork, err := store.EnsureArtworkExists(tx, *artworkRef)
		if err != nil {
			return store.Track{}, err
		}
		trackRef.ArtworkID = &artwork.ID
	} else {
		trackRef.ArtworkID = nil
	}

	var previousAlbumID *int64
	editing := trackRef.ID != 0
	if editing {
		previous, err := store.GetTrackByID(tx, trackRef.ID)
		if err != nil {
			return store.Track{}, err
		}
		previousAlbumID = previous.AlbumID
	}

	track, err := store.EnsureTrackExists(tx, trackRef)
	if err != nil {
		return store.Track{}, err
	}

	if editing {
		if err := recomputeAlbumGenres(tx, album.ID); err != nil {
			return store.Track{}, err
		}
		if previousAlbumID != nil && *previousAlbumID != album.ID {
			if err := deleteAlbumIfEmpty(tx, *previousAlbumID); err != nil {
				return store.Track{}, err
			}
		}
	} else if track.GenreID != nil {
		if err := store.AddAlbumGenre(tx, album.ID, *track.GenreID); err != nil {
			return store.Track{}, err
		}
	}
	return track, nil
}

// recomputeAlbumGenres overwrites the album's genre links with the distinct
// genres of the tracks it currently owns.
func recomputeAlbumGenres(tx *sql.Tx, albumID int64) error {
	owned, err := store.TracksForAlbum(tx, albumID)
	if err != nil {
		return err
	}
	seen := map[int64]bool{}
	var genreIDs []int64
	for _, t := range owned {
		if t.GenreID != nil && !seen[*t.GenreID] {
			seen[*t.GenreID] = true
			genreIDs = append(genreIDs, *t.GenreID)
		}
	}
	return store.SetAlbumGenres(tx, albumID, genreIDs)
}

func deleteAlbumIfEmpty(tx *sql.Tx, albumID int64) error {
	owned, err := store.TracksForAlbum(tx, albumID)
	if err != nil {
		return err
	}
	if len(owned) > 0 {
		return nil
	}
	return store.DeleteAlbum(tx, albumID)
}
