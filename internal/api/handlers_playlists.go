package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog/log"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
	"github.com/piju/piju-server/internal/tags"
)

type playlistBody struct {
	Title  string        `json:"title"`
	Tracks []interface{} `json:"tracks"`
	Files  []string      `json:"files"`
}

// resolvePlaylistTracks turns a playlist request into catalog track ids.
// Tracks are referenced by id/link, or by file path relative to the music
// directory; unknown paths are reported back rather than failing the
// whole import.
func (s *Server) resolvePlaylistTracks(tx *sql.Tx, body playlistBody) ([]int64, []string, error) {
	if body.Title == "" {
		return nil, nil, fmt.Errorf("playlist title must be specified: %w", store.ErrBadInput)
	}
	if len(body.Tracks) == 0 && len(body.Files) == 0 {
		return nil, nil, fmt.Errorf("either tracks or files must be specified: %w", store.ErrBadInput)
	}
	if len(body.Tracks) > 0 && len(body.Files) > 0 {
		return nil, nil, fmt.Errorf("only one of tracks and files is permitted: %w", store.ErrBadInput)
	}

	var trackIDs []int64
	missing := []string{}

	if len(body.Files) > 0 {
		for _, rel := range body.Files {
			// The catalog stores NFC paths; match whatever form the
			// client sent.
			full := tags.NormalizePath(filepath.Join(s.cfg.MusicDir, rel))
			track, err := store.GetTrackByFilepath(tx, full)
			if err != nil {
				log.Warn().Str("path", rel).Str("full", full).Msg("playlist file not in catalog")
				missing = append(missing, rel)
				continue
			}
			trackIDs = append(trackIDs, track.ID)
		}
	} else {
		for _, ref := range body.Tracks {
			id := ExtractID(ref)
			if id == nil {
				return nil, nil, fmt.Errorf("invalid track reference: %w", store.ErrBadInput)
			}
			if _, err := store.GetTrackByID(tx, *id); err != nil {
				return nil, nil, err
			}
			trackIDs = append(trackIDs, *id)
		}
	}

	if len(trackIDs) == 0 {
		return nil, nil, fmt.Errorf("no tracks found, refusing an empty playlist: %w", store.ErrBadInput)
	}
	return trackIDs, missing, nil
}

func importResponse(w http.ResponseWriter, r *http.Request, p store.Playlist, missing []string) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"playlistid": p.ID,
		"nrtracks":   len(p.Entries),
		"missing":    missing,
	})
}

func (s *Server) getAllPlaylists(w http.ResponseWriter, r *http.Request) {
	genreLevel := ParseInformationLevel(r.URL.Query().Get("genres"), InfoNone)
	trackLevel := ParseInformationLevel(r.URL.Query().Get("tracks"), InfoNone)

	var rtn []map[string]interface{}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		playlists, err := store.GetAllPlaylists(tx)
		if err != nil {
			return err
		}
		rtn = make([]map[string]interface{}, 0, len(playlists))
		for _, p := range playlists {
			j, err := jsonPlaylist(tx, p, genreLevel, trackLevel)
			if err != nil {
				return err
			}
			rtn = append(rtn, j)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) postPlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var playlist store.Playlist
	var missing []string
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		trackIDs, miss, err := s.resolvePlaylistTracks(tx, body)
		if err != nil {
			return err
		}
		missing = miss
		playlist, err = store.CreatePlaylist(tx, body.Title, trackIDs)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	importResponse(w, r, playlist, missing)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	genreLevel := ParseInformationLevel(r.URL.Query().Get("genres"), InfoNone)
	trackLevel := ParseInformationLevel(r.URL.Query().Get("tracks"), InfoLinks)

	var rtn map[string]interface{}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		playlist, err := store.GetPlaylistByID(tx, id)
		if err != nil {
			return err
		}
		rtn, err = jsonPlaylist(tx, playlist, genreLevel, trackLevel)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) putPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body playlistBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var playlist store.Playlist
	var missing []string
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		trackIDs, miss, err := s.resolvePlaylistTracks(tx, body)
		if err != nil {
			return err
		}
		missing = miss
		playlist, err = store.UpdatePlaylist(tx, id, body.Title, trackIDs)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	importResponse(w, r, playlist, missing)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		return store.DeletePlaylist(tx, id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
