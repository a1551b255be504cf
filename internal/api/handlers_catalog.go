package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
)

func (s *Server) getAllAlbums(w http.ResponseWriter, r *http.Request) {
	var rtn []map[string]interface{}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		albums, err := store.GetAllAlbums(tx)
		if err != nil {
			return err
		}
		rtn = make([]map[string]interface{}, 0, len(albums))
		for _, a := range albums {
			j, err := jsonAlbum(tx, a, InfoNone)
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

func (s *Server) getAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	level := ParseInformationLevel(r.URL.Query().Get("tracks"), InfoLinks)

	var rtn map[string]interface{}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		album, err := store.GetAlbumByID(tx, id)
		if err != nil {
			return err
		}
		rtn, err = jsonAlbum(tx, album, level)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) putAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		ReleaseDate *int64 `json:"releasedate"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		return store.SetAlbumReleaseYear(tx, id, body.ReleaseDate)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) getArtist(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, store.ErrBadInput)
		return
	}
	level := ParseInformationLevel(r.URL.Query().Get("tracks"), InfoLinks)
	exact := parseBool(r.URL.Query().Get("exact"), true)

	rtn := map[string][]map[string]interface{}{}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var albums []store.Album
		var err error
		if strings.EqualFold(name, "various artists") {
			albums, err = store.GetCompilations(tx, -1)
		} else {
			albums, err = store.GetArtistAlbums(tx, name, !exact, -1)
		}
		if err != nil {
			return err
		}
		if len(albums) == 0 {
			return fmt.Errorf("no matching artist: %w", store.ErrNotFound)
		}
		for _, a := range albums {
			j, err := jsonAlbum(tx, a, level)
			if err != nil {
				return err
			}
			key := ""
			if a.Artist != nil {
				key = *a.Artist
			}
			rtn[key] = append(rtn[key], j)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

var (
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	pngMagic  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
)

func (s *Server) getArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var artwork store.Artwork
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var err error
		artwork, err = store.GetArtworkByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	var data []byte
	var mime string
	switch {
	case artwork.Path != "":
		data, err = os.ReadFile(artwork.Path)
		if err != nil {
			writeError(w, r, fmt.Errorf("artwork file: %w", store.ErrNotFound))
			return
		}
		switch strings.ToLower(filepath.Ext(artwork.Path)) {
		case ".png":
			mime = "image/png"
		default:
			mime = "image/jpeg"
		}
	case len(artwork.Blob) > 0:
		data = artwork.Blob
		switch {
		case bytes.HasPrefix(data, jpegMagic):
			mime = "image/jpeg"
		case bytes.HasPrefix(data, pngMagic):
			mime = "image/png"
		default:
			writeError(w, r, fmt.Errorf("artwork %d has unknown image format: %w", id, store.ErrCorrupt))
			return
		}
	default:
		writeError(w, r, fmt.Errorf("artwork %d is empty: %w", id, store.ErrCorrupt))
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "max-age=300")
	w.Write(data) //nolint:errcheck
}

func (s *Server) getArtworkInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var artwork store.Artwork
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var err error
		artwork, err = store.GetArtworkByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"width":  artwork.Width,
		"height": artwork.Height,
		"image":  FormatLink("artwork", id),
	})
}

func (s *Server) getDownloadHistory(w http.ResponseWriter, r *http.Request) {
	rtn := []map[string]interface{}{}
	for _, u := range s.history.URLs() {
		downloads := s.history.GetInfo(u)
		if len(downloads) == 0 {
			rtn = append(rtn, map[string]interface{}{"url": u})
			continue
		}
		// Most recent file first within one fetch.
		for i := len(downloads) - 1; i >= 0; i-- {
			dl := downloads[i]
			rtn = append(rtn, map[string]interface{}{
				"url":     dl.URL,
				"artist":  dl.Artist,
				"title":   dl.Title,
				"artwork": dl.Artwork,
			})
		}
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) getAllGenres(w http.ResponseWriter, r *http.Request) {
	var rtn []map[string]interface{}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		genres, err := store.GetAllGenres(tx)
		if err != nil {
			return err
		}
		rtn = make([]map[string]interface{}, 0, len(genres))
		for _, g := range genres {
			j, err := jsonGenre(tx, g, InfoNone, InfoNone)
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

func (s *Server) getGenre(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	albumLevel := ParseInformationLevel(r.URL.Query().Get("albums"), InfoLinks)
	playlistLevel := ParseInformationLevel(r.URL.Query().Get("playlists"), InfoLinks)

	var rtn map[string]interface{}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		genre, err := store.GetGenreByID(tx, id)
		if err != nil {
			return err
		}
		rtn, err = jsonGenre(tx, genre, albumLevel, playlistLevel)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) getMP3(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var track store.Track
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var err error
		track, err = store.GetTrackByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := os.ReadFile(track.Filepath)
	if err != nil {
		writeError(w, r, fmt.Errorf("track file: %w", store.ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data) //nolint:errcheck
}

// normalizePunctuation folds curly quotes into their ASCII forms so a
// search typed on a phone keyboard matches straight-quoted tags.
func normalizePunctuation(s string) string {
	return strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
	).Replace(s)
}

func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	query, err := url.PathUnescape(chi.URLParam(r, "query"))
	if err != nil {
		writeError(w, r, store.ErrBadInput)
		return
	}
	words := strings.Fields(normalizePunctuation(query))
	wantAlbums := parseBool(r.URL.Query().Get("albums"), true)
	wantArtists := parseBool(r.URL.Query().Get("artists"), true)
	wantTracks := parseBool(r.URL.Query().Get("tracks"), true)

	rtn := map[string]interface{}{}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if wantAlbums {
			albums, err := store.SearchAlbums(tx, words, searchLimit)
			if err != nil {
				return err
			}
			out := make([]map[string]interface{}, 0, len(albums))
			for _, a := range albums {
				j, err := jsonAlbum(tx, a, InfoNone)
				if err != nil {
					return err
				}
				out = append(out, j)
			}
			rtn["albums"] = out
		}
		if wantArtists {
			albums, err := store.SearchArtists(tx, words, searchLimit)
			if err != nil {
				return err
			}
			seen := map[string]bool{}
			out := []map[string]interface{}{}
			for _, a := range albums {
				if a.Artist == nil || seen[*a.Artist] {
					continue
				}
				seen[*a.Artist] = true
				out = append(out, map[string]interface{}{
					"name": *a.Artist,
					"link": "/artists/" + url.PathEscape(*a.Artist),
				})
			}
			rtn["artists"] = out
		}
		if wantTracks {
			tracks, err := store.SearchTracks(tx, words)
			if err != nil {
				return err
			}
			out := make([]map[string]interface{}, 0, len(tracks))
			for _, t := range tracks {
				out = append(out, jsonTrack(t, false))
			}
			rtn["tracks"] = out
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

// searchLimit caps album and artist candidate queries.
const searchLimit = 100

func (s *Server) getAllTracks(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			limit = n
		}
	}

	var rtn []map[string]interface{}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		tracks, err := store.GetAllTracks(tx, limit)
		if err != nil {
			return err
		}
		rtn = make([]map[string]interface{}, 0, len(tracks))
		for _, t := range tracks {
			rtn = append(rtn, jsonTrack(t, false))
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	level := ParseInformationLevel(r.URL.Query().Get("infolevel"), InfoAll)

	var track store.Track
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var err error
		track, err = store.GetTrackByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, jsonTrack(track, level == InfoDebug))
}
