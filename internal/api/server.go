// Package api is the HTTP and websocket surface. Handlers are thin
// adapters: validate, extract ids, open a catalog transaction, call the
// store or the player coordinator, serialize the result.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/config"
	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/player"
	"github.com/piju/piju-server/internal/store"
	"github.com/piju/piju-server/internal/worker"
)

type Server struct {
	db           *sql.DB
	cfg          *config.Config
	coordinator  *player.Coordinator
	filePlayer   *player.FilePlayer
	streamPlayer *player.StreamPlayer
	worker       *worker.Worker
	history      *fetcher.History
	registry     *fetcher.Registry
	hub          *hub

	// snapMu serializes snapshot builds; publishMu serializes the
	// build-then-broadcast sequence so peers never see interleaved writes.
	snapMu    sync.Mutex
	publishMu sync.Mutex
}

func NewServer(db *sql.DB, cfg *config.Config, coordinator *player.Coordinator,
	filePlayer *player.FilePlayer, streamPlayer *player.StreamPlayer,
	w *worker.Worker, history *fetcher.History, registry *fetcher.Registry) *Server {
	s := &Server{
		db:           db,
		cfg:          cfg,
		coordinator:  coordinator,
		filePlayer:   filePlayer,
		streamPlayer: streamPlayer,
		worker:       w,
		history:      history,
		registry:     registry,
		hub:          newHub(),
	}

	filePlayer.SetStateChangeCallback(s.PublishState)
	streamPlayer.SetStateChangeCallback(s.PublishState)
	w.SetStateChangeCallback(s.PublishState)
	return s
}

// PublishState pushes a fresh snapshot to every websocket peer. It is the
// state-change callback for the worker and both players.
func (s *Server) PublishState() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	snapshot, err := s.buildSnapshot()
	if err != nil {
		log.Error().Err(err).Msg("snapshot build failed")
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("snapshot marshal failed")
		return
	}
	s.hub.broadcast(data)
}

// Router assembles the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/", s.getStatus)
	r.Get("/ws", s.getWebsocket)

	r.Get("/albums/", s.getAllAlbums)
	r.Get("/albums/{id}", s.getAlbum)
	r.Put("/albums/{id}", s.putAlbum)

	r.Get("/artists/{name}", s.getArtist)
	r.Get("/artwork/{id}", s.getArtwork)
	r.Get("/artworkinfo/{id}", s.getArtworkInfo)
	r.Get("/downloadhistory", s.getDownloadHistory)

	r.Get("/genres/", s.getAllGenres)
	r.Get("/genres/{id}", s.getGenre)

	r.Get("/mp3/{id}", s.getMP3)

	r.Post("/player/play", s.postPlayerPlay)
	r.Post("/player/pause", s.postPlayerPause)
	r.Post("/player/resume", s.postPlayerResume)
	r.Post("/player/stop", s.postPlayerStop)
	r.Post("/player/next", s.postPlayerNext)
	r.Post("/player/previous", s.postPlayerPrevious)
	r.Get("/player/volume", s.getPlayerVolume)
	r.Post("/player/volume", s.postPlayerVolume)

	r.Get("/playlists/", s.getAllPlaylists)
	r.Post("/playlists/", s.postPlaylist)
	r.Get("/playlists/{id}", s.getPlaylist)
	r.Put("/playlists/{id}", s.putPlaylist)
	r.Delete("/playlists/{id}", s.deletePlaylist)

	r.Get("/queue/", s.getQueue)
	r.Delete("/queue/", s.deleteQueue)
	r.Put("/queue/", s.putQueue)
	r.Options("/queue/", preflight("GET, DELETE, OPTIONS, PUT"))

	r.Get("/radio/", s.getAllRadioStations)
	r.Post("/radio/", s.postRadioStation)
	r.Put("/radio/", s.putRadioOrder)
	r.Options("/radio/", preflight("GET, OPTIONS, POST, PUT"))
	r.Get("/radio/{id}", s.getRadioStation)
	r.Put("/radio/{id}", s.putRadioStation)
	r.Delete("/radio/{id}", s.deleteRadioStation)

	r.Post("/scanner/scan", s.postScannerScan)
	r.Post("/scanner/tidy", s.postScannerTidy)

	r.Get("/search/{query}", s.getSearch)

	r.Get("/tracks/", s.getAllTracks)
	r.Get("/tracks/{id}", s.getTrack)

	return r
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.buildSnapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot)
}

func (s *Server) getWebsocket(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.buildSnapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.serve(w, r, data)
}

// idParam reads a numeric path parameter. A non-numeric value can never
// name a catalog entity, so it reports not-found rather than bad input.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, store.ErrNotFound
	}
	return id, nil
}
