// Package worker runs the single background job consumer: directory scans,
// tidy sweeps and downloads all go through one FIFO queue, so at most one
// of them touches the catalog at a time.
package worker

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/scanner"
)

// Request is one job. Exactly one field group is used per variant.
type Request struct {
	Kind Kind

	// ScanDirectory
	Dir string

	// FetchFromYouTube
	URL         string
	DownloadDir string
	Cookies     string
	Done        func(url string, downloads []fetcher.Download)
}

type Kind int

const (
	ScanDirectory Kind = iota
	DeleteMissingTracks
	DeleteAlbumsWithoutTracks
	DeleteArtworkWithoutTracks
	DeleteEmptyGenres
	FetchFromYouTube
)

const queueCapacity = 64

// CachedLookup lets the worker skip a fetch whose results are still on
// disk; the coordinator provides it from the download history.
type CachedLookup func(url string) []fetcher.Download

// Worker drains requests one at a time and publishes a human-readable
// status string through the state-change callback on every transition.
type Worker struct {
	db       *sql.DB
	requests chan Request
	registry *fetcher.Registry
	cached   CachedLookup

	mu       sync.Mutex
	status   string
	onChange func()
}

func New(db *sql.DB, registry *fetcher.Registry, cached CachedLookup) *Worker {
	return &Worker{
		db:       db,
		requests: make(chan Request, queueCapacity),
		registry: registry,
		cached:   cached,
		status:   "Not started",
	}
}

func (w *Worker) SetStateChangeCallback(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Status is the current job description, "Idle" between jobs.
func (w *Worker) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Worker) setStatus(status string) {
	w.mu.Lock()
	w.status = status
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Enqueue adds a job to the FIFO queue.
func (w *Worker) Enqueue(req Request) {
	w.requests <- req
}

// Start launches the consumer goroutine. Jobs are uninterruptible; a
// failure is logged and the loop continues with the next request.
func (w *Worker) Start() {
	go w.run()
}

func (w *Worker) run() {
	for {
		w.setStatus("Idle")
		req, ok := <-w.requests
		if !ok {
			return
		}
		if err := w.handle(req); err != nil {
			log.Error().Int("kind", int(req.Kind)).Err(err).Msg("background job failed")
		}
	}
}

// Close stops the consumer after the queued jobs drain.
func (w *Worker) Close() {
	close(w.requests)
}

func (w *Worker) handle(req Request) error {
	switch req.Kind {
	case ScanDirectory:
		w.setStatus(fmt.Sprintf("Scanning %s", req.Dir))
		count, err := scanner.ScanDirectory(w.db, req.Dir)
		log.Info().Str("dir", req.Dir).Int("files", count).Msg("scan finished")
		return err

	case DeleteMissingTracks:
		w.setStatus("Deleting missing tracks")
		_, err := scanner.DeleteMissingTracks(w.db)
		return err

	case DeleteAlbumsWithoutTracks:
		w.setStatus("Deleting albums without tracks")
		_, err := scanner.DeleteAlbumsWithoutTracks(w.db)
		return err

	case DeleteArtworkWithoutTracks:
		w.setStatus("Deleting artwork without tracks")
		_, err := scanner.DeleteArtworkWithoutTracks(w.db)
		return err

	case DeleteEmptyGenres:
		w.setStatus("Deleting genres without albums/playlists")
		_, err := scanner.DeleteEmptyGenres(w.db)
		return err

	case FetchFromYouTube:
		downloads := w.cached(req.URL)
		if downloads == nil {
			w.setStatus(fmt.Sprintf("Fetching %s to %s", req.URL, req.DownloadDir))
			downloads = fetcher.FetchAudio(w.registry, req.URL, req.DownloadDir, req.Cookies)
		}
		if req.Done != nil {
			req.Done(req.URL, downloads)
		}
		return nil

	default:
		return fmt.Errorf("unrecognised request kind %d", req.Kind)
	}
}
