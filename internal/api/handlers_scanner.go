package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/piju/piju-server/internal/store"
	"github.com/piju/piju-server/internal/worker"
)

func (s *Server) postScannerScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dir string `json:"dir"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	dir := filepath.Join(s.cfg.MusicDir, body.Dir)
	if !strings.HasPrefix(dir, filepath.Clean(s.cfg.MusicDir)) {
		writeError(w, r, fmt.Errorf("directory %q is outside the music directory: %w", body.Dir, store.ErrBadInput))
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		writeError(w, r, fmt.Errorf("directory %q does not exist: %w", body.Dir, store.ErrBadInput))
		return
	}

	s.worker.Enqueue(worker.Request{Kind: worker.ScanDirectory, Dir: dir})
	writeNoContent(w)
}

func (s *Server) postScannerTidy(w http.ResponseWriter, r *http.Request) {
	s.worker.Enqueue(worker.Request{Kind: worker.DeleteMissingTracks})
	s.worker.Enqueue(worker.Request{Kind: worker.DeleteAlbumsWithoutTracks})
	writeNoContent(w)
}
