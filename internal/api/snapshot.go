package api

import (
	"database/sql"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/player"
	"github.com/piju/piju-server/internal/store"
)

// APIVersion is reported in every snapshot so clients can detect a server
// they are too old or too new for.
const APIVersion = "7.0"

// buildSnapshot assembles the now-playing document served by GET / and
// pushed over the websocket. Serialized by s.snapMu so peers observe
// snapshots in production order.
func (s *Server) buildSnapshot() (map[string]interface{}, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	current := s.coordinator.Current()

	rtn := map[string]interface{}{
		"WorkerStatus":      s.worker.Status(),
		"PlayerStatus":      string(current.CurrentStatus()),
		"PlayerVolume":      current.CurrentVolume(),
		"MaximumTrackIndex": current.NumberOfTracks(),
		"ApiVersion":        APIVersion,
	}
	if idx := current.CurrentTrackIndex(); idx >= 0 {
		rtn["CurrentTrackIndex"] = idx + 1
	} else {
		rtn["CurrentTrackIndex"] = nil
	}

	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		albums, err := store.CountAlbums(tx)
		if err != nil {
			return err
		}
		artworks, err := store.CountArtworks(tx)
		if err != nil {
			return err
		}
		tracks, err := store.CountTracks(tx)
		if err != nil {
			return err
		}
		rtn["NumberAlbums"] = albums
		rtn["NumberArtworks"] = artworks
		rtn["NumberTracks"] = tracks

		if s.coordinator.IsStreaming() {
			s.streamSnapshot(rtn)
			return nil
		}
		return s.fileSnapshot(tx, rtn)
	})
	if err != nil {
		return nil, err
	}
	return rtn, nil
}

func (s *Server) fileSnapshot(tx *sql.Tx, rtn map[string]interface{}) error {
	rtn["CurrentTracklistUri"] = s.filePlayer.TracklistIdentifier()
	item, ok := s.filePlayer.CurrentItem()
	if !ok {
		rtn["CurrentTrack"] = map[string]interface{}{}
		rtn["CurrentArtwork"] = nil
		return nil
	}
	track, err := jsonQueuedItem(tx, item, false)
	if err != nil {
		return err
	}
	rtn["CurrentTrack"] = track
	rtn["CurrentArtwork"] = track["artwork"]
	return nil
}

func (s *Server) streamSnapshot(rtn map[string]interface{}) {
	_, name, artwork, artist, track := s.streamPlayer.CurrentStation()
	rtn["CurrentStream"] = name
	if artwork != "" {
		rtn["CurrentArtwork"] = artwork
	} else {
		rtn["CurrentArtwork"] = nil
	}
	if s.streamPlayer.CurrentStatus() == player.StatusPlaying && artist != "" && track != "" {
		rtn["CurrentTrack"] = map[string]interface{}{
			"artist": artist,
			"title":  track,
		}
	}
}
