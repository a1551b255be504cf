package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/player"
	"github.com/piju/piju-server/internal/store"
)

func (s *Server) postPlayerPlay(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := decodeBody(r, &data); err != nil || len(data) == 0 {
		writeError(w, r, store.ErrBadInput)
		return
	}

	req := player.PlayRequest{
		AlbumID:    ExtractID(data["album"]),
		PlaylistID: ExtractID(data["playlist"]),
		TrackID:    ExtractID(data["track"]),
		RadioID:    ExtractID(data["radio"]),
	}
	if qp := ExtractID(data["queuepos"]); qp != nil {
		idx := int(*qp)
		req.QueueIndex = &idx
	}
	if disk := ExtractID(data["disknr"]); disk != nil {
		d := int(*disk)
		req.DiskNr = &d
	}
	if u, ok := data["url"].(string); ok {
		req.YoutubeURL = u
	}

	if err := s.coordinator.Play(req); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) postPlayerPause(w http.ResponseWriter, r *http.Request) {
	s.coordinator.Pause()
	writeNoContent(w)
}

func (s *Server) postPlayerResume(w http.ResponseWriter, r *http.Request) {
	// The body is optional; {player: radio|local} forces a back-end.
	var body struct {
		Player string `json:"player"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
	}
	if err := s.coordinator.Resume(body.Player); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) postPlayerStop(w http.ResponseWriter, r *http.Request) {
	s.coordinator.Stop()
	writeNoContent(w)
}

func (s *Server) postPlayerNext(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Next(); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) postPlayerPrevious(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Prev(); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) getPlayerVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]int{
		"volume": s.coordinator.Current().CurrentVolume(),
	})
}

func (s *Server) postPlayerVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume *int `json:"volume"`
	}
	if err := decodeBody(r, &body); err != nil || body.Volume == nil {
		writeError(w, r, store.ErrBadInput)
		return
	}
	if err := s.coordinator.SetVolume(*body.Volume); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.coordinator.QueueGet()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rtn := make([]map[string]interface{}, 0, len(items))
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		for _, item := range items {
			j, err := jsonQueuedItem(tx, item, false)
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

func (s *Server) deleteQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int        `json:"index"`
		Track interface{} `json:"track"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	trackID := ExtractID(body.Track)
	if body.Index == nil || trackID == nil {
		writeError(w, r, store.ErrBadInput)
		return
	}
	if err := s.coordinator.QueueDelete(*body.Index, *trackID); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// putQueue handles three request shapes: {track} appends a catalog track,
// {url} downloads and appends, {queue: [...]} reorders wholesale.
func (s *Server) putQueue(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := decodeBody(r, &data); err != nil || len(data) == 0 {
		writeError(w, r, store.ErrBadInput)
		return
	}

	switch {
	case ExtractID(data["track"]) != nil:
		if err := s.coordinator.QueueAppendTrack(*ExtractID(data["track"])); err != nil {
			writeError(w, r, err)
			return
		}

	case data["album"] != nil:
		albumID := ExtractID(data["album"])
		if albumID == nil {
			writeError(w, r, store.ErrBadInput)
			return
		}
		var disk *int
		if d := ExtractID(data["disk"]); d != nil {
			v := int(*d)
			disk = &v
		}
		if err := s.coordinator.QueueAppendAlbum(*albumID, disk); err != nil {
			writeError(w, r, err)
			return
		}

	case data["url"] != nil:
		u, ok := data["url"].(string)
		if !ok || u == "" {
			writeError(w, r, store.ErrBadInput)
			return
		}
		s.history.Add(u)
		if err := s.coordinator.QueueAppendURL(u); err != nil {
			writeError(w, r, err)
			return
		}

	case data["queue"] != nil:
		raw, ok := data["queue"].([]interface{})
		if !ok {
			writeError(w, r, store.ErrBadInput)
			return
		}
		ids := make([]int64, 0, len(raw))
		for _, v := range raw {
			id := ExtractID(v)
			if id == nil {
				writeError(w, r, store.ErrBadInput)
				return
			}
			ids = append(ids, *id)
		}
		if err := s.coordinator.QueueReplace(ids); err != nil {
			writeError(w, r, err)
			return
		}

	default:
		writeError(w, r, store.ErrBadInput)
		return
	}
	writeNoContent(w)
}
