package api

import (
	"database/sql"
	"fmt"
	"net/http"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/store"
)

type radioStationBody struct {
	Name                 string `json:"name"`
	URL                  string `json:"url"`
	Artwork              string `json:"artwork"`
	NowPlayingURL        string `json:"now_playing_url"`
	NowPlayingJq         string `json:"now_playing_jq"`
	NowPlayingArtworkURL string `json:"now_playing_artwork_url"`
	NowPlayingArtworkJq  string `json:"now_playing_artwork_jq"`
}

func (b radioStationBody) toStation() (store.RadioStation, error) {
	if b.Name == "" {
		return store.RadioStation{}, fmt.Errorf("missing station name: %w", store.ErrBadInput)
	}
	if b.URL == "" {
		return store.RadioStation{}, fmt.Errorf("missing station URL: %w", store.ErrBadInput)
	}
	return store.RadioStation{
		Name:                 b.Name,
		URL:                  b.URL,
		ArtworkURL:           b.Artwork,
		NowPlayingURL:        b.NowPlayingURL,
		NowPlayingJq:         b.NowPlayingJq,
		NowPlayingArtworkURL: b.NowPlayingArtworkURL,
		NowPlayingArtworkJq:  b.NowPlayingArtworkJq,
	}, nil
}

func (s *Server) getAllRadioStations(w http.ResponseWriter, r *http.Request) {
	var rtn []map[string]interface{}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		stations, err := store.GetAllRadioStations(tx)
		if err != nil {
			return err
		}
		rtn = make([]map[string]interface{}, 0, len(stations))
		for _, station := range stations {
			rtn = append(rtn, jsonRadioStation(station, false))
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rtn)
}

func (s *Server) postRadioStation(w http.ResponseWriter, r *http.Request) {
	var body radioStationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	station, err := body.toStation()
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		station, err = store.AddRadioStation(tx, station)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"id": station.ID})
}

// putRadioOrder reorders all stations. The body is the complete list of
// station ids or links in the desired order.
func (s *Server) putRadioOrder(w http.ResponseWriter, r *http.Request) {
	var refs []interface{}
	if err := decodeBody(r, &refs); err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id := ExtractID(ref)
		if id == nil {
			writeError(w, r, fmt.Errorf("unrecognised station reference: %w", store.ErrBadInput))
			return
		}
		ids = append(ids, *id)
	}

	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		return store.ReorderRadioStations(tx, ids)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) getRadioStation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	level := ParseInformationLevel(r.URL.Query().Get("urls"), InfoLinks)

	var station store.RadioStation
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		var err error
		station, err = store.GetRadioStationByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, jsonRadioStation(station, level >= InfoAll))
}

func (s *Server) putRadioStation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body radioStationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	station, err := body.toStation()
	if err != nil {
		writeError(w, r, err)
		return
	}
	station.ID = id

	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if err := store.UpdateRadioStation(tx, station); err != nil {
			return err
		}
		station, err = store.GetRadioStationByID(tx, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, jsonRadioStation(station, false))
}

func (s *Server) deleteRadioStation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		return store.DeleteRadioStation(tx, id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
