package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/store"
)

// writeJSON sends v as JSON, gzip-compressed when the client advertises
// support. Content-Length is always set so clients can preallocate.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("response marshal failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip") {
		var buf bytes.Buffer
		zw, _ := gzip.NewWriterLevel(&buf, 5)
		zw.Write(body) //nolint:errcheck
		zw.Close()     //nolint:errcheck
		body = buf.Bytes()
		w.Header().Set("Content-Encoding", "gzip")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	w.Write(body) //nolint:errcheck
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps the store's error kinds onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrBadInput):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, store.ErrCorrupt):
		code = http.StatusInternalServerError
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, r, code, map[string]string{"error": err.Error()})
}

// decodeBody parses a JSON request body into dst. An empty or absent body
// is bad input; every mutating endpoint requires one.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return store.ErrBadInput
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return store.ErrBadInput
	}
	return nil
}
