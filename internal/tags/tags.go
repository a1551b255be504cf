// Package tags reads music file metadata into catalog references.
// It consolidates tag parsing, duration probing and cover art discovery
// for the MP3 and M4A formats the scanner ingests.
package tags

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/piju/piju-server/internal/store"
)

// File extensions the scanner ingests.
const (
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
)

// Supported reports whether the path has an ingestable audio extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtM4A:
		return true
	}
	return false
}

// NormalizePath puts a filepath into NFC form. Catalog paths are stored
// and compared in NFC so that macOS-style decomposed names cannot create
// duplicate rows.
func NormalizePath(path string) string {
	return norm.NFC.String(path)
}

// Result is what one file contributes to the catalog: the track itself,
// the album it claims to belong to and any cover art that was found.
type Result struct {
	Track   store.TrackRef
	Album   store.Album
	Artwork *store.Artwork
}
