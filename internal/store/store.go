// Package store implements the catalog: tracks, albums, artwork, genres,
// playlists and radio stations persisted in SQLite.
//
// Every operation runs against a caller-supplied *sql.Tx so that one logical
// request (an HTTP handler, one worker step) commits or rolls back as a unit.
// Nothing about the storage engine leaks past this package.
package store

import (
	"time"
)

// Track is a catalog row. Pointer fields are nullable columns.
type Track struct {
	ID                  int64
	Filepath            string
	Title               string
	DurationMS          int64
	Composer            string
	Artist              string
	GenreID             *int64
	VolumeNumber        *int64
	TrackCount          *int64
	TrackNumber         *int64
	ReleaseDate         *time.Time
	MusicBrainzTrackID  string
	MusicBrainzArtistID string
	AlbumID             *int64
	ArtworkID           *int64
}

// TrackRef is an ingestion reference for EnsureTrackExists. It carries the
// genre by name; the store resolves it to a genre row.
type TrackRef struct {
	ID                  int64 // 0 means "not yet known"
	Filepath            string
	Title               string
	DurationMS          int64
	Composer            string
	Artist              string
	Genre               string // genre name, empty for none
	VolumeNumber        *int64
	TrackCount          *int64
	TrackNumber         *int64
	ReleaseDate         *time.Time
	MusicBrainzTrackID  string
	MusicBrainzArtistID string
	AlbumID             *int64
	ArtworkID           *int64
}

// Album is a catalog row. Artist is nil exactly when IsCompilation is set;
// (Title, Artist) is otherwise the album identity.
type Album struct {
	ID                       int64
	Title                    string
	Artist                   *string
	VolumeCount              *int64
	ReleaseYear              *int64
	IsCompilation            bool
	MusicBrainzAlbumID       string
	MusicBrainzAlbumArtistID string
}

// Genre is a catalog row with a unique name.
type Genre struct {
	ID   int64
	Name string
}

// Artwork is a catalog row. Exactly one of Path and Blob is populated.
// BlobHash is a SHA-1 over Blob used as a dedup probe, never as a trust root.
type Artwork struct {
	ID       int64
	Path     string
	Blob     []byte
	BlobHash string
	Width    int64
	Height   int64
}

// PlaylistEntry is one ordered member of a playlist.
type PlaylistEntry struct {
	ID            int64
	TrackID       int64
	PlaylistIndex int64
}

// Playlist is a catalog row plus its ordered entries and derived genre set.
type Playlist struct {
	ID       int64
	Title    string
	Entries  []PlaylistEntry
	GenreIDs []int64
}

// RadioStation is a catalog row. SortOrder drives stable enumeration.
type RadioStation struct {
	ID                   int64
	Name                 string
	URL                  string
	ArtworkURL           string
	NowPlayingURL        string
	NowPlayingJq         string
	NowPlayingArtworkURL string
	NowPlayingArtworkJq  string
	SortOrder            int64
}

// releaseDateFormat is how track release dates are stored.
const releaseDateFormat = time.RFC3339

func formatReleaseDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(releaseDateFormat)
}

func parseReleaseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(releaseDateFormat, *s)
	if err != nil {
		return nil
	}
	return &t
}
