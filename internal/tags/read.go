package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/store"
)

// Read extracts catalog references from a music file. A file whose tags
// cannot be parsed at all is reported as (nil, nil): the scanner skips it
// rather than aborting the whole walk.
func Read(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("unreadable tags, skipping")
		return nil, nil
	}

	durationMS, err := readDurationMS(path)
	if err != nil {
		return nil, fmt.Errorf("probe duration of %s: %w", path, err)
	}

	trackNumber, trackCount := m.Track()
	volumeNumber, volumeCount := m.Disc()
	releaseDate := readReleaseDate(m)
	compilation := isCompilation(m)

	track := store.TrackRef{
		Filepath:            NormalizePath(path),
		Title:               m.Title(),
		DurationMS:          durationMS,
		Composer:            m.Composer(),
		Artist:              m.Artist(),
		Genre:               m.Genre(),
		VolumeNumber:        intPtrIfSet(volumeNumber),
		TrackCount:          intPtrIfSet(trackCount),
		TrackNumber:         intPtrIfSet(trackNumber),
		ReleaseDate:         releaseDate,
		MusicBrainzTrackID:  rawString(m, "musicbrainz_trackid", "MusicBrainz Release Track Id"),
		MusicBrainzArtistID: rawString(m, "musicbrainz_artistid", "MusicBrainz Artist Id"),
	}

	albumArtist := m.AlbumArtist()
	if albumArtist == "" {
		albumArtist = m.Artist()
	}
	album := store.Album{
		Title:                    m.Album(),
		IsCompilation:            compilation,
		VolumeCount:              intPtrIfSet(volumeCount),
		MusicBrainzAlbumID:       rawString(m, "musicbrainz_albumid", "MusicBrainz Album Id"),
		MusicBrainzAlbumArtistID: rawString(m, "musicbrainz_albumartistid", "MusicBrainz Album Artist Id"),
	}
	if !compilation {
		album.Artist = &albumArtist
	}
	if releaseDate != nil {
		year := int64(releaseDate.Year())
		album.ReleaseYear = &year
	} else if y := m.Year(); y != 0 {
		year := int64(y)
		album.ReleaseYear = &year
	}

	return &Result{
		Track:   track,
		Album:   album,
		Artwork: readArtwork(path, m),
	}, nil
}

// readReleaseDate looks for a full date string in the raw frames before
// falling back to the bare year.
func readReleaseDate(m tag.Metadata) *time.Time {
	candidates := []string{"TDRL", "TDOR", "TDRC", "TYER", "\xa9day", "date", "originaldate"}
	for _, key := range candidates {
		s := rawString(m, key)
		if s == "" {
			continue
		}
		if t, err := ParseDateString(s); err == nil {
			return &t
		}
	}
	if y := m.Year(); y != 0 {
		t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}

// isCompilation reads the various-artists flag: TCMP for ID3, cpil for MP4.
func isCompilation(m tag.Metadata) bool {
	for _, key := range []string{"TCMP", "cpil", "compilation"} {
		v, ok := m.Raw()[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case bool:
			return val
		case string:
			return val == "1" || strings.EqualFold(val, "true")
		case int:
			return val != 0
		case uint8:
			return val != 0
		}
	}
	return false
}

// rawString fetches the first non-empty string-ish raw frame among keys.
// ID3 TXXX frames surface as tag.Comm values keyed by description.
func rawString(m tag.Metadata, keys ...string) string {
	raw := m.Raw()
	for _, key := range keys {
		for _, rawKey := range []string{key, "TXXX:" + key} {
			v, ok := raw[rawKey]
			if !ok {
				continue
			}
			switch val := v.(type) {
			case string:
				if val != "" {
					return val
				}
			case *tag.Comm:
				if val != nil && val.Text != "" {
					return val.Text
				}
			case tag.Comm:
				if val.Text != "" {
					return val.Text
				}
			case *tag.UFID:
				if val != nil && len(val.Identifier) > 0 {
					return string(val.Identifier)
				}
			}
		}
	}
	return ""
}

func intPtrIfSet(v int) *int64 {
	if v == 0 {
		return nil
	}
	n := int64(v)
	return &n
}

// coverArtFilenames are checked next to the music file before any embedded
// picture is considered. A shared folder image dedups far better than the
// same bytes embedded in every track.
var coverArtFilenames = []string{"cover.jpg", "cover.png"}

func readArtwork(path string, m tag.Metadata) *store.Artwork {
	dir := filepath.Dir(path)
	for _, leaf := range coverArtFilenames {
		coverPath := filepath.Join(dir, leaf)
		info, err := os.Stat(coverPath)
		if err != nil || info.IsDir() {
			continue
		}
		art := store.Artwork{Path: NormalizePath(coverPath)}
		if blob, err := os.ReadFile(coverPath); err == nil {
			art.Width, art.Height = imageSize(blob)
		}
		return &art
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		art := store.Artwork{Blob: pic.Data}
		art.Width, art.Height = imageSize(pic.Data)
		return &art
	}
	return nil
}
