// Package fetcher pulls audio from remote URLs via yt-dlp and tracks the
// resulting ephemeral files. Downloads never enter the catalog; they get
// negative fake track ids so the queue and snapshot can reference them.
package fetcher

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Download describes one fetched audio file.
type Download struct {
	Filepath    string
	Artist      string
	Title       string
	Artwork     string // thumbnail URL, may be empty
	URL         string // source page URL
	FakeTrackID int64
}

// infoSidecar is the subset of yt-dlp's .info.json we care about.
type infoSidecar struct {
	Artist     string `json:"artist"`
	Uploader   string `json:"uploader"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail"`
	WebpageURL string `json:"webpage_url"`
}

// FetchAudio downloads the audio of url into dir as mp3 and returns one
// Download per produced file, with fake ids assigned from the registry.
// Failures are logged and yield an empty result; the caller treats "nothing
// downloaded" and "download failed" the same way.
func FetchAudio(registry *Registry, url, dir, cookies string) []Download {
	argv := []string{
		"-x",
		"--audio-format", "mp3",
		"-f", "ba",
		"--no-download-archive",
		url,
		"-o", "%(id)s.%(ext)s",
		"--print", "after_move:filepath",
		"--write-info-json",
	}
	if cookies != "" {
		argv = append(argv, "--cookies", cookies)
	}
	cmd := exec.Command("yt-dlp", argv...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		log.Error().Str("url", url).Err(err).Msg("yt-dlp failed")
		return nil
	}

	var downloads []Download
	for _, line := range strings.Split(string(out), "\n") {
		localFile := strings.TrimSpace(line)
		if localFile == "" {
			continue
		}
		if !filepath.IsAbs(localFile) {
			localFile = filepath.Join(dir, localFile)
		}
		dl := Download{
			Filepath: localFile,
			URL:      url,
		}
		readSidecar(&dl)
		dl.FakeTrackID = registry.Assign(dl)
		downloads = append(downloads, dl)
	}
	return downloads
}

// readSidecar fills in metadata from the .info.json yt-dlp wrote next to
// the audio file. A missing or malformed sidecar leaves the fields empty.
func readSidecar(dl *Download) {
	ext := filepath.Ext(dl.Filepath)
	sidecarPath := strings.TrimSuffix(dl.Filepath, ext) + ".info.json"
	raw, err := os.ReadFile(sidecarPath)
	if err != nil {
		log.Warn().Str("path", sidecarPath).Err(err).Msg("no download sidecar")
		return
	}
	var info infoSidecar
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Warn().Str("path", sidecarPath).Err(err).Msg("malformed download sidecar")
		return
	}
	dl.Artist = info.Artist
	if dl.Artist == "" {
		dl.Artist = info.Uploader
	}
	dl.Title = info.Title
	dl.Artwork = info.Thumbnail
	if info.WebpageURL != "" {
		dl.URL = info.WebpageURL
	}
}
