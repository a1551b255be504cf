package player

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// StationPlayback is everything the stream player needs to start one
// station: the stream itself, its position in the station list, and the
// optional now-playing metadata sources.
type StationPlayback struct {
	StationID  int64
	Name       string
	URL        string
	ArtworkURL string
	Index      int // 0-based position in the station list
	Total      int

	NowPlayingURL       string
	NowPlayingJq        string
	NowPlayingArtURL    string
	NowPlayingArtJq     string
}

// StreamPlayer plays internet radio through an ffplay child. Network
// streams cannot seek or pause; "pause" kills the child but keeps enough
// state to look paused and resume later.
type StreamPlayer struct {
	mu     sync.Mutex
	status Status
	volume int

	stationID      int64
	name           string
	url            string
	stationArtwork string
	trackIndex     int
	numberOfTracks int

	nowPlayingArtwork string
	nowPlayingArtist  string
	nowPlayingTrack   string

	cmd      *exec.Cmd
	poller   *Poller
	onChange func()
}

func NewStreamPlayer(poller *Poller) *StreamPlayer {
	p := &StreamPlayer{
		status:     StatusStopped,
		volume:     defaultVolume,
		trackIndex: -1,
		poller:     poller,
	}
	return p
}

func (p *StreamPlayer) SetStateChangeCallback(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

func (p *StreamPlayer) notify() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Play switches to the given station: any running child is terminated, a
// fresh one spawned, and the poller is pointed at the station's metadata
// sources.
func (p *StreamPlayer) Play(station StationPlayback) error {
	p.mu.Lock()
	p.killChildLocked()

	p.stationID = station.StationID
	p.name = station.Name
	p.url = station.URL
	p.stationArtwork = station.ArtworkURL
	p.nowPlayingArtwork = station.ArtworkURL
	p.nowPlayingArtist = ""
	p.nowPlayingTrack = ""
	p.trackIndex = station.Index
	p.numberOfTracks = station.Total

	if err := p.spawnLocked(); err != nil {
		p.status = StatusStopped
		p.mu.Unlock()
		p.notify()
		return err
	}
	p.status = StatusPlaying

	dynamic := map[string][]FetchTask{}
	if station.NowPlayingURL != "" {
		dynamic[station.NowPlayingURL] = append(dynamic[station.NowPlayingURL],
			FetchTask{Filter: station.NowPlayingJq, Save: p.saveTrackInfo})
	}
	if station.NowPlayingArtURL != "" {
		dynamic[station.NowPlayingArtURL] = append(dynamic[station.NowPlayingArtURL],
			FetchTask{Filter: station.NowPlayingArtJq, Save: p.saveArtwork})
	}
	p.mu.Unlock()

	p.poller.SetDynamicInfo(dynamic)
	p.notify()
	return nil
}

func (p *StreamPlayer) spawnLocked() error {
	cmd := exec.Command("ffplay", "-nodisp", "-vn", "-sn",
		"-volume", fmt.Sprintf("%d", p.volume), p.url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	p.cmd = cmd
	go cmd.Wait() //nolint:errcheck
	return nil
}

func (p *StreamPlayer) killChildLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill() //nolint:errcheck
	}
	p.cmd = nil
}

// Pause terminates the child but presents as paused. The now-playing
// artwork falls back to the station's own while nothing is audible.
func (p *StreamPlayer) Pause() {
	p.mu.Lock()
	if p.status == StatusPlaying {
		p.killChildLocked()
		p.status = StatusPaused
		p.nowPlayingArtwork = p.stationArtwork
	}
	p.mu.Unlock()
	p.poller.Suspend()
	p.notify()
}

func (p *StreamPlayer) Resume() {
	p.mu.Lock()
	if p.status == StatusPaused && p.url != "" {
		if err := p.spawnLocked(); err != nil {
			log.Error().Err(err).Str("url", p.url).Msg("resume stream failed")
		} else {
			p.status = StatusPlaying
		}
	}
	p.mu.Unlock()
	p.poller.Wake()
	p.notify()
}

func (p *StreamPlayer) Stop() {
	p.mu.Lock()
	p.killChildLocked()
	p.status = StatusStopped
	p.stationID = 0
	p.name = ""
	p.url = ""
	p.stationArtwork = ""
	p.nowPlayingArtwork = ""
	p.nowPlayingArtist = ""
	p.nowPlayingTrack = ""
	p.trackIndex = -1
	p.numberOfTracks = 0
	p.mu.Unlock()
	p.poller.Suspend()
	p.notify()
}

// SetVolume applies on the next spawn; ffplay has no volume IPC.
func (p *StreamPlayer) SetVolume(v int) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	p.notify()
}

func (p *StreamPlayer) CurrentStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *StreamPlayer) CurrentVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *StreamPlayer) NumberOfTracks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numberOfTracks
}

func (p *StreamPlayer) CurrentTrackIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackIndex
}

// CurrentStation reports what is playing for snapshots: station id, name,
// artwork to show, and any polled now-playing track info.
func (p *StreamPlayer) CurrentStation() (id int64, name, artwork, artist, track string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stationID, p.name, p.nowPlayingArtwork, p.nowPlayingArtist, p.nowPlayingTrack
}

// saveTrackInfo is the poller save callback for now-playing info. It
// expects {artist, track} and returns the seconds until the next poll.
func (p *StreamPlayer) saveTrackInfo(value interface{}) int {
	artist, track := "", ""
	if m, ok := value.(map[string]interface{}); ok {
		artist, _ = m["artist"].(string)
		track, _ = m["track"].(string)
	}

	p.mu.Lock()
	changed := artist != p.nowPlayingArtist || track != p.nowPlayingTrack
	p.nowPlayingArtist = artist
	p.nowPlayingTrack = track
	p.mu.Unlock()

	if changed {
		p.notify()
	}
	if artist != "" && track != "" {
		return 60
	}
	return 30
}

// saveArtwork is the poller save callback for now-playing artwork URLs.
func (p *StreamPlayer) saveArtwork(value interface{}) int {
	url, _ := value.(string)

	p.mu.Lock()
	if url == "" {
		url = p.stationArtwork
	}
	changed := url != p.nowPlayingArtwork
	p.nowPlayingArtwork = url
	p.mu.Unlock()

	if changed {
		p.notify()
	}
	if value != nil {
		return 60
	}
	return 30
}
