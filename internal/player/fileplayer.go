package player

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/store"
)

// FilePlayer plays local files through decoder subprocesses, one at a time,
// working through an in-memory queue. The decoder's end-of-song callback
// drives auto-advance.
type FilePlayer struct {
	mu           sync.Mutex
	queue        []QueuedItem
	currentIndex int
	status       Status
	volume       int
	tracklistID  string
	decoder      FileDecoder
	// generation invalidates end-of-song callbacks from decoders that
	// have already been replaced.
	generation int64
	newDecoder func(path string) FileDecoder
	onChange   func()
}

func NewFilePlayer() *FilePlayer {
	return &FilePlayer{
		currentIndex: -1,
		status:       StatusStopped,
		volume:       defaultVolume,
		newDecoder:   NewDecoderForFile,
	}
}

func (p *FilePlayer) SetStateChangeCallback(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

func (p *FilePlayer) notify() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetQueue replaces the queue wholesale. With startPlaying set, playback
// (re)starts at the head unless the head is the item already playing.
func (p *FilePlayer) SetQueue(items []QueuedItem, identifier string, startPlaying bool) {
	p.mu.Lock()
	var playing *QueuedItem
	if p.status == StatusPlaying && p.currentIndex >= 0 && p.currentIndex < len(p.queue) {
		item := p.queue[p.currentIndex]
		playing = &item
	}
	p.queue = items
	p.tracklistID = identifier
	p.currentIndex = 0
	if len(items) == 0 {
		p.currentIndex = -1
	}

	if startPlaying && len(items) > 0 {
		if playing == nil || playing.TrackID != items[0].TrackID || playing.Filepath != items[0].Filepath {
			p.playFromRealIndexLocked(0, nil) //nolint:errcheck
		}
	}
	p.mu.Unlock()
	p.notify()
}

// AddToQueue appends one item; an empty queue starts playing immediately.
func (p *FilePlayer) AddToQueue(item QueuedItem) {
	p.mu.Lock()
	wasEmpty := len(p.queue) == 0
	p.queue = append(p.queue, item)
	if wasEmpty {
		p.playFromRealIndexLocked(0, nil) //nolint:errcheck
	}
	p.mu.Unlock()
	p.notify()
}

// RemoveFromQueue removes the item at an apparent index, relative to the
// visible queue. trackID must match the item found there; a mismatch means
// the queue advanced under the caller and the request is refused.
func (p *FilePlayer) RemoveFromQueue(apparentIndex int, trackID int64) error {
	p.mu.Lock()
	if p.currentIndex < 0 {
		p.mu.Unlock()
		return fmt.Errorf("queue is not active: %w", store.ErrBadInput)
	}
	real := p.currentIndex + apparentIndex
	if apparentIndex < 0 || real >= len(p.queue) {
		p.mu.Unlock()
		return fmt.Errorf("queue index %d out of range: %w", apparentIndex, store.ErrBadInput)
	}
	if p.queue[real].TrackID != trackID {
		p.mu.Unlock()
		return fmt.Errorf("track %d is not at queue index %d: %w", trackID, apparentIndex, store.ErrConflict)
	}

	removedCurrent := real == p.currentIndex
	p.queue = append(p.queue[:real], p.queue[real+1:]...)
	if removedCurrent {
		p.playFromRealIndexLocked(p.currentIndex, nil) //nolint:errcheck
	}
	p.mu.Unlock()
	p.notify()
	return nil
}

// PlayFromRealIndex starts playback at an absolute queue position. When
// trackID is given, a one-position search either side of i tolerates races
// with auto-advance.
func (p *FilePlayer) PlayFromRealIndex(i int, trackID *int64) error {
	p.mu.Lock()
	err := p.playFromRealIndexLocked(i, trackID)
	p.mu.Unlock()
	p.notify()
	return err
}

// PlayFromApparentIndex translates a visible-queue position into an
// absolute one before delegating.
func (p *FilePlayer) PlayFromApparentIndex(apparentIndex int, trackID *int64) error {
	p.mu.Lock()
	base := p.currentIndex
	if base < 0 {
		base = 0
	}
	err := p.playFromRealIndexLocked(base+apparentIndex, trackID)
	p.mu.Unlock()
	p.notify()
	return err
}

func (p *FilePlayer) playFromRealIndexLocked(i int, trackID *int64) error {
	valid := func(j int) bool { return j >= 0 && j < len(p.queue) }

	if trackID != nil && !(valid(i) && p.queue[i].TrackID == *trackID) {
		found := -1
		for _, j := range []int{i - 1, i + 1} {
			if valid(j) && p.queue[j].TrackID == *trackID {
				found = j
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("track %d is not near queue position %d: %w", *trackID, i, store.ErrConflict)
		}
		i = found
	}
	if i < 0 {
		i = 0
	}

	for i < len(p.queue) {
		path := p.queue[i].Filepath
		if _, err := os.Stat(path); err != nil {
			log.Warn().Str("path", path).Msg("queued file missing, skipping")
			i++
			continue
		}

		p.stopDecoderLocked()
		decoder := p.newDecoder(path)
		p.generation++
		gen := p.generation
		decoder.OnFinished(func() { p.songFinished(gen) })
		if err := decoder.Play(path, p.volume); err != nil {
			log.Error().Str("path", path).Err(err).Msg("decoder failed to start")
			i++
			continue
		}
		p.decoder = decoder
		p.currentIndex = i
		p.status = StatusPlaying
		return nil
	}

	p.stopDecoderLocked()
	p.status = StatusStopped
	return nil
}

// songFinished is the decoder's end-of-song callback. A stale generation
// means the decoder was already replaced and the event is ignored.
func (p *FilePlayer) songFinished(gen int64) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.advanceLocked(1)
	p.mu.Unlock()
	p.notify()
}

// Next and Prev move through the queue; running off either end stops
// playback and clears the queue.
func (p *FilePlayer) Next() {
	p.mu.Lock()
	p.advanceLocked(1)
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) Prev() {
	p.mu.Lock()
	p.advanceLocked(-1)
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) advanceLocked(delta int) {
	i := p.currentIndex + delta
	if i < 0 || i >= len(p.queue) {
		p.stopDecoderLocked()
		p.status = StatusStopped
		p.queue = nil
		p.currentIndex = -1
		return
	}
	p.playFromRealIndexLocked(i, nil) //nolint:errcheck
}

func (p *FilePlayer) Pause() {
	p.mu.Lock()
	if p.status == StatusPlaying && p.decoder != nil {
		if err := p.decoder.Pause(); err != nil {
			log.Warn().Err(err).Msg("decoder pause failed")
		}
		p.status = StatusPaused
	}
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) Resume() {
	p.mu.Lock()
	if p.status == StatusPaused && p.decoder != nil {
		if err := p.decoder.Resume(); err != nil {
			log.Warn().Err(err).Msg("decoder resume failed")
		}
		p.status = StatusPlaying
	}
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) Stop() {
	p.mu.Lock()
	p.stopDecoderLocked()
	p.status = StatusStopped
	p.mu.Unlock()
	p.notify()
}

// ClearQueue empties the queue without touching a running decoder.
func (p *FilePlayer) ClearQueue() {
	p.mu.Lock()
	p.queue = nil
	p.currentIndex = -1
	p.tracklistID = ""
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) stopDecoderLocked() {
	if p.decoder != nil {
		p.generation++
		p.decoder.Stop() //nolint:errcheck
		p.decoder = nil
	}
}

func (p *FilePlayer) SetVolume(v int) {
	p.mu.Lock()
	p.volume = v
	if p.decoder != nil {
		p.decoder.SetVolume(v) //nolint:errcheck
	}
	p.mu.Unlock()
	p.notify()
}

func (p *FilePlayer) CurrentStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *FilePlayer) CurrentVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *FilePlayer) NumberOfTracks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *FilePlayer) CurrentTrackIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusStopped {
		return -1
	}
	return p.currentIndex
}

// CurrentItem returns the item playing or paused right now.
func (p *FilePlayer) CurrentItem() (QueuedItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusStopped || p.currentIndex < 0 || p.currentIndex >= len(p.queue) {
		return QueuedItem{}, false
	}
	return p.queue[p.currentIndex], true
}

// VisibleQueue is the remainder of the queue from the current item on;
// empty when stopped.
func (p *FilePlayer) VisibleQueue() []QueuedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusStopped || p.currentIndex < 0 {
		return nil
	}
	return append([]QueuedItem(nil), p.queue[p.currentIndex:]...)
}

// TracklistIdentifier is the external URI of the collection being played.
func (p *FilePlayer) TracklistIdentifier() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracklistID
}
