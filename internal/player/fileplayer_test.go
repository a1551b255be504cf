package player

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder records what it was asked to play and lets tests fire the
// end-of-song callback by hand.
type fakeDecoder struct {
	mu       sync.Mutex
	played   []string
	stopped  bool
	finished func()
}

func (d *fakeDecoder) Play(path string, volume int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.played = append(d.played, path)
	return nil
}

func (d *fakeDecoder) Pause() error  { return nil }
func (d *fakeDecoder) Resume() error { return nil }

func (d *fakeDecoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDecoder) SetVolume(int) error { return nil }

func (d *fakeDecoder) OnFinished(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = fn
}

func (d *fakeDecoder) lastPlayed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.played) == 0 {
		return ""
	}
	return d.played[len(d.played)-1]
}

// newTestPlayer returns a file player whose decoders are all the returned
// fake, plus a helper that creates real files for the queue (the player
// stats paths before playing them).
func newTestPlayer(t *testing.T) (*FilePlayer, *fakeDecoder, func(name string) string) {
	t.Helper()

	decoder := &fakeDecoder{}
	p := NewFilePlayer()
	p.newDecoder = func(string) FileDecoder { return decoder }

	dir := t.TempDir()
	mkFile := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
		return path
	}
	return p, decoder, mkFile
}

func TestPlayFromRealIndex_OffByOneSearch(t *testing.T) {
	p, decoder, mkFile := newTestPlayer(t)
	one := mkFile("1.mp3")
	two := mkFile("2.mp3")
	p.SetQueue([]QueuedItem{
		{Filepath: one, TrackID: 123},
		{Filepath: two, TrackID: 234},
	}, "/albums/1", false)

	// The queue advanced under the caller: index 0 no longer holds 234,
	// but its neighbor does.
	id := int64(234)
	require.NoError(t, p.PlayFromRealIndex(0, &id))
	assert.Equal(t, two, decoder.lastPlayed())
	assert.Equal(t, 1, p.CurrentTrackIndex())

	id = 123
	require.NoError(t, p.PlayFromRealIndex(1, &id))
	assert.Equal(t, one, decoder.lastPlayed())
	assert.Equal(t, 0, p.CurrentTrackIndex())

	// Two positions away is out of tolerance.
	p.SetQueue([]QueuedItem{
		{Filepath: one, TrackID: 123},
		{Filepath: two, TrackID: 234},
		{Filepath: mkFile("3.mp3"), TrackID: 345},
	}, "/albums/1", false)
	id = 345
	assert.Error(t, p.PlayFromRealIndex(0, &id))
}

func TestSetQueue_SkipsMissingFiles(t *testing.T) {
	p, decoder, mkFile := newTestPlayer(t)
	exists := mkFile("exists.mp3")

	p.SetQueue([]QueuedItem{
		{Filepath: filepath.Join(t.TempDir(), "missing.mp3"), TrackID: 123},
		{Filepath: exists, TrackID: 456},
	}, "/albums/9", true)

	assert.Equal(t, StatusPlaying, p.CurrentStatus())
	current, ok := p.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, int64(456), current.TrackID)
	assert.Equal(t, exists, decoder.lastPlayed())
}

func TestSetQueue_AllMissingStops(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	p.SetQueue([]QueuedItem{
		{Filepath: "/nonexistent/a.mp3", TrackID: 1},
		{Filepath: "/nonexistent/b.mp3", TrackID: 2},
	}, "", true)
	assert.Equal(t, StatusStopped, p.CurrentStatus())
}

func TestRemoveFromQueue_ApparentIndex(t *testing.T) {
	p, decoder, mkFile := newTestPlayer(t)
	var items []QueuedItem
	paths := make([]string, 4)
	for i := 0; i < 4; i++ {
		paths[i] = mkFile(fmt.Sprintf("track%d.mp3", i))
		items = append(items, QueuedItem{Filepath: paths[i], TrackID: int64(100 + i)})
	}
	p.SetQueue(items, "/playlists/1", false)
	require.NoError(t, p.PlayFromRealIndex(2, nil))
	require.Equal(t, 2, p.CurrentTrackIndex())

	// Apparent index 0 is the playing item (real index 2). Removing it
	// advances onto what was real index 3.
	require.NoError(t, p.RemoveFromQueue(0, 102))
	current, ok := p.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, int64(103), current.TrackID)
	assert.Equal(t, paths[3], decoder.lastPlayed())

	// A stale trackid is refused.
	err := p.RemoveFromQueue(0, 999)
	assert.Error(t, err)
}

func TestEndOfSongAdvances(t *testing.T) {
	p, decoder, mkFile := newTestPlayer(t)
	one := mkFile("one.mp3")
	two := mkFile("two.mp3")
	p.SetQueue([]QueuedItem{
		{Filepath: one, TrackID: 1},
		{Filepath: two, TrackID: 2},
	}, "", true)
	require.Equal(t, 0, p.CurrentTrackIndex())

	decoder.finished()
	assert.Equal(t, 1, p.CurrentTrackIndex())
	assert.Equal(t, two, decoder.lastPlayed())

	// Finishing the last track stops playback and clears the queue.
	decoder.finished()
	assert.Equal(t, StatusStopped, p.CurrentStatus())
	assert.Zero(t, p.NumberOfTracks())
	assert.Empty(t, p.VisibleQueue())
}

func TestAddToQueue_StartsWhenEmpty(t *testing.T) {
	p, decoder, mkFile := newTestPlayer(t)
	path := mkFile("solo.mp3")

	p.AddToQueue(QueuedItem{Filepath: path, TrackID: 7})
	assert.Equal(t, StatusPlaying, p.CurrentStatus())
	assert.Equal(t, path, decoder.lastPlayed())

	// A second append does not interrupt playback.
	other := mkFile("later.mp3")
	p.AddToQueue(QueuedItem{Filepath: other, TrackID: 8})
	assert.Equal(t, path, decoder.lastPlayed())
	assert.Len(t, p.VisibleQueue(), 2)
}

func TestPauseResumeStop(t *testing.T) {
	p, _, mkFile := newTestPlayer(t)
	p.SetQueue([]QueuedItem{{Filepath: mkFile("x.mp3"), TrackID: 1}}, "", true)

	p.Pause()
	assert.Equal(t, StatusPaused, p.CurrentStatus())
	p.Resume()
	assert.Equal(t, StatusPlaying, p.CurrentStatus())
	p.Stop()
	assert.Equal(t, StatusStopped, p.CurrentStatus())
	assert.Equal(t, -1, p.CurrentTrackIndex())
	assert.Empty(t, p.VisibleQueue())
}
