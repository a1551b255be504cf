package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/store"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	filePlayer := NewFilePlayer()
	filePlayer.newDecoder = func(string) FileDecoder { return &fakeDecoder{} }
	streamPlayer := NewStreamPlayer(NewPoller())
	c := NewCoordinator(nil, filePlayer, streamPlayer,
		fetcher.NewHistory(), fetcher.NewRegistry(),
		func(string, func(string, []fetcher.Download)) {})
	c.sleep = func(time.Duration) {}
	return c
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func TestPlayRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  PlayRequest
	}{
		{"empty", PlayRequest{}},
		{"album and playlist", PlayRequest{AlbumID: int64Ptr(1), PlaylistID: int64Ptr(2)}},
		{"album and queue index", PlayRequest{AlbumID: int64Ptr(1), QueueIndex: intPtr(0)}},
		{"radio and track", PlayRequest{RadioID: int64Ptr(1), TrackID: int64Ptr(2)}},
		{"radio and url", PlayRequest{RadioID: int64Ptr(1), YoutubeURL: "https://example.com"}},
		{"url and album", PlayRequest{YoutubeURL: "https://example.com", AlbumID: int64Ptr(1)}},
	}
	c := newTestCoordinator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Play(tt.req)
			assert.ErrorIs(t, err, store.ErrBadInput)
		})
	}
}

func TestSwitchToPausesAndDelays(t *testing.T) {
	c := newTestCoordinator(t)

	var slept time.Duration
	c.sleep = func(d time.Duration) { slept += d }

	// Force the file player to look like it is playing.
	c.filePlayer.mu.Lock()
	c.filePlayer.status = StatusPlaying
	c.filePlayer.mu.Unlock()

	c.switchTo(c.streamPlayer)
	assert.Equal(t, switchDelay, slept)
	assert.Equal(t, StatusPaused, c.filePlayer.CurrentStatus())
	assert.True(t, c.IsStreaming())

	// Switching to the already current player never sleeps.
	slept = 0
	c.switchTo(c.streamPlayer)
	assert.Zero(t, slept)
}

func TestQueueOperationsConflictWhileStreaming(t *testing.T) {
	c := newTestCoordinator(t)
	c.switchTo(c.streamPlayer)

	_, err := c.QueueGet()
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.ErrorIs(t, c.QueueDelete(0, 1), store.ErrConflict)
	assert.ErrorIs(t, c.QueueAppendTrack(1), store.ErrConflict)
	assert.ErrorIs(t, c.QueueAppendURL("https://example.com"), store.ErrConflict)
	assert.ErrorIs(t, c.QueueReplace([]int64{1}), store.ErrConflict)
}

func TestSetVolumeRange(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.SetVolume(55))
	assert.Equal(t, 55, c.filePlayer.CurrentVolume())
	assert.Equal(t, 55, c.streamPlayer.CurrentVolume())

	assert.ErrorIs(t, c.SetVolume(-1), store.ErrBadInput)
	assert.ErrorIs(t, c.SetVolume(101), store.ErrBadInput)
}

func TestPlayYoutubeEnqueuesFetch(t *testing.T) {
	filePlayer := NewFilePlayer()
	filePlayer.newDecoder = func(string) FileDecoder { return &fakeDecoder{} }
	streamPlayer := NewStreamPlayer(NewPoller())

	var fetched string
	c := NewCoordinator(nil, filePlayer, streamPlayer,
		fetcher.NewHistory(), fetcher.NewRegistry(),
		func(url string, done func(string, []fetcher.Download)) { fetched = url })
	c.sleep = func(time.Duration) {}

	require.NoError(t, c.Play(PlayRequest{YoutubeURL: "https://example.com/v/1"}))
	assert.Equal(t, "https://example.com/v/1", fetched)
}

func TestCachedDownloads(t *testing.T) {
	h := fetcher.NewHistory()
	url := "https://example.com/v/2"

	assert.Nil(t, CachedDownloads(h, url))

	h.Add(url)
	h.SetInfo(url, []fetcher.Download{{Filepath: "/nonexistent/file.mp3"}})
	assert.Nil(t, CachedDownloads(h, url), "missing files invalidate the cache")
}
