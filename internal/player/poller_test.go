package player

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyFilter(t *testing.T) {
	body := map[string]interface{}{
		"now": map[string]interface{}{
			"firstLine":  map[string]interface{}{"title": "FIP"},
			"secondLine": map[string]interface{}{"title": "Some Song"},
		},
	}

	got := applyFilter(".now.secondLine.title", body)
	assert.Equal(t, "Some Song", got)

	// Null results map to nil.
	assert.Nil(t, applyFilter(".now.missing", body))

	// An empty filter passes the body through.
	assert.Equal(t, body, applyFilter("", body))

	// A filter that does not parse degrades to a pass-through.
	assert.Equal(t, body, applyFilter("][", body))

	// Nothing to filter.
	assert.Nil(t, applyFilter(".x", nil))
}

func TestPollOnceIntervals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "T"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewPoller()

	// A save asking for a minute gets a minute, not the default.
	wait := p.pollOnce(map[string][]FetchTask{
		srv.URL: {{Save: func(interface{}) int { return 60 }}},
	})
	assert.Equal(t, time.Minute, wait)

	// The shortest request wins when tasks share a poll.
	wait = p.pollOnce(map[string][]FetchTask{
		srv.URL: {
			{Save: func(interface{}) int { return 60 }},
			{Save: func(interface{}) int { return 30 }},
		},
	})
	assert.Equal(t, 30*time.Second, wait)

	// No interval at all falls back to the default.
	wait = p.pollOnce(map[string][]FetchTask{
		srv.URL: {{Save: func(interface{}) int { return 0 }}},
	})
	assert.Equal(t, pollerDefaultWait, wait)
}

func TestSaveTrackInfoIntervals(t *testing.T) {
	p := NewStreamPlayer(NewPoller())

	full := p.saveTrackInfo(map[string]interface{}{"artist": "A", "track": "T"})
	assert.Equal(t, 60, full)

	partial := p.saveTrackInfo(map[string]interface{}{"artist": "A"})
	assert.Equal(t, 30, partial)

	cleared := p.saveTrackInfo(nil)
	assert.Equal(t, 30, cleared)
	_, _, _, artist, track := p.CurrentStation()
	assert.Empty(t, artist)
	assert.Empty(t, track)
}

func TestSaveArtworkFallsBackToStation(t *testing.T) {
	p := NewStreamPlayer(NewPoller())
	p.mu.Lock()
	p.stationArtwork = "https://example.com/station.png"
	p.mu.Unlock()

	interval := p.saveArtwork("https://example.com/np.png")
	assert.Equal(t, 60, interval)
	_, _, artwork, _, _ := p.CurrentStation()
	assert.Equal(t, "https://example.com/np.png", artwork)

	interval = p.saveArtwork(nil)
	assert.Equal(t, 30, interval)
	_, _, artwork, _, _ = p.CurrentStation()
	assert.Equal(t, "https://example.com/station.png", artwork)
}
