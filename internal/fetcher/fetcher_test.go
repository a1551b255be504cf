package fetcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_StablePerFilepath(t *testing.T) {
	r := NewRegistry()

	first := r.Assign(Download{Filepath: "/tmp/dl/abc.mp3", Title: "one"})
	assert.Equal(t, int64(-1), first)

	second := r.Assign(Download{Filepath: "/tmp/dl/def.mp3", Title: "two"})
	assert.Equal(t, int64(-2), second)

	// Same path comes back with the original id, refreshed metadata.
	again := r.Assign(Download{Filepath: "/tmp/dl/abc.mp3", Title: "one again"})
	assert.Equal(t, first, again)

	dl, ok := r.Lookup(first)
	assert.True(t, ok)
	assert.Equal(t, "one again", dl.Title)
	assert.Equal(t, first, dl.FakeTrackID)

	_, ok = r.Lookup(-99)
	assert.False(t, ok)
}

func TestHistory_MostRecentFirstAndBounded(t *testing.T) {
	h := NewHistory()

	for i := 0; i < 12; i++ {
		url := fmt.Sprintf("https://example.com/v/%d", i)
		h.Add(url)
		h.SetInfo(url, []Download{{URL: url}})
	}

	urls := h.URLs()
	assert.Len(t, urls, 10)
	assert.Equal(t, "https://example.com/v/11", urls[0])
	assert.Equal(t, "https://example.com/v/2", urls[9])

	// The oldest entries were evicted along with their info.
	assert.Nil(t, h.GetInfo("https://example.com/v/0"))
	assert.NotNil(t, h.GetInfo("https://example.com/v/5"))
}

func TestHistory_ReAddMovesToFront(t *testing.T) {
	h := NewHistory()
	h.Add("a")
	h.Add("b")
	h.Add("a")

	urls := h.URLs()
	assert.Equal(t, []string{"a", "b"}, urls)
}
