package fetcher

import "sync"

const defaultHistoryLength = 10

// History remembers the most recently fetched URLs and their downloads,
// most recent first. Re-fetching a remembered URL moves it to the front.
type History struct {
	mu        sync.Mutex
	urls      []string
	files     map[string][]Download
	maxLength int
}

func NewHistory() *History {
	return &History{
		files:     make(map[string][]Download),
		maxLength: defaultHistoryLength,
	}
}

// Add records url as the most recent fetch. Beyond capacity, the oldest
// entry is forgotten.
func (h *History) Add(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, u := range h.urls {
		if u == url {
			h.urls = append(h.urls[:i], h.urls[i+1:]...)
			break
		}
	}
	h.urls = append([]string{url}, h.urls...)
	if len(h.urls) > h.maxLength {
		dropped := h.urls[h.maxLength:]
		h.urls = h.urls[:h.maxLength]
		for _, u := range dropped {
			delete(h.files, u)
		}
	}
}

// SetInfo stores the downloads produced for url.
func (h *History) SetInfo(url string, downloads []Download) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[url] = downloads
}

// GetInfo returns the recorded downloads for url, or nil.
func (h *History) GetInfo(url string) []Download {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.files[url]
}

// URLs returns the remembered URLs, most recent first.
func (h *History) URLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.urls...)
}
