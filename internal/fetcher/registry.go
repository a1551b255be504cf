package fetcher

import "sync"

// Registry allocates the negative ids handed out to downloaded files.
// Ids decrease monotonically from -1 and are stable per filepath, so
// queueing the same download twice reuses the original id.
type Registry struct {
	mu     sync.Mutex
	nextID int64
	byPath map[string]int64
	byID   map[int64]Download
}

func NewRegistry() *Registry {
	return &Registry{
		nextID: -1,
		byPath: make(map[string]int64),
		byID:   make(map[int64]Download),
	}
}

// Assign returns the fake id for the download, allocating one if its
// filepath has not been seen before.
func (r *Registry) Assign(dl Download) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPath[dl.Filepath]
	if !ok {
		id = r.nextID
		r.nextID--
		r.byPath[dl.Filepath] = id
	}
	dl.FakeTrackID = id
	r.byID[id] = dl
	return id
}

// Lookup returns the download registered under the given fake id.
func (r *Registry) Lookup(id int64) (Download, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dl, ok := r.byID[id]
	return dl, ok
}
