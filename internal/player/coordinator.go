package player

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/store"
)

// switchDelay is how long a caller must wait between pausing one back-end
// and starting the other. The audio device is shared; starting the second
// decoder too early loses the race for it. This is a contract, not a
// tuning knob.
const switchDelay = time.Second

// PlayRequest selects what to play: exactly one of the collection fields
// (AlbumID, PlaylistID, QueueIndex), or a single TrackID, or a YoutubeURL,
// or a RadioID. TrackID doubles as the start position inside a collection.
type PlayRequest struct {
	AlbumID    *int64
	PlaylistID *int64
	QueueIndex *int
	TrackID    *int64
	YoutubeURL string
	RadioID    *int64
	DiskNr     *int
}

func (r PlayRequest) validate() error {
	collections := 0
	for _, set := range []bool{r.AlbumID != nil, r.PlaylistID != nil, r.QueueIndex != nil} {
		if set {
			collections++
		}
	}
	if collections > 1 {
		return fmt.Errorf("more than one collection selector: %w", store.ErrBadInput)
	}
	others := collections > 0 || r.TrackID != nil
	if r.RadioID != nil && (others || r.YoutubeURL != "") {
		return fmt.Errorf("radio is exclusive of other selectors: %w", store.ErrBadInput)
	}
	if r.YoutubeURL != "" && (others || r.RadioID != nil) {
		return fmt.Errorf("url is exclusive of other selectors: %w", store.ErrBadInput)
	}
	if collections == 0 && r.TrackID == nil && r.YoutubeURL == "" && r.RadioID == nil {
		return fmt.Errorf("empty play request: %w", store.ErrBadInput)
	}
	return nil
}

// FetchEnqueuer hands a download job to the worker; done runs on the
// worker goroutine once the files are available.
type FetchEnqueuer func(url string, done func(url string, downloads []fetcher.Download))

// Coordinator is the single entry point for playback control. It owns
// which back-end is current and serializes switches between them.
type Coordinator struct {
	mu      sync.Mutex
	current Player

	db           *sql.DB
	filePlayer   *FilePlayer
	streamPlayer *StreamPlayer
	history      *fetcher.History
	registry     *fetcher.Registry
	enqueueFetch FetchEnqueuer

	// sleep is swapped out in tests; production uses time.Sleep.
	sleep func(time.Duration)
}

func NewCoordinator(db *sql.DB, filePlayer *FilePlayer, streamPlayer *StreamPlayer,
	history *fetcher.History, registry *fetcher.Registry, enqueueFetch FetchEnqueuer) *Coordinator {
	return &Coordinator{
		current:      filePlayer,
		db:           db,
		filePlayer:   filePlayer,
		streamPlayer: streamPlayer,
		history:      history,
		registry:     registry,
		enqueueFetch: enqueueFetch,
		sleep:        time.Sleep,
	}
}

// Current returns the back-end in charge right now.
func (c *Coordinator) Current() Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsStreaming reports whether the stream player is current.
func (c *Coordinator) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == c.streamPlayer
}

// switchTo makes desired the current back-end. If the other one was
// playing it is paused first and the mandatory delay observed before
// returning, so the caller can start the new player immediately.
func (c *Coordinator) switchTo(desired Player) {
	c.mu.Lock()
	wasPlaying := false
	if c.current != desired && c.current != nil && c.current.CurrentStatus() == StatusPlaying {
		c.current.Pause()
		wasPlaying = true
	}
	c.current = desired
	c.mu.Unlock()

	if wasPlaying {
		c.sleep(switchDelay)
	}
}

// Play resolves the request and starts playback on the right back-end.
func (c *Coordinator) Play(req PlayRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	switch {
	case req.RadioID != nil:
		return c.playStation(*req.RadioID)

	case req.YoutubeURL != "":
		c.enqueueFetch(req.YoutubeURL, c.PlayDownloads)
		return nil

	case req.QueueIndex != nil:
		c.switchTo(c.filePlayer)
		return c.filePlayer.PlayFromApparentIndex(*req.QueueIndex, req.TrackID)

	default:
		return c.playTracklist(req)
	}
}

func (c *Coordinator) playTracklist(req PlayRequest) error {
	var items []QueuedItem
	var identifier string

	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		switch {
		case req.AlbumID != nil:
			if _, err := store.GetAlbumByID(tx, *req.AlbumID); err != nil {
				return err
			}
			tracks, err := store.TracksForAlbum(tx, *req.AlbumID)
			if err != nil {
				return err
			}
			if req.DiskNr != nil {
				tracks = filterDisk(tracks, int64(*req.DiskNr))
			}
			items = queuedItems(tracks)
			identifier = fmt.Sprintf("/albums/%d", *req.AlbumID)

		case req.PlaylistID != nil:
			playlist, err := store.GetPlaylistByID(tx, *req.PlaylistID)
			if err != nil {
				return err
			}
			for _, entry := range playlist.Entries {
				track, err := store.GetTrackByID(tx, entry.TrackID)
				if err != nil {
					return err
				}
				items = append(items, queuedItem(track))
			}
			identifier = fmt.Sprintf("/playlists/%d", *req.PlaylistID)

		default: // single track
			track, err := store.GetTrackByID(tx, *req.TrackID)
			if err != nil {
				return err
			}
			items = queuedItems([]store.Track{track})
			identifier = fmt.Sprintf("/tracks/%d", *req.TrackID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	startIndex := 0
	if req.TrackID != nil && (req.AlbumID != nil || req.PlaylistID != nil) {
		startIndex = -1
		for i, item := range items {
			if item.TrackID == *req.TrackID {
				startIndex = i
				break
			}
		}
		if startIndex < 0 {
			return fmt.Errorf("track %d is not in the requested collection: %w",
				*req.TrackID, store.ErrBadInput)
		}
	}

	c.switchTo(c.filePlayer)
	c.filePlayer.SetQueue(items, identifier, false)
	return c.filePlayer.PlayFromRealIndex(startIndex, nil)
}

func (c *Coordinator) playStation(stationID int64) error {
	playback, err := c.stationPlayback(stationID)
	if err != nil {
		return err
	}
	c.switchTo(c.streamPlayer)
	return c.streamPlayer.Play(playback)
}

func (c *Coordinator) stationPlayback(stationID int64) (StationPlayback, error) {
	var playback StationPlayback
	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		stations, err := store.GetAllRadioStations(tx)
		if err != nil {
			return err
		}
		for i, s := range stations {
			if s.ID == stationID {
				playback = StationPlayback{
					StationID:        s.ID,
					Name:             s.Name,
					URL:              s.URL,
					ArtworkURL:       s.ArtworkURL,
					Index:            i,
					Total:            len(stations),
					NowPlayingURL:    s.NowPlayingURL,
					NowPlayingJq:     s.NowPlayingJq,
					NowPlayingArtURL: s.NowPlayingArtworkURL,
					NowPlayingArtJq:  s.NowPlayingArtworkJq,
				}
				return nil
			}
		}
		return fmt.Errorf("radio station %d: %w", stationID, store.ErrNotFound)
	})
	return playback, err
}

// PlayDownloads is the fetch completion callback for "play this URL":
// the current queue is replaced by the downloaded files.
func (c *Coordinator) PlayDownloads(url string, downloads []fetcher.Download) {
	c.history.Add(url)
	c.history.SetInfo(url, downloads)
	c.switchTo(c.filePlayer)
	c.filePlayer.ClearQueue()
	for _, dl := range downloads {
		c.filePlayer.AddToQueue(downloadItem(dl))
	}
}

// QueueDownloads is the fetch completion callback for "queue this URL":
// downloaded files are appended behind the existing queue.
func (c *Coordinator) QueueDownloads(url string, downloads []fetcher.Download) {
	c.history.Add(url)
	c.history.SetInfo(url, downloads)
	c.switchTo(c.filePlayer)
	for _, dl := range downloads {
		c.filePlayer.AddToQueue(downloadItem(dl))
	}
}

func (c *Coordinator) Pause() {
	c.Current().Pause()
}

// Resume restarts the preferred back-end: "radio", "local", or "" for
// whichever is current.
func (c *Coordinator) Resume(preferred string) error {
	switch preferred {
	case "":
		c.Current().Resume()
	case "radio":
		c.switchTo(c.streamPlayer)
		c.streamPlayer.Resume()
	case "local":
		c.switchTo(c.filePlayer)
		c.filePlayer.Resume()
	default:
		return fmt.Errorf("unknown player %q: %w", preferred, store.ErrBadInput)
	}
	return nil
}

func (c *Coordinator) Stop() {
	c.Current().Stop()
}

// Next moves forward: to the next queued track, or to the next station in
// sort order (wrapping) while streaming.
func (c *Coordinator) Next() error {
	return c.step(1)
}

// Prev is Next's mirror image.
func (c *Coordinator) Prev() error {
	return c.step(-1)
}

func (c *Coordinator) step(delta int) error {
	if !c.IsStreaming() {
		if delta > 0 {
			c.filePlayer.Next()
		} else {
			c.filePlayer.Prev()
		}
		return nil
	}

	currentID, _, _, _, _ := c.streamPlayer.CurrentStation()
	var targetID int64
	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		stations, err := store.GetAllRadioStations(tx)
		if err != nil {
			return err
		}
		if len(stations) == 0 {
			return fmt.Errorf("no radio stations: %w", store.ErrNotFound)
		}
		index := 0
		for i, s := range stations {
			if s.ID == currentID {
				index = i
				break
			}
		}
		index = (index + delta + len(stations)) % len(stations)
		targetID = stations[index].ID
		return nil
	})
	if err != nil {
		return err
	}
	return c.playStation(targetID)
}

// SetVolume applies to both back-ends so the level survives switching.
func (c *Coordinator) SetVolume(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("volume %d out of range: %w", v, store.ErrBadInput)
	}
	c.filePlayer.SetVolume(v)
	c.streamPlayer.SetVolume(v)
	return nil
}

// QueueGet returns the visible queue. Queue operations are file-player
// territory; while streaming they conflict.
func (c *Coordinator) QueueGet() ([]QueuedItem, error) {
	if c.IsStreaming() {
		return nil, fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}
	return c.filePlayer.VisibleQueue(), nil
}

// QueueDelete removes one visible-queue entry.
func (c *Coordinator) QueueDelete(apparentIndex int, trackID int64) error {
	if c.IsStreaming() {
		return fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}
	return c.filePlayer.RemoveFromQueue(apparentIndex, trackID)
}

// QueueAppendAlbum appends an album's tracks, optionally one disk only.
func (c *Coordinator) QueueAppendAlbum(albumID int64, diskNr *int) error {
	if c.IsStreaming() {
		return fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}
	var tracks []store.Track
	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		if _, err := store.GetAlbumByID(tx, albumID); err != nil {
			return err
		}
		var err error
		tracks, err = store.TracksForAlbum(tx, albumID)
		return err
	})
	if err != nil {
		return err
	}
	if diskNr != nil {
		tracks = filterDisk(tracks, int64(*diskNr))
	}
	for _, t := range tracks {
		c.filePlayer.AddToQueue(queuedItem(t))
	}
	return nil
}

// QueueAppendTrack appends one catalog track.
func (c *Coordinator) QueueAppendTrack(trackID int64) error {
	if c.IsStreaming() {
		return fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}
	var track store.Track
	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		var err error
		track, err = store.GetTrackByID(tx, trackID)
		return err
	})
	if err != nil {
		return err
	}
	c.filePlayer.AddToQueue(queuedItem(track))
	return nil
}

// QueueAppendURL downloads a URL in the background and appends the results
// when done.
func (c *Coordinator) QueueAppendURL(url string) error {
	if c.IsStreaming() {
		return fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}
	c.enqueueFetch(url, c.QueueDownloads)
	return nil
}

// QueueReplace replaces the queue with the given ordered ids: non-negative
// ids resolve against the catalog, negative ones against the download
// registry. Playback continues if the currently playing item stays at the
// head.
func (c *Coordinator) QueueReplace(ids []int64) error {
	if c.IsStreaming() {
		return fmt.Errorf("queue unavailable while streaming: %w", store.ErrConflict)
	}

	items := make([]QueuedItem, 0, len(ids))
	err := dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if id >= 0 {
				track, err := store.GetTrackByID(tx, id)
				if err != nil {
					return err
				}
				items = append(items, queuedItem(track))
				continue
			}
			dl, ok := c.registry.Lookup(id)
			if !ok {
				return fmt.Errorf("download %d: %w", id, store.ErrNotFound)
			}
			items = append(items, downloadItem(dl))
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.filePlayer.SetQueue(items, "/queue/", true)
	return nil
}

func filterDisk(tracks []store.Track, disk int64) []store.Track {
	var out []store.Track
	for _, t := range tracks {
		if t.VolumeNumber != nil && *t.VolumeNumber == disk {
			out = append(out, t)
		}
	}
	return out
}

func queuedItem(t store.Track) QueuedItem {
	item := QueuedItem{
		Filepath: t.Filepath,
		TrackID:  t.ID,
		Artist:   t.Artist,
		Title:    t.Title,
	}
	if t.ArtworkID != nil {
		item.Artwork = fmt.Sprintf("/artwork/%d", *t.ArtworkID)
	}
	return item
}

func queuedItems(tracks []store.Track) []QueuedItem {
	items := make([]QueuedItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, queuedItem(t))
	}
	return items
}

func downloadItem(dl fetcher.Download) QueuedItem {
	return QueuedItem{
		Filepath: dl.Filepath,
		TrackID:  dl.FakeTrackID,
		Artist:   dl.Artist,
		Title:    dl.Title,
		Artwork:  dl.Artwork,
	}
}

// CachedDownloads returns the remembered downloads for url if every file
// still exists on disk; the worker uses this to skip a re-fetch.
func CachedDownloads(history *fetcher.History, url string) []fetcher.Download {
	downloads := history.GetInfo(url)
	if len(downloads) == 0 {
		return nil
	}
	for _, dl := range downloads {
		if _, err := os.Stat(dl.Filepath); err != nil {
			return nil
		}
	}
	return downloads
}
