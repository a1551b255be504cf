// Package player hosts the two audio back-ends and the coordinator that
// arbitrates between them: a file player driving decoder subprocesses over
// a queue of local tracks, and a stream player for internet radio with its
// now-playing metadata poller.
package player

// Status is the externally visible playback state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// QueuedItem is one entry in the file player's queue. TrackID is
// non-negative for catalog tracks and negative for ephemeral downloads.
type QueuedItem struct {
	Filepath string
	TrackID  int64
	Artist   string
	Title    string
	Artwork  string // URL, empty for none
}

// Player is what the coordinator and the snapshot builder need from either
// back-end.
type Player interface {
	Pause()
	Resume()
	Stop()
	SetVolume(v int)
	CurrentStatus() Status
	CurrentVolume() int
	NumberOfTracks() int
	// CurrentTrackIndex is 0-based; -1 when nothing is current.
	CurrentTrackIndex() int
	SetStateChangeCallback(fn func())
}

const defaultVolume = 100
