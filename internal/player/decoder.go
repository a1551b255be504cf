package player

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// FileDecoder is the capability the file player drives. One decoder plays
// one file; OnFinished fires once when the song runs to its natural end,
// never on Stop.
type FileDecoder interface {
	Play(path string, volume int) error
	Pause() error
	Resume() error
	Stop() error
	SetVolume(v int) error
	OnFinished(fn func())
}

// NewDecoderForFile picks the decoder subprocess by extension: mpg123 for
// mp3, mpv for everything else.
func NewDecoderForFile(path string) FileDecoder {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return newMPG123Decoder()
	}
	return newMPVDecoder()
}

// mpg123Decoder drives `mpg123 -R`, the remote-control protocol on
// stdin/stdout. "@P 0" on stdout after playback started means the song
// finished (or was stopped; a local flag tells the two apart).
type mpg123Decoder struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stopping bool
	finished func()
}

func newMPG123Decoder() *mpg123Decoder {
	return &mpg123Decoder{}
}

func (d *mpg123Decoder) OnFinished(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = fn
}

func (d *mpg123Decoder) Play(path string, volume int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := exec.Command("mpg123", "-R")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpg123: %w", err)
	}
	d.cmd = cmd
	d.stdin = stdin
	d.stopping = false

	go d.readEvents(stdout)

	if _, err := fmt.Fprintf(stdin, "V %d\n", volume); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdin, "L %s\n", path)
	return err
}

func (d *mpg123Decoder) readEvents(stdout io.Reader) {
	started := false
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "@P 2"):
			started = true
		case strings.HasPrefix(line, "@P 0"):
			if !started {
				continue
			}
			d.mu.Lock()
			stopping := d.stopping
			finished := d.finished
			d.mu.Unlock()
			if !stopping && finished != nil {
				finished()
			}
			return
		}
	}
}

func (d *mpg123Decoder) send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stdin == nil {
		return nil
	}
	_, err := fmt.Fprintln(d.stdin, cmd)
	return err
}

func (d *mpg123Decoder) Pause() error  { return d.send("P") }
func (d *mpg123Decoder) Resume() error { return d.send("P") }

func (d *mpg123Decoder) SetVolume(v int) error {
	return d.send(fmt.Sprintf("V %d", v))
}

func (d *mpg123Decoder) Stop() error {
	d.mu.Lock()
	d.stopping = true
	cmd := d.cmd
	stdin := d.stdin
	d.cmd = nil
	d.stdin = nil
	d.mu.Unlock()

	if stdin != nil {
		fmt.Fprintln(stdin, "Q") //nolint:errcheck
		stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill() //nolint:errcheck
		cmd.Wait()         //nolint:errcheck
	}
	return nil
}

// mpvDecoder plays anything mpv can open. No IPC: process exit is
// end-of-song, SIGSTOP/SIGCONT implement pause, and volume changes only
// apply to the next Play.
type mpvDecoder struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	stopping bool
	finished func()
}

func newMPVDecoder() *mpvDecoder {
	return &mpvDecoder{}
}

func (d *mpvDecoder) OnFinished(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = fn
}

func (d *mpvDecoder) Play(path string, volume int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := exec.Command("mpv", "--no-video", fmt.Sprintf("--volume=%d", volume), path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	d.cmd = cmd
	d.stopping = false

	go func() {
		err := cmd.Wait()
		d.mu.Lock()
		stopping := d.stopping
		finished := d.finished
		d.mu.Unlock()
		if stopping {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("mpv exited abnormally")
		}
		if finished != nil {
			finished()
		}
	}()
	return nil
}

func (d *mpvDecoder) signal(sig syscall.Signal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil || d.cmd.Process == nil {
		return nil
	}
	return d.cmd.Process.Signal(sig)
}

func (d *mpvDecoder) Pause() error  { return d.signal(syscall.SIGSTOP) }
func (d *mpvDecoder) Resume() error { return d.signal(syscall.SIGCONT) }

func (d *mpvDecoder) SetVolume(int) error { return nil }

func (d *mpvDecoder) Stop() error {
	d.mu.Lock()
	d.stopping = true
	cmd := d.cmd
	d.cmd = nil
	d.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill() //nolint:errcheck
	}
	return nil
}
