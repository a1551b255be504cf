package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/go-m4a"
	"github.com/llehouerou/go-mp3"
)

// readDurationMS probes the audio stream length in milliseconds without
// decoding the whole file.
func readDurationMS(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return mp3DurationMS(f)
	case ExtM4A:
		return m4aDurationMS(f)
	}
	return 0, fmt.Errorf("unsupported format: %s", path)
}

func mp3DurationMS(f *os.File) (int64, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return 0, errors.New("mp3: invalid sample rate")
	}
	sampleCount := max(decoder.SampleCount(), 0)
	return int64(float64(sampleCount) / float64(sampleRate) * 1000), nil
}

func m4aDurationMS(f *os.File) (int64, error) {
	container, err := m4a.Open(f)
	if err != nil {
		return 0, err
	}
	return container.Duration().Milliseconds(), nil
}
