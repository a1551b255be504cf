package tags

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("/music/a.mp3"))
	assert.True(t, Supported("/music/a.MP3"))
	assert.True(t, Supported("/music/a.m4a"))
	assert.False(t, Supported("/music/a.flac"))
	assert.False(t, Supported("/music/cover.jpg"))
}

func TestNormalizePath(t *testing.T) {
	// "é" decomposed (e + combining acute) normalizes to the composed form.
	decomposed := "/music/Beyonce\u0301/track.mp3"
	composed := "/music/Beyonc\u00e9/track.mp3"
	assert.Equal(t, composed, NormalizePath(decomposed))
	assert.Equal(t, composed, NormalizePath(composed))
}

func TestImageSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 640, 480))))

	w, h := imageSize(buf.Bytes())
	assert.Equal(t, int64(640), w)
	assert.Equal(t, int64(480), h)

	w, h = imageSize([]byte("not an image"))
	assert.Zero(t, w)
	assert.Zero(t, h)
}
