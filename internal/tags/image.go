package tags

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// imageSize decodes just the image header. Unrecognized data yields (0, 0);
// missing dimensions are not worth failing a scan over.
func imageSize(blob []byte) (width, height int64) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return 0, 0
	}
	return int64(cfg.Width), int64(cfg.Height)
}
