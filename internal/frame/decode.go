package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
)

// DefaultMaxPixels bounds decoded pictures when no limit is configured
const DefaultMaxPixels = 4096 * 4096

// ErrTooManyPixels is returned when a picture declares more pixels than the
// caller allows
var ErrTooManyPixels = errors.New("picture exceeds pixel limit")

// DecodeImage reads the picture header first and refuses to decode pictures
// whose declared width x height exceeds maxPixels. maxPixels <= 0 means
// DefaultMaxPixels.
func DecodeImage(r io.Reader, maxPixels int) (image.Image, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("invalid picture size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d > %d", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}
	return image.Decode(io.MultiReader(&header, r))
}
