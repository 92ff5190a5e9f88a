// Package frame holds the single-channel luminance rasters the scan
// pipeline works on.
package frame

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// maxStatSamples caps how many pixels Stats looks at
const maxStatSamples = 4096

// Frame is a width x height grid of luminance samples, one byte per pixel,
// row-major with no padding.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Stats summarizes the brightness distribution of a frame
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// New allocates a frame of the given size filled with zero (black)
func New(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{Width: width, Height: height, Pix: make([]byte, width*height)}
}

// Luminance converts an 8-bit RGB triple with the perceptual weighting
// 0.299R + 0.587G + 0.114B, rounded half up.
func Luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// FromRGBA converts a packed RGBA buffer (4 bytes per pixel, alpha ignored)
// such as a canvas ImageData payload.
func FromRGBA(data []byte, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("rgba buffer too short: got %d bytes, want %d", len(data), width*height*4)
	}
	f := New(width, height)
	for i := range f.Pix {
		p := data[i*4:]
		f.Pix[i] = Luminance(p[0], p[1], p[2])
	}
	return f, nil
}

// FromImage converts any image to a luminance frame
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := New(w, h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			off := (bounds.Min.Y+y-src.Rect.Min.Y)*src.Stride + (bounds.Min.X - src.Rect.Min.X)
			copy(f.Pix[y*w:(y+1)*w], src.Pix[off:off+w])
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < w; x++ {
				f.Pix[y*w+x] = Luminance(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < w; x++ {
				f.Pix[y*w+x] = Luminance(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				f.Pix[y*w+x] = Luminance(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}
	return f
}

// Empty reports whether the frame has no pixels
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0
}

// At returns the luminance at (x, y); out of range reads return 255 (light)
func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 255
	}
	return f.Pix[y*f.Width+x]
}

// Set writes the luminance at (x, y); out of range writes are ignored
func (f *Frame) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Pix[y*f.Width+x] = v
}

// Gray returns a copy of the frame as an *image.Gray
func (f *Frame) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	return img
}

// Stats computes the luminance mean and standard deviation over an evenly
// strided subsample of the frame.
func (f *Frame) Stats() Stats {
	if f.Empty() {
		return Stats{}
	}
	step := len(f.Pix)/maxStatSamples + 1
	samples := make([]float64, 0, len(f.Pix)/step+1)
	for i := 0; i < len(f.Pix); i += step {
		samples = append(samples, float64(f.Pix[i]))
	}
	if len(samples) < 2 {
		return Stats{Mean: samples[0]}
	}
	mean, std := stat.MeanStdDev(samples, nil)
	return Stats{Mean: mean, StdDev: std}
}
