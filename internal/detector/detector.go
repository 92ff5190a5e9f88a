// Package detector locates QR finder patterns in luminance frames and hands
// frames that look like a symbol to a decode backend.
package detector

import (
	"errors"
	"image"

	"github.com/anime-shed/certscan-go/internal/frame"
	"github.com/anime-shed/certscan-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// ErrNoSymbol means the backend found nothing readable. It is the normal
// "keep scanning" result, not a failure.
var ErrNoSymbol = errors.New("no symbol decoded")

// Backend turns a frame that passed the finder search into a payload
type Backend interface {
	Decode(f *frame.Frame) (string, error)
}

// BackendFunc adapts a function to the Backend interface
type BackendFunc func(f *frame.Frame) (string, error)

// Decode calls fn(f)
func (fn BackendFunc) Decode(f *frame.Frame) (string, error) {
	return fn(f)
}

// PatternDetector is what the scan loop needs from a detector
type PatternDetector interface {
	Detect(f *frame.Frame) (string, bool)
}

// Detector gates a backend behind the finder-pattern search
type Detector struct {
	opts    Options
	backend Backend
}

// New creates a detector. A nil backend never decodes anything.
func New(backend Backend, opts Options) *Detector {
	return &Detector{opts: opts.normalized(), backend: backend}
}

// Options returns the effective search options
func (d *Detector) Options() Options {
	return d.opts
}

// Candidates runs only the finder search
func (d *Detector) Candidates(f *frame.Frame) []FinderCandidate {
	return FindCandidates(f, d.opts)
}

// Detect returns the decoded payload and true, or "" and false when the
// frame holds no readable symbol. Misses are never errors.
func (d *Detector) Detect(f *frame.Frame) (string, bool) {
	if f.Empty() {
		return "", false
	}
	if !d.opts.SkipFinderGate {
		if len(d.Candidates(f)) < d.opts.RequiredCandidates {
			return "", false
		}
	}
	if d.backend == nil {
		return "", false
	}

	payload, err := d.backend.Decode(f)
	if err != nil {
		if !errors.Is(err, ErrNoSymbol) {
			logger.WithError(err).WithFields(logrus.Fields{
				"width":  f.Width,
				"height": f.Height,
			}).Debug("Decode backend failed")
		}
		return "", false
	}
	if payload == "" {
		return "", false
	}
	return payload, true
}

// DetectImage converts an image and runs Detect on it
func (d *Detector) DetectImage(img image.Image) (string, bool) {
	return d.Detect(frame.FromImage(img))
}
