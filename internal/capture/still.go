package capture

import (
	"context"
	"image"
	"sync"

	"github.com/anime-shed/certscan-go/internal/frame"
)

// StillDevice replays a fixed set of pictures, one per read, cycling
type StillDevice struct {
	frames []*frame.Frame
}

// NewStillDevice converts the images once up front
func NewStillDevice(images ...image.Image) *StillDevice {
	frames := make([]*frame.Frame, 0, len(images))
	for _, img := range images {
		frames = append(frames, frame.FromImage(img))
	}
	return &StillDevice{frames: frames}
}

// NewStillDeviceFromFrames uses already converted frames
func NewStillDeviceFromFrames(frames ...*frame.Frame) *StillDevice {
	return &StillDevice{frames: frames}
}

// Open returns a stream that is ready immediately
func (d *StillDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.frames) == 0 {
		return nil, ErrDeviceNotFound
	}
	if err := c.fitsPicture(d.frames[0].Width, d.frames[0].Height); err != nil {
		return nil, err
	}
	ready := make(chan struct{})
	close(ready)
	return &stillStream{frames: d.frames, ready: ready}, nil
}

type stillStream struct {
	frames []*frame.Frame
	ready  chan struct{}

	mu      sync.Mutex
	next    int
	stopped bool
}

func (s *stillStream) Ready() <-chan struct{} {
	return s.ready
}

func (s *stillStream) Latest() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamEnded
	}
	f := s.frames[s.next%len(s.frames)]
	s.next++
	return f, nil
}

func (s *stillStream) SetTorch(bool) error {
	return ErrCapabilityUnsupported
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
