package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/anime-shed/certscan-go/internal/frame"
	"github.com/anime-shed/certscan-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// PushDevice is a camera that lives on a remote client. The client declares
// its capabilities up front and then pushes pictures; the stream becomes
// ready with the first picture.
type PushDevice struct {
	caps Capabilities

	mu      sync.Mutex
	failure error
	active  *pushStream
	torch   bool
}

// NewPushDevice creates a push device with the declared capabilities
func NewPushDevice(caps Capabilities) *PushDevice {
	return &PushDevice{caps: caps}
}

// Capabilities returns what the remote client declared
func (d *PushDevice) Capabilities() Capabilities {
	return d.caps
}

// ReportFailure records an acquisition failure seen on the client, such as
// a refused permission prompt. Open returns it until ClearFailure.
func (d *PushDevice) ReportFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failure = err
}

// ClearFailure forgets a previously reported failure
func (d *PushDevice) ClearFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failure = nil
}

// Open starts a stream. Only one stream may be open at a time. A facing the
// client did not declare falls back to the first declared one.
func (d *PushDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Satisfiable(d.caps); err != nil {
		return nil, err
	}
	if c.Facing != "" && !d.caps.Supports(c.Facing) {
		logger.WithFields(logrus.Fields{
			"requested": c.Facing,
			"using":     d.caps.Facings[0],
		}).Info("Requested camera facing not declared by client")
		c = c.WithFacing(d.caps.Facings[0])
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failure != nil {
		return nil, d.failure
	}
	if d.active != nil {
		return nil, fmt.Errorf("%w: push stream already open", ErrDeviceBusy)
	}
	s := &pushStream{
		device: d,
		facing: c.Facing,
		ready:  make(chan struct{}),
	}
	d.active = s
	d.torch = false
	return s, nil
}

// Push converts and delivers a picture to the open stream
func (d *PushDevice) Push(img image.Image) error {
	return d.PushFrame(frame.FromImage(img))
}

// PushFrame delivers a luminance frame to the open stream
func (d *PushDevice) PushFrame(f *frame.Frame) error {
	if f.Empty() {
		return fmt.Errorf("empty frame")
	}
	d.mu.Lock()
	s := d.active
	d.mu.Unlock()
	if s == nil {
		return ErrNoActiveStream
	}
	s.deliver(f)
	return nil
}

// Torch reports the illumination state the client should apply
func (d *PushDevice) Torch() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.torch
}

// Facing reports the facing of the open stream, empty when none is open
func (d *PushDevice) Facing() FacingMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return ""
	}
	return d.active.facing
}

// Streaming reports whether a stream is currently open
func (d *PushDevice) Streaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

func (d *PushDevice) release(s *pushStream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == s {
		d.active = nil
		d.torch = false
	}
}

func (d *PushDevice) setTorch(on bool) error {
	if !d.caps.Torch {
		return ErrCapabilityUnsupported
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.torch = on
	return nil
}

type pushStream struct {
	device *PushDevice
	facing FacingMode

	mu        sync.Mutex
	latest    *frame.Frame
	stopped   bool
	ready     chan struct{}
	readyOnce sync.Once
}

func (s *pushStream) deliver(f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.latest = f
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *pushStream) Ready() <-chan struct{} {
	return s.ready
}

func (s *pushStream) Latest() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamEnded
	}
	if s.latest == nil {
		return nil, ErrNotReady
	}
	return s.latest, nil
}

func (s *pushStream) SetTorch(on bool) error {
	return s.device.setTorch(on)
}

func (s *pushStream) Stop() {
	s.mu.Lock()
	already := s.stopped
	s.stopped = true
	s.latest = nil
	s.mu.Unlock()
	if !already {
		s.device.release(s)
	}
}
