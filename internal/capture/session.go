package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/anime-shed/certscan-go/internal/frame"
)

// Session owns one open device stream. It is closed exactly once no matter
// how many times Close is called.
type Session struct {
	constraints Constraints
	stream      Stream

	closeOnce sync.Once
	closed    atomic.Bool
}

// OpenSession opens a stream on dev with the given constraints
func OpenSession(ctx context.Context, dev Device, c Constraints) (*Session, error) {
	if dev == nil {
		return nil, ErrUnsupported
	}
	stream, err := dev.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	return NewSession(stream, c), nil
}

// NewSession wraps an already open stream
func NewSession(stream Stream, c Constraints) *Session {
	return &Session{constraints: c, stream: stream}
}

// Constraints returns the constraints the session was opened with
func (s *Session) Constraints() Constraints {
	return s.constraints
}

// Ready is closed when the stream reports its metadata
func (s *Session) Ready() <-chan struct{} {
	return s.stream.Ready()
}

// WaitReady blocks until the metadata is available or ctx is done
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.stream.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentFrame returns the latest picture. ErrNotReady means nothing full
// has been buffered yet and the caller should simply try again later.
func (s *Session) CurrentFrame() (*frame.Frame, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	select {
	case <-s.stream.Ready():
	default:
		return nil, ErrNotReady
	}
	f, err := s.stream.Latest()
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, ErrNotReady
	}
	return f, nil
}

// SetTorch forwards the illumination request to the stream
func (s *Session) SetTorch(on bool) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.stream.SetTorch(on)
}

// Close stops the underlying stream. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.stream.Stop()
	})
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	return s.closed.Load()
}
