package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/frame"
)

// fakeDevice counts open streams so tests can assert exclusivity
type fakeDevice struct {
	mu          sync.Mutex
	open        int
	maxOpen     int
	attempts    int
	constraints []capture.Constraints
	streams     []*fakeStream

	// failAttempt returns the error for attempt n (1-based), nil to grant
	failAttempt func(n int) error
	// block, when set, holds every grant until closed, ignoring ctx
	block     chan struct{}
	notReady  bool
	noFrame   bool
	torchErr  error
	latestErr error
}

func (d *fakeDevice) Open(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	d.attempts++
	n := d.attempts
	d.constraints = append(d.constraints, c)
	fail := d.failAttempt
	block := d.block
	d.mu.Unlock()

	if fail != nil {
		if err := fail(n); err != nil {
			return nil, err
		}
	}
	if block != nil {
		<-block
	}

	s := &fakeStream{device: d, ready: make(chan struct{}), torchErr: d.torchErr, latestErr: d.latestErr}
	if !d.noFrame {
		s.frame = whiteFrame(64, 64)
	}
	if !d.notReady {
		close(s.ready)
	}

	d.mu.Lock()
	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *fakeDevice) maxOpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxOpen
}

func (d *fakeDevice) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *fakeDevice) constraintsAt(i int) capture.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constraints[i]
}

func (d *fakeDevice) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[i]
}

type fakeStream struct {
	device    *fakeDevice
	ready     chan struct{}
	torchErr  error
	latestErr error

	mu       sync.Mutex
	frame    *frame.Frame
	torch    bool
	stopOnce sync.Once
	stopped  atomic.Bool
	stops    atomic.Int32
}

func (s *fakeStream) Ready() <-chan struct{} { return s.ready }

func (s *fakeStream) Latest() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	if s.frame == nil {
		return nil, capture.ErrNotReady
	}
	return s.frame, nil
}

func (s *fakeStream) setFrame(f *frame.Frame) {
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
}

func (s *fakeStream) SetTorch(on bool) error {
	if s.torchErr != nil {
		return s.torchErr
	}
	s.mu.Lock()
	s.torch = on
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Stop() {
	s.stops.Add(1)
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.device.mu.Lock()
		s.device.open--
		s.device.mu.Unlock()
	})
}

// recordingHost captures callbacks
type recordingHost struct {
	mu     sync.Mutex
	scans  []string
	errors []string
	closes int

	scanned chan string
	failed  chan string
}

func newRecordingHost() *recordingHost {
	return &recordingHost{scanned: make(chan string, 10), failed: make(chan string, 10)}
}

func (h *recordingHost) OnScan(payload string) {
	h.mu.Lock()
	h.scans = append(h.scans, payload)
	h.mu.Unlock()
	h.scanned <- payload
}

func (h *recordingHost) OnError(message string) {
	h.mu.Lock()
	h.errors = append(h.errors, message)
	h.mu.Unlock()
	h.failed <- message
}

func (h *recordingHost) OnClose() {
	h.mu.Lock()
	h.closes++
	h.mu.Unlock()
}

func (h *recordingHost) counts() (scans, errors, closes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scans), len(h.errors), h.closes
}

// countingDetector decodes payload once armed and counts frame reads
type countingDetector struct {
	payload string
	armed   atomic.Bool
	calls   atomic.Int64
}

func (d *countingDetector) Detect(*frame.Frame) (string, bool) {
	d.calls.Add(1)
	if d.armed.Load() {
		return d.payload, true
	}
	return "", false
}

func armedDetector(payload string) *countingDetector {
	d := &countingDetector{payload: payload}
	d.armed.Store(true)
	return d
}

func whiteFrame(w, h int) *frame.Frame {
	f := frame.New(w, h)
	for i := range f.Pix {
		f.Pix[i] = 255
	}
	return f
}

func testOptions() Options {
	return DefaultOptions().
		WithInterval(5*time.Millisecond).
		WithTimeouts(500*time.Millisecond, 500*time.Millisecond, 10*time.Millisecond).
		WithManualFallback(true).
		WithTorch(true)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive(t *testing.T, ch <-chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}
