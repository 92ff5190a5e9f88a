package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/anime-shed/certscan-go/internal/frame"
	"github.com/anime-shed/certscan-go/internal/logger"

	"github.com/sirupsen/logrus"
)

const (
	defaultSnapshotInterval = 250 * time.Millisecond
	maxSnapshotFailures     = 5
)

// ImageFetcher retrieves a single picture from a location
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// statusCoder is implemented by fetch errors that carry a response status
type statusCoder interface {
	HTTPStatus() int
}

// SnapshotDevice turns a still-image endpoint (IP camera snapshot URL, blob
// written by an edge camera) into a live stream by polling it.
type SnapshotDevice struct {
	fetcher   ImageFetcher
	sourceURL string
	interval  time.Duration
}

// NewSnapshotDevice polls sourceURL through fetcher every interval
func NewSnapshotDevice(fetcher ImageFetcher, sourceURL string, interval time.Duration) *SnapshotDevice {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	return &SnapshotDevice{fetcher: fetcher, sourceURL: sourceURL, interval: interval}
}

// Open fetches the source once, then keeps refreshing it in the background
func (d *SnapshotDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	img, err := d.fetcher.FetchImage(ctx, d.sourceURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classifyFetchError(err)
	}
	first := frame.FromImage(img)
	if err := c.fitsPicture(first.Width, first.Height); err != nil {
		return nil, err
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	close(ready)
	s := &snapshotStream{
		device: d,
		latest: first,
		ready:  ready,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.refresh(refreshCtx)
	return s, nil
}

// classifyFetchError maps a failed fetch to an acquisition error
func classifyFetchError(err error) error {
	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		case code == http.StatusNotFound || code == http.StatusGone:
			return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		case code == http.StatusUnsupportedMediaType || code == http.StatusNotImplemented:
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
}

type snapshotStream struct {
	device *SnapshotDevice
	ready  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	latest   *frame.Frame
	ended    bool
	stopOnce sync.Once
}

func (s *snapshotStream) refresh(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.device.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 10*s.device.interval)
		img, err := s.device.fetcher.FetchImage(fetchCtx, s.device.sourceURL)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			logger.WithError(err).WithFields(logrus.Fields{
				"source":   s.device.sourceURL,
				"failures": failures,
			}).Debug("Snapshot refresh failed")
			if failures >= maxSnapshotFailures {
				s.mu.Lock()
				s.ended = true
				s.mu.Unlock()
				return
			}
			continue
		}
		failures = 0
		f := frame.FromImage(img)
		s.mu.Lock()
		s.latest = f
		s.mu.Unlock()
	}
}

func (s *snapshotStream) Ready() <-chan struct{} {
	return s.ready
}

func (s *snapshotStream) Latest() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrStreamEnded
	}
	if s.latest == nil {
		return nil, ErrNotReady
	}
	return s.latest, nil
}

func (s *snapshotStream) SetTorch(bool) error {
	return ErrCapabilityUnsupported
}

func (s *snapshotStream) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		s.mu.Lock()
		s.ended = true
		s.latest = nil
		s.mu.Unlock()
	})
}
