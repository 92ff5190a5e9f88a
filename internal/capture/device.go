// Package capture acquires live pictures from capture devices and exposes
// the latest one as a luminance frame.
package capture

import (
	"context"
	"errors"

	"github.com/anime-shed/certscan-go/internal/frame"
)

// Acquisition and read failures reported by devices. Callers classify with
// errors.Is.
var (
	ErrPermissionDenied      = errors.New("capture permission denied")
	ErrDeviceNotFound        = errors.New("capture device not found")
	ErrUnsupported           = errors.New("capture not supported")
	ErrDeviceBusy            = errors.New("capture device busy")
	ErrOverconstrained       = errors.New("capture constraints unsatisfiable")
	ErrCapabilityUnsupported = errors.New("capability not supported by device")

	ErrNotReady       = errors.New("frame not ready")
	ErrSessionClosed  = errors.New("capture session closed")
	ErrStreamEnded    = errors.New("capture stream ended")
	ErrNoActiveStream = errors.New("no active capture stream")
)

// Device opens live streams. Open may block until the device grants access.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open device stream. Only the most recent picture is kept.
type Stream interface {
	// Ready is closed once the stream knows its picture metadata
	Ready() <-chan struct{}
	// Latest returns the most recent picture or ErrNotReady
	Latest() (*frame.Frame, error)
	// SetTorch switches the illumination, ErrCapabilityUnsupported if absent
	SetTorch(on bool) error
	// Stop releases the device. It must be safe to call more than once.
	Stop()
}

// DeviceFunc adapts a function to the Device interface
type DeviceFunc func(ctx context.Context, c Constraints) (Stream, error)

// Open calls f(ctx, c)
func (f DeviceFunc) Open(ctx context.Context, c Constraints) (Stream, error) {
	return f(ctx, c)
}
