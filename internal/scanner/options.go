package scanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
)

// Profile names accepted by ProfileOptions
const (
	ProfileDefault  = "default"
	ProfileMobile   = "mobile"
	ProfileEnhanced = "enhanced"
)

// Options configures one scanner. The three profiles differ only in these
// values; there is a single scan pipeline.
type Options struct {
	// Profile is informational, set by the preset constructors
	Profile string

	// Interval between scan ticks
	Interval time.Duration

	// Constraints is the preferred acquisition request
	Constraints capture.Constraints

	// Feature toggles
	EnableTorch            bool
	EnableManualFallback   bool
	RetryOnOverconstrained bool

	// Timeouts for the device grant and for metadata availability
	AcquisitionTimeout time.Duration
	MetadataTimeout    time.Duration
	// RetryDelay is the pause before the basic-constraints retry
	RetryDelay time.Duration

	Detector detector.Options
}

// DefaultOptions returns the desktop profile: fast ticks, no extras
func DefaultOptions() Options {
	return Options{
		Profile:  ProfileDefault,
		Interval: 100 * time.Millisecond,
		Constraints: capture.Constraints{
			Facing:    capture.FacingBack,
			Width:     capture.Range{Ideal: 1280, Max: 1920},
			Height:    capture.Range{Ideal: 720, Max: 1080},
			FrameRate: capture.Range{Ideal: 30, Max: 60},
		},
		EnableTorch:            false,
		EnableManualFallback:   false,
		RetryOnOverconstrained: false,
		AcquisitionTimeout:     10 * time.Second,
		MetadataTimeout:        5 * time.Second,
		RetryDelay:             time.Second,
		Detector:               detector.DefaultOptions(),
	}
}

// MobileOptions returns the phone profile with torch, manual entry and the
// constraint downgrade retry
func MobileOptions() Options {
	opts := DefaultOptions()
	opts.Profile = ProfileMobile
	opts.Interval = 200 * time.Millisecond
	opts.Constraints = capture.Constraints{
		Facing:    capture.FacingBack,
		Width:     capture.Range{Ideal: 1280, Min: 640},
		Height:    capture.Range{Ideal: 720, Min: 480},
		FrameRate: capture.Range{Ideal: 30, Min: 15},
	}
	opts.EnableTorch = true
	opts.EnableManualFallback = true
	opts.RetryOnOverconstrained = true
	opts.Detector = detector.MobileOptions()
	return opts
}

// EnhancedOptions returns the profile with bounded resolution and
// continuous focus hints
func EnhancedOptions() Options {
	opts := DefaultOptions()
	opts.Profile = ProfileEnhanced
	opts.Interval = 150 * time.Millisecond
	opts.Constraints = capture.Constraints{
		Facing:                 capture.FacingBack,
		Width:                  capture.Range{Ideal: 1280, Min: 640, Max: 1920},
		Height:                 capture.Range{Ideal: 720, Min: 480, Max: 1080},
		FrameRate:              capture.Range{Ideal: 30, Min: 15, Max: 60},
		ContinuousFocus:        true,
		ContinuousExposure:     true,
		ContinuousWhiteBalance: true,
	}
	opts.EnableTorch = true
	opts.EnableManualFallback = true
	opts.RetryOnOverconstrained = true
	opts.Detector = detector.DefaultOptions()
	return opts
}

// ProfileOptions resolves a profile name
func ProfileOptions(name string) (Options, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileDefault:
		return DefaultOptions(), nil
	case ProfileMobile:
		return MobileOptions(), nil
	case ProfileEnhanced:
		return EnhancedOptions(), nil
	default:
		return Options{}, fmt.Errorf("unknown scan profile %q", name)
	}
}

// WithFacing sets the preferred facing
func (opts Options) WithFacing(f capture.FacingMode) Options {
	opts.Constraints = opts.Constraints.WithFacing(f)
	return opts
}

// WithInterval sets the tick period
func (opts Options) WithInterval(d time.Duration) Options {
	if d > 0 {
		opts.Interval = d
	}
	return opts
}

// WithTorch toggles the illumination control
func (opts Options) WithTorch(enabled bool) Options {
	opts.EnableTorch = enabled
	return opts
}

// WithManualFallback toggles manual entry
func (opts Options) WithManualFallback(enabled bool) Options {
	opts.EnableManualFallback = enabled
	return opts
}

// WithRetryOnOverconstrained toggles the basic-constraints retry
func (opts Options) WithRetryOnOverconstrained(enabled bool) Options {
	opts.RetryOnOverconstrained = enabled
	return opts
}

// WithTimeouts overrides the acquisition, metadata and retry timings. Zero
// values keep the current setting.
func (opts Options) WithTimeouts(acquisition, metadata, retryDelay time.Duration) Options {
	if acquisition > 0 {
		opts.AcquisitionTimeout = acquisition
	}
	if metadata > 0 {
		opts.MetadataTimeout = metadata
	}
	if retryDelay > 0 {
		opts.RetryDelay = retryDelay
	}
	return opts
}

// WithDetector replaces the finder search options
func (opts Options) WithDetector(d detector.Options) Options {
	opts.Detector = d
	return opts
}

// normalized fills zero values from the default profile
func (opts Options) normalized() Options {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.AcquisitionTimeout <= 0 {
		opts.AcquisitionTimeout = def.AcquisitionTimeout
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = def.MetadataTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.Constraints.Facing == "" {
		opts.Constraints.Facing = capture.FacingBack
	}
	return opts
}
