package capture

import (
	"fmt"
	"strings"
)

// FacingMode selects which physical camera a request prefers
type FacingMode string

const (
	FacingFront FacingMode = "front"
	FacingBack  FacingMode = "back"
)

// ParseFacing accepts front/back as well as the user/environment aliases
// browsers use. An empty value selects the back camera.
func ParseFacing(s string) (FacingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "back", "environment", "rear":
		return FacingBack, nil
	case "front", "user":
		return FacingFront, nil
	default:
		return "", fmt.Errorf("unknown facing mode %q", s)
	}
}

// Toggle returns the opposite facing
func (f FacingMode) Toggle() FacingMode {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Range is a best-effort numeric preference. Zero fields are unset.
type Range struct {
	Ideal int `json:"ideal,omitempty"`
	Min   int `json:"min,omitempty"`
	Max   int `json:"max,omitempty"`
}

// IsZero reports whether no bound or preference is set
func (r Range) IsZero() bool {
	return r.Ideal == 0 && r.Min == 0 && r.Max == 0
}

// valid reports whether the range can be satisfied by some value
func (r Range) valid() bool {
	return r.Min == 0 || r.Max == 0 || r.Min <= r.Max
}

// Constraints describes one acquisition attempt. Values are immutable once
// handed to a device; retries and facing switches build a new value.
type Constraints struct {
	Facing    FacingMode `json:"facing"`
	Width     Range      `json:"width"`
	Height    Range      `json:"height"`
	FrameRate Range      `json:"frame_rate"`

	ContinuousFocus        bool `json:"continuous_focus,omitempty"`
	ContinuousExposure     bool `json:"continuous_exposure,omitempty"`
	ContinuousWhiteBalance bool `json:"continuous_white_balance,omitempty"`
}

// Basic drops everything except the facing preference
func (c Constraints) Basic() Constraints {
	return Constraints{Facing: c.Facing}
}

// WithFacing returns a copy with a different facing preference
func (c Constraints) WithFacing(f FacingMode) Constraints {
	c.Facing = f
	return c
}

// Capabilities is what a device reports it can deliver. Zero maxima are
// treated as unbounded.
type Capabilities struct {
	Facings      []FacingMode `json:"facings,omitempty"`
	MaxWidth     int          `json:"max_width,omitempty"`
	MaxHeight    int          `json:"max_height,omitempty"`
	MaxFrameRate int          `json:"max_frame_rate,omitempty"`
	Torch        bool         `json:"torch,omitempty"`
}

// Supports reports whether the device can face the given way. A device that
// declares no facings supports any.
func (c Capabilities) Supports(f FacingMode) bool {
	if len(c.Facings) == 0 {
		return true
	}
	for _, have := range c.Facings {
		if have == f {
			return true
		}
	}
	return false
}

// Satisfiable checks the hard bounds of c against the device capabilities.
// Ideal values and facing are preferences and never fail negotiation.
func (c Constraints) Satisfiable(caps Capabilities) error {
	checks := []struct {
		name string
		r    Range
		max  int
	}{
		{"width", c.Width, caps.MaxWidth},
		{"height", c.Height, caps.MaxHeight},
		{"frame rate", c.FrameRate, caps.MaxFrameRate},
	}
	for _, ch := range checks {
		if !ch.r.valid() {
			return fmt.Errorf("%w: %s min %d exceeds max %d", ErrOverconstrained, ch.name, ch.r.Min, ch.r.Max)
		}
		if ch.max > 0 && ch.r.Min > ch.max {
			return fmt.Errorf("%w: %s min %d exceeds device max %d", ErrOverconstrained, ch.name, ch.r.Min, ch.max)
		}
	}
	return nil
}

// fitsPicture checks the minimum resolution bounds against an actual picture
func (c Constraints) fitsPicture(width, height int) error {
	if c.Width.Min > 0 && width < c.Width.Min {
		return fmt.Errorf("%w: width %d below min %d", ErrOverconstrained, width, c.Width.Min)
	}
	if c.Height.Min > 0 && height < c.Height.Min {
		return fmt.Errorf("%w: height %d below min %d", ErrOverconstrained, height, c.Height.Min)
	}
	return nil
}
