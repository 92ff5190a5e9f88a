package detector

import "github.com/anime-shed/certscan-go/internal/frame"

// patternSize is the length of a finder-pattern sample run
const patternSize = 7

// minSymbolModules is the width of the smallest QR symbol, in modules
const minSymbolModules = 21

// finderSignature is the dark(1)/light(0) signature sampled along a run
var finderSignature = [patternSize]bool{true, true, true, false, true, true, true}

// finderCrossSection is the 1:1:3:1:1 profile of a line through the center
// of a finder pattern, one entry per module
var finderCrossSection = [patternSize]bool{true, false, true, true, true, false, true}

// Options tunes the finder-pattern search. Step and Margin are performance
// knobs, not correctness requirements.
type Options struct {
	// Threshold classifies a sample as dark when it is strictly below it
	Threshold uint8
	// Step is the stride between pixel-level sample windows. The module pass
	// always steps one module.
	Step int
	// Margin skips this many pixels at every frame edge
	Margin int
	// CheckVertical adds the vertical run through the window center and
	// accepts a window when MinMatchRatio of all checks match
	CheckVertical bool
	MinMatchRatio float64
	// RequiredCandidates is how many finder patterns make a symbol
	RequiredCandidates int
	// MaxModule caps the module size, in pixels, of the module pass. Zero
	// allows the largest finder a 21-module symbol could have in the frame.
	MaxModule int
	// SkipFinderGate hands every frame to the backend without searching
	SkipFinderGate bool
}

// DefaultOptions matches every sample of a strict horizontal run
func DefaultOptions() Options {
	return Options{
		Threshold:          128,
		Step:               2,
		Margin:             0,
		CheckVertical:      false,
		MinMatchRatio:      1.0,
		RequiredCandidates: 3,
	}
}

// MobileOptions trades density for speed and tolerates a few mismatches
func MobileOptions() Options {
	opts := DefaultOptions()
	opts.Step = 5
	opts.Margin = 10
	opts.CheckVertical = true
	opts.MinMatchRatio = 0.75
	return opts
}

// WithoutFinderGate disables the candidate search in front of the backend
func (opts Options) WithoutFinderGate() Options {
	opts.SkipFinderGate = true
	return opts
}

// normalized fills zero values with defaults
func (opts Options) normalized() Options {
	def := DefaultOptions()
	if opts.Threshold == 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Step <= 0 {
		opts.Step = 1
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	if opts.MinMatchRatio <= 0 || opts.MinMatchRatio > 1 {
		opts.MinMatchRatio = def.MinMatchRatio
		if opts.CheckVertical {
			opts.MinMatchRatio = 0.75
		}
	}
	if opts.RequiredCandidates <= 0 {
		opts.RequiredCandidates = def.RequiredCandidates
	}
	if opts.MaxModule < 0 {
		opts.MaxModule = 0
	}
	return opts
}

// maxModule is the largest module size the module pass tries on f
func (opts Options) maxModule(f *frame.Frame) int {
	side := min(f.Width, f.Height)
	limit := (side - 2*opts.Margin) / patternSize
	m := side / minSymbolModules
	if opts.MaxModule > 0 {
		m = opts.MaxModule
	}
	return max(min(m, limit), 0)
}
