package detector

import (
	"github.com/anime-shed/certscan-go/internal/frame"
)

// FinderCandidate is a sample window believed to hold a finder pattern. X
// and Y are the window's top-left corner and Size its side in pixels.
type FinderCandidate struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Size  int     `json:"size"`
	Score float64 `json:"score"`
}

func (c FinderCandidate) contains(x, y int) bool {
	return x >= c.X && x < c.X+c.Size && y >= c.Y && y < c.Y+c.Size
}

func scoreRun(samples [patternSize]uint8, threshold uint8, want [patternSize]bool) int {
	matches := 0
	for i, v := range samples {
		if (v < threshold) == want[i] {
			matches++
		}
	}
	return matches
}

// RunScore counts how many of the seven samples agree with the
// dark-dark-dark-light-dark-dark-dark signature
func RunScore(samples [patternSize]uint8, threshold uint8) int {
	return scoreRun(samples, threshold, finderSignature)
}

// CrossSectionScore counts how many of the seven module samples agree with
// the dark-light-dark-dark-dark-light-dark finder cross-section
func CrossSectionScore(samples [patternSize]uint8, threshold uint8) int {
	return scoreRun(samples, threshold, finderCrossSection)
}

// MatchScore samples the window whose top-left corner is (x, y). It returns
// the matching samples and the number of samples checked.
func MatchScore(f *frame.Frame, x, y int, opts Options) (matches, checks int) {
	opts = opts.normalized()
	mid := patternSize / 2

	var run [patternSize]uint8
	for i := 0; i < patternSize; i++ {
		run[i] = f.At(x+i, y+mid)
	}
	matches = RunScore(run, opts.Threshold)
	checks = patternSize

	if opts.CheckVertical {
		for i := 0; i < patternSize; i++ {
			run[i] = f.At(x+mid, y+i)
		}
		matches += RunScore(run, opts.Threshold)
		checks += patternSize
	}
	return matches, checks
}

// ModuleScore samples a window of 7x7 modules of module pixels each, with its
// top-left corner at (x, y). It samples the center of every module along
// the middle row, and along the middle column with CheckVertical.
func ModuleScore(f *frame.Frame, x, y, module int, opts Options) (matches, checks int) {
	opts = opts.normalized()
	if module < 1 {
		module = 1
	}
	half := module / 2
	mid := patternSize/2*module + half

	var run [patternSize]uint8
	for i := 0; i < patternSize; i++ {
		run[i] = f.At(x+i*module+half, y+mid)
	}
	matches = CrossSectionScore(run, opts.Threshold)
	checks = patternSize

	if opts.CheckVertical {
		for i := 0; i < patternSize; i++ {
			run[i] = f.At(x+mid, y+i*module+half)
		}
		matches += CrossSectionScore(run, opts.Threshold)
		checks += patternSize
	}
	return matches, checks
}

// accepts decides whether a score counts as a finder pattern
func (opts Options) accepts(matches, checks int) bool {
	if checks == 0 {
		return false
	}
	return float64(matches) >= opts.MinMatchRatio*float64(checks)
}

// candidateSet collects windows that do not overlap an accepted one
type candidateSet struct {
	limit int
	list  []FinderCandidate
}

// add keeps c unless it shares a center with an accepted window and reports
// whether the set is full
func (s *candidateSet) add(c FinderCandidate) bool {
	cx, cy := c.X+c.Size/2, c.Y+c.Size/2
	for _, o := range s.list {
		if o.contains(cx, cy) || c.contains(o.X+o.Size/2, o.Y+o.Size/2) {
			return false
		}
	}
	s.list = append(s.list, c)
	return len(s.list) >= s.limit
}

// FindCandidates returns up to RequiredCandidates non-overlapping windows
// that look like finder patterns, in scan order. The pixel pass slides a
// 7-pixel window by Step matching the run signature. The module pass then
// tries every module size up to MaxModule, stepping one module, matching the
// finder cross-section. Windows never reach into the margin.
func FindCandidates(f *frame.Frame, opts Options) []FinderCandidate {
	opts = opts.normalized()
	if f.Empty() {
		return nil
	}

	set := &candidateSet{limit: opts.RequiredCandidates}
	for y := opts.Margin; y+patternSize+opts.Margin <= f.Height; y += opts.Step {
		for x := opts.Margin; x+patternSize+opts.Margin <= f.Width; x += opts.Step {
			matches, checks := MatchScore(f, x, y, opts)
			if !opts.accepts(matches, checks) {
				continue
			}
			c := FinderCandidate{X: x, Y: y, Size: patternSize, Score: float64(matches) / float64(checks)}
			if set.add(c) {
				return set.list
			}
		}
	}

	for m := 1; m <= opts.maxModule(f); m++ {
		size := patternSize * m
		for y := opts.Margin; y+size+opts.Margin <= f.Height; y += m {
			for x := opts.Margin; x+size+opts.Margin <= f.Width; x += m {
				matches, checks := ModuleScore(f, x, y, m, opts)
				if !opts.accepts(matches, checks) {
					continue
				}
				c := FinderCandidate{X: x, Y: y, Size: size, Score: float64(matches) / float64(checks)}
				if set.add(c) {
					return set.list
				}
			}
		}
	}
	return set.list
}
