package scanner

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
)

// loop samples one session on a fixed period until it decodes, fails or is
// stopped. Ticks never overlap: a tick reads, detects and tears down before
// the next one can start.
type loop struct {
	session  *capture.Session
	detector detector.PatternDetector
	interval time.Duration

	outcome chan Outcome
	stop    chan struct{}
	done    chan struct{}

	stopOnce  sync.Once
	ticks     atomic.Uint64
	lastFrame atomic.Pointer[FrameInfo]
}

// startLoop runs a loop over session. The result is delivered exactly once
// on Outcome().
func startLoop(session *capture.Session, det detector.PatternDetector, interval time.Duration) *loop {
	l := &loop{
		session:  session,
		detector: det,
		interval: interval,
		outcome:  make(chan Outcome, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			l.finish(Outcome{Kind: OutcomeCancelled})
			return
		case <-ticker.C:
		}
		// a stop that raced the tick wins
		select {
		case <-l.stop:
			l.finish(Outcome{Kind: OutcomeCancelled})
			return
		default:
		}

		if o, ok := l.tick(); ok {
			l.finish(o)
			return
		}
	}
}

// tick performs one detection attempt. It reports true when the loop must end.
func (l *loop) tick() (Outcome, bool) {
	l.ticks.Add(1)

	f, err := l.session.CurrentFrame()
	if err != nil {
		if errors.Is(err, capture.ErrNotReady) {
			return Outcome{}, false
		}
		return Outcome{Kind: OutcomeFailed, Err: err}, true
	}
	l.lastFrame.Store(&FrameInfo{Width: f.Width, Height: f.Height, Stats: f.Stats()})

	payload, ok := l.detector.Detect(f)
	if !ok {
		return Outcome{}, false
	}
	return Outcome{Kind: OutcomeDecoded, Payload: payload}, true
}

// finish closes the session before the outcome becomes visible
func (l *loop) finish(o Outcome) {
	l.session.Close()
	l.outcome <- o
}

// Outcome delivers the single result of the loop
func (l *loop) Outcome() <-chan Outcome {
	return l.outcome
}

// Stop ends the loop and waits for its goroutine. Safe to call repeatedly
// and after the loop ended on its own.
func (l *loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
}

// Done is closed when the loop goroutine has exited
func (l *loop) Done() <-chan struct{} {
	return l.done
}

// Ticks returns how many ticks ran
func (l *loop) Ticks() uint64 {
	return l.ticks.Load()
}

// LastFrame returns the most recently scanned frame info, or nil
func (l *loop) LastFrame() *FrameInfo {
	return l.lastFrame.Load()
}
