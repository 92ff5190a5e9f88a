// Package scanner runs the camera acquisition lifecycle and the periodic
// scan loop, and reports at most one decoded payload per lifecycle.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/observer"
	"github.com/anime-shed/certscan-go/pkg/validation"

	"github.com/sirupsen/logrus"
)

// errSuperseded means a newer attempt or Close took over
var errSuperseded = errors.New("acquisition superseded")

// Option customizes a Scanner
type Option func(*Scanner)

// WithPublisher publishes lifecycle events to p
func WithPublisher(p observer.Subject) Option {
	return func(s *Scanner) { s.publisher = p }
}

// WithSessionID tags logs and events with id
func WithSessionID(id string) Option {
	return func(s *Scanner) { s.id = id }
}

// WithValidator replaces the manual entry validator
func WithValidator(v *validation.PayloadValidator) Option {
	return func(s *Scanner) { s.validator = v }
}

// WithTorchAvailable declares whether the device has an illumination control
func WithTorchAvailable(available bool) Option {
	return func(s *Scanner) { s.torchAvailable = available }
}

// Scanner owns at most one capture session and one scan loop at a time.
type Scanner struct {
	device         capture.Device
	detector       detector.PatternDetector
	host           Host
	opts           Options
	validator      *validation.PayloadValidator
	publisher      observer.Subject
	id             string
	torchAvailable bool

	// acquireMu serializes Start and SwitchFacing
	acquireMu sync.Mutex

	mu        sync.Mutex
	gen       uint64
	state     AcquisitionState
	reason    *apperrors.AppError
	facing    capture.FacingMode
	started   bool
	emitted   bool
	outcome   Outcome
	session   *capture.Session
	loop      *loop
	cancel    context.CancelFunc
	torchOn   bool
	closed    bool
	grantedAt time.Time
	ticks     uint64
	lastFrame *FrameInfo
}

// New creates a scanner. Nothing is acquired until Start.
func New(device capture.Device, det detector.PatternDetector, host Host, opts Options, extra ...Option) *Scanner {
	opts = opts.normalized()
	if host == nil {
		host = HostFuncs{}
	}
	s := &Scanner{
		device:         device,
		detector:       det,
		host:           host,
		opts:           opts,
		validator:      validation.NewPayloadValidator(),
		torchAvailable: true,
		facing:         opts.Constraints.Facing,
		state:          StateNotStarted,
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

// Options returns the effective options
func (s *Scanner) Options() Options {
	return s.opts
}

func (s *Scanner) log() *logrus.Entry {
	return logger.WithSession(s.id)
}

// Start requests device access and, once granted, starts the scan loop.
// It re-arms a scanner that already decoded. Starting while a session is
// granted is a no-op.
func (s *Scanner) Start(ctx context.Context) error {
	s.acquireMu.Lock()
	defer s.acquireMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScannerClosed
	}
	if s.state == StateGranted && s.loop != nil {
		s.mu.Unlock()
		return nil
	}
	s.emitted = false
	s.outcome = Outcome{Kind: OutcomePending}
	attemptCtx, cancel, gen, facing := s.beginAttemptLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	return s.settle(s.acquire(attemptCtx, gen, facing))
}

// beginAttemptLocked moves to Requesting under a new generation. Callers hold mu.
func (s *Scanner) beginAttemptLocked(ctx context.Context) (context.Context, context.CancelFunc, uint64, capture.FacingMode) {
	s.gen++
	s.started = true
	s.reason = nil
	s.state = StateRequesting
	attemptCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return attemptCtx, cancel, s.gen, s.facing
}

// settle hides the internal superseded signal from callers
func (s *Scanner) settle(err error) error {
	if !errors.Is(err, errSuperseded) {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrScannerClosed
	}
	return nil
}

// acquire runs one acquisition attempt including the optional downgrade
// retry. Callers hold acquireMu.
func (s *Scanner) acquire(ctx context.Context, gen uint64, facing capture.FacingMode) error {
	requested := time.Now()
	constraints := s.opts.Constraints.WithFacing(facing)
	s.publish(observer.ScanEvent{EventType: observer.AcquisitionRequested, Metadata: map[string]interface{}{"facing": string(facing)}})

	session, err := s.open(ctx, constraints)
	if err != nil && errors.Is(err, capture.ErrOverconstrained) && s.opts.RetryOnOverconstrained {
		if !s.transition(gen, StateRetrying) {
			return errSuperseded
		}
		s.log().WithError(err).Info("Constraints unsatisfiable, retrying with basic settings")
		s.publish(observer.ScanEvent{EventType: observer.AcquisitionRetrying, ErrorMessage: err.Error()})

		timer := time.NewTimer(s.opts.RetryDelay)
		select {
		case <-timer.C:
			session, err = s.open(ctx, constraints.Basic())
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		}
	}
	if err != nil {
		return s.deny(gen, err)
	}

	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		session.Close()
		return errSuperseded
	}
	l := startLoop(session, s.detector, s.opts.Interval)
	s.session = session
	s.loop = l
	s.state = StateGranted
	s.torchOn = false
	s.grantedAt = time.Now()
	s.mu.Unlock()

	s.log().WithFields(logrus.Fields{
		"facing":   string(facing),
		"interval": s.opts.Interval.String(),
	}).Info("Camera access granted, scanning")
	s.publish(observer.ScanEvent{EventType: observer.AcquisitionGranted, Success: true, Duration: time.Since(requested)})

	go s.watch(gen, l)
	return nil
}

// open races the device grant against the acquisition timeout, then waits
// for metadata. A grant that arrives after the race was lost is closed.
func (s *Scanner) open(ctx context.Context, c capture.Constraints) (*capture.Session, error) {
	openCtx, cancel := context.WithTimeout(ctx, s.opts.AcquisitionTimeout)
	defer cancel()

	type result struct {
		session *capture.Session
		err     error
	}
	results := make(chan result, 1)
	go func() {
		session, err := capture.OpenSession(openCtx, s.device, c)
		results <- result{session, err}
	}()

	var session *capture.Session
	select {
	case r := <-results:
		if r.err != nil {
			return nil, s.timeoutCause(ctx, r.err, errAcquisitionTimeout)
		}
		session = r.session
	case <-openCtx.Done():
		go func() {
			if r := <-results; r.session != nil {
				s.log().Debug("Closing late capture grant")
				r.session.Close()
			}
		}()
		return nil, s.timeoutCause(ctx, openCtx.Err(), errAcquisitionTimeout)
	}

	metaCtx, metaCancel := context.WithTimeout(ctx, s.opts.MetadataTimeout)
	defer metaCancel()
	if err := session.WaitReady(metaCtx); err != nil {
		session.Close()
		return nil, s.timeoutCause(ctx, err, errMetadataTimeout)
	}
	return session, nil
}

// timeoutCause keeps caller cancellation distinct from a timeout
func (s *Scanner) timeoutCause(parent context.Context, err, timeout error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeout
	}
	return err
}

// transition changes state if gen is still current
func (s *Scanner) transition(gen uint64, state AcquisitionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.closed {
		return false
	}
	s.state = state
	return true
}

// deny records a failed attempt and reports it to the host. Cancelled
// attempts go back to NotStarted silently.
func (s *Scanner) deny(gen uint64, err error) error {
	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		return errSuperseded
	}
	if errors.Is(err, context.Canceled) {
		s.state = StateNotStarted
		s.started = false
		s.mu.Unlock()
		return err
	}
	appErr := classify(err)
	s.state = StateDenied
	s.reason = appErr
	s.mu.Unlock()

	s.log().WithError(err).WithField("error_type", appErr.Type).Warn("Camera access failed")
	s.publish(observer.ScanEvent{
		EventType:    observer.AcquisitionDenied,
		ErrorType:    string(appErr.Type),
		ErrorMessage: err.Error(),
	})
	s.host.OnError(appErr.Message)
	return appErr
}

// watch consumes the single outcome of l
func (s *Scanner) watch(gen uint64, l *loop) {
	o := <-l.Outcome()

	s.mu.Lock()
	if s.gen != gen || s.closed || s.loop != l {
		s.mu.Unlock()
		return
	}
	s.retireLocked(l)
	s.session = nil
	grantedAt := s.grantedAt

	switch o.Kind {
	case OutcomeDecoded:
		if s.emitted {
			s.mu.Unlock()
			return
		}
		s.emitted = true
		s.outcome = o
		s.state = StateNotStarted
		s.started = false
		s.mu.Unlock()

		s.log().WithField("ticks", l.Ticks()).Info("QR code detected")
		s.publish(observer.ScanEvent{
			EventType: observer.ScanDecoded,
			Success:   true,
			Duration:  time.Since(grantedAt),
			Metadata:  map[string]interface{}{"source": "camera", "ticks": l.Ticks()},
		})
		s.host.OnScan(o.Payload)

	case OutcomeFailed:
		appErr := classify(o.Err)
		s.outcome = o
		s.state = StateDenied
		s.reason = appErr
		s.mu.Unlock()

		s.log().WithError(o.Err).Error("Scan loop stopped on a frame read failure")
		s.publish(observer.ScanEvent{EventType: observer.ScanFailed, ErrorType: string(appErr.Type), ErrorMessage: o.Err.Error()})
		s.host.OnError(appErr.Message)

	default:
		s.mu.Unlock()
	}
}

// retireLocked keeps diagnostics from a finished loop. Callers hold mu.
func (s *Scanner) retireLocked(l *loop) {
	s.ticks += l.Ticks()
	if f := l.LastFrame(); f != nil {
		s.lastFrame = f
	}
	if s.loop == l {
		s.loop = nil
	}
}

// detachLocked removes the current loop and session so they can be torn
// down outside the lock. Callers hold mu.
func (s *Scanner) detachLocked() (*loop, *capture.Session, context.CancelFunc) {
	l, session, cancel := s.loop, s.session, s.cancel
	if l != nil {
		s.retireLocked(l)
	}
	s.loop, s.session, s.cancel = nil, nil, nil
	s.torchOn = false
	return l, session, cancel
}

func teardown(l *loop, session *capture.Session, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if l != nil {
		l.Stop()
	}
	if session != nil {
		session.Close()
	}
}

// SwitchFacing closes the current session, toggles the facing preference
// and requests access again if acquisition had been started.
func (s *Scanner) SwitchFacing(ctx context.Context) error {
	s.acquireMu.Lock()
	defer s.acquireMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScannerClosed
	}
	s.gen++
	l, session, cancel := s.detachLocked()
	s.facing = s.facing.Toggle()
	facing := s.facing
	restart := s.started
	if !restart {
		s.state = StateNotStarted
	}
	s.mu.Unlock()

	teardown(l, session, cancel)
	s.log().WithField("facing", string(facing)).Info("Switched camera facing")
	s.publish(observer.ScanEvent{EventType: observer.FacingSwitched, Metadata: map[string]interface{}{"facing": string(facing)}})
	if !restart {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScannerClosed
	}
	attemptCtx, cancel, gen, facing := s.beginAttemptLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	return s.settle(s.acquire(attemptCtx, gen, facing))
}

// ToggleTorch flips the illumination on the active session and returns the
// resulting state. Failures are swallowed and leave the state unchanged.
func (s *Scanner) ToggleTorch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opts.EnableTorch || s.closed || s.session == nil {
		return s.torchOn
	}
	want := !s.torchOn
	if err := s.session.SetTorch(want); err != nil {
		s.log().WithError(err).Debug("Torch toggle not supported")
		return s.torchOn
	}
	s.torchOn = want
	s.publish(observer.ScanEvent{EventType: observer.TorchToggled, Success: true, Metadata: map[string]interface{}{"torch": want}})
	return s.torchOn
}

// SubmitManual accepts operator-entered payload text. Invalid input returns
// a manual_input_invalid error, fires no callback and leaves the session
// running. Valid input is reported through OnScan and ends the lifecycle.
func (s *Scanner) SubmitManual(input string) error {
	if !s.opts.EnableManualFallback {
		return apperrors.NewValidationError("Manual entry is not enabled", nil)
	}

	s.mu.Lock()
	closed, emitted := s.closed, s.emitted
	s.mu.Unlock()
	if closed {
		return ErrScannerClosed
	}
	if emitted {
		return apperrors.NewConflictError("A QR code was already scanned", nil)
	}

	if _, err := s.validator.ValidatePayload(input); err != nil {
		details := ""
		if appErr, ok := apperrors.As(err); ok {
			details = appErr.Details
		}
		s.publish(observer.ScanEvent{EventType: observer.ManualRejected, ErrorType: string(apperrors.ErrorTypeManualInputInvalid), ErrorMessage: details})
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScannerClosed
	}
	if s.emitted {
		s.mu.Unlock()
		return apperrors.NewConflictError("A QR code was already scanned", nil)
	}
	s.emitted = true
	s.outcome = Outcome{Kind: OutcomeDecoded, Payload: input}
	s.gen++
	l, session, cancel := s.detachLocked()
	s.state = StateNotStarted
	s.started = false
	s.reason = nil
	s.mu.Unlock()

	teardown(l, session, cancel)

	s.log().Info("Manual QR entry accepted")
	s.publish(observer.ScanEvent{EventType: observer.ScanDecoded, Success: true, Metadata: map[string]interface{}{"source": "manual"}})
	s.host.OnScan(input)
	return nil
}

// Close cancels any pending acquisition, stops the loop, closes the session
// and fires OnClose. Further calls are no-ops.
func (s *Scanner) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	l, session, cancel := s.detachLocked()
	s.state = StateNotStarted
	if s.outcome.Kind == OutcomePending {
		s.outcome = Outcome{Kind: OutcomeCancelled}
	}
	s.mu.Unlock()

	teardown(l, session, cancel)
	s.log().Debug("Scanner closed")
	s.publish(observer.ScanEvent{EventType: observer.ScanCancelled})
	s.host.OnClose()
}

// Status returns a snapshot of the scanner
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:           s.state,
		Reason:          s.reason,
		Facing:          string(s.facing),
		Torch:           s.torchOn,
		TorchAvailable:  s.opts.EnableTorch && s.torchAvailable,
		ManualAvailable: s.opts.EnableManualFallback && !s.emitted && !s.closed,
		Outcome:         s.outcome,
		Closed:          s.closed,
		Ticks:           s.ticks,
		LastFrame:       s.lastFrame,
	}
	switch {
	case s.loop != nil:
		st.Loop = LoopRunning
		st.Ticks += s.loop.Ticks()
		if f := s.loop.LastFrame(); f != nil {
			st.LastFrame = f
		}
	case s.outcome.Kind != OutcomePending:
		st.Loop = LoopStopped
	default:
		st.Loop = LoopIdle
	}
	return st
}

func (s *Scanner) publish(event observer.ScanEvent) {
	if s.publisher == nil {
		return
	}
	event.SessionID = s.id
	s.publisher.NotifyObservers(context.Background(), event)
}
