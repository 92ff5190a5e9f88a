package service

import (
	"context"
	"errors"
	"image"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/internal/factory"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/observer"
	"github.com/anime-shed/certscan-go/internal/repository"
	"github.com/anime-shed/certscan-go/internal/scanner"
	"github.com/anime-shed/certscan-go/pkg/models"
	"github.com/anime-shed/certscan-go/pkg/validation"

	"github.com/google/uuid"
)

// ScanService manages scan sessions on behalf of remote hosts
type ScanService interface {
	CreateSession(req models.CreateSessionRequest) (*models.SessionResponse, error)
	GetSession(id string) (*models.SessionResponse, error)
	ListSessions() []*models.SessionResponse
	StartSession(id string) (*models.SessionResponse, error)
	PushFrame(id string, img image.Image) (*models.SessionResponse, error)
	ReportDeviceError(id string, errorType string) (*models.SessionResponse, error)
	SwitchFacing(id string) (*models.SessionResponse, error)
	ToggleTorch(id string) (*models.SessionResponse, error)
	SubmitManual(id string, payload string) (*models.SessionResponse, error)
	CloseSession(id string) error

	SessionCount() int
	Metrics() map[string]interface{}
	Shutdown()
}

// Settings are the scanner defaults applied to every new session. Zero
// durations keep the profile values.
type Settings struct {
	Profile            string
	Interval           time.Duration
	AcquisitionTimeout time.Duration
	MetadataTimeout    time.Duration
	RetryDelay         time.Duration
	VerifyTimeout      time.Duration

	// NewBackend builds the symbol decoder for one session
	NewBackend func(opts scanner.Options) detector.Backend
}

// DefaultBackend uses gozxing, trying harder for the enhanced profile
func DefaultBackend(opts scanner.Options) detector.Backend {
	return detector.NewZXingBackend(opts.Profile == scanner.ProfileEnhanced)
}

// scanService implements ScanService
type scanService struct {
	devices   factory.DeviceFactory
	verifier  repository.VerificationRepository
	pool      *WorkerPool
	publisher observer.Subject
	metrics   *observer.MetricsObserver
	quality   *validation.QualityValidator
	settings  Settings

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewScanService creates the session registry. verifier may be nil, which
// disables verification forwarding.
func NewScanService(
	devices factory.DeviceFactory,
	verifier repository.VerificationRepository,
	pool *WorkerPool,
	publisher observer.Subject,
	metrics *observer.MetricsObserver,
	settings Settings,
) ScanService {
	if settings.NewBackend == nil {
		settings.NewBackend = DefaultBackend
	}
	if settings.VerifyTimeout <= 0 {
		settings.VerifyTimeout = 10 * time.Second
	}
	return &scanService{
		devices:   devices,
		verifier:  verifier,
		pool:      pool,
		publisher: publisher,
		metrics:   metrics,
		quality:   validation.NewQualityValidator(),
		settings:  settings,
		sessions:  make(map[string]*session),
	}
}

// CreateSession builds the device and scanner. Nothing is acquired until
// StartSession.
func (s *scanService) CreateSession(req models.CreateSessionRequest) (*models.SessionResponse, error) {
	profile := req.Profile
	if profile == "" {
		profile = s.settings.Profile
	}
	opts, err := scanner.ProfileOptions(profile)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid profile", err)
	}
	opts = opts.WithInterval(s.settings.Interval).
		WithTimeouts(s.settings.AcquisitionTimeout, s.settings.MetadataTimeout, s.settings.RetryDelay)

	if req.Facing != "" {
		facing, err := capture.ParseFacing(req.Facing)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid facing", err)
		}
		opts = opts.WithFacing(facing)
	}

	caps, err := factory.CapabilitiesFromModel(req.Capabilities)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid capabilities", err)
	}
	device, err := s.devices.CreateDevice(factory.DeviceRequest{Kind: req.Device, SourceURL: req.SourceURL, Capabilities: caps})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewValidationError("cannot create device", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:        uuid.NewString(),
		kind:      req.Device,
		profile:   opts.Profile,
		createdAt: time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}
	sess.push, _ = device.(*capture.PushDevice)

	det := detector.New(s.settings.NewBackend(opts), opts.Detector)
	torchAvailable := req.Device == models.DevicePush && caps.Torch
	sess.scanner = scanner.New(device, det, &sessionHost{svc: s, sess: sess}, opts,
		scanner.WithSessionID(sess.id),
		scanner.WithPublisher(s.publisher),
		scanner.WithTorchAvailable(torchAvailable),
	)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logger.WithSession(sess.id).WithField("device", string(req.Device)).WithField("profile", opts.Profile).Info("Scan session created")
	return s.response(sess), nil
}

func (s *scanService) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found", nil)
	}
	return sess, nil
}

// GetSession returns the session status
func (s *scanService) GetSession(id string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.response(sess), nil
}

// StartSession requests device access in the background. Push devices only
// become ready once the client sends frames, so the call cannot wait for
// the grant.
func (s *scanService) StartSession(id string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.scanner.Status().Closed {
		return nil, apperrors.NewConflictError("session is closed", nil)
	}
	sess.clearError()
	sess.goAcquire(sess.scanner.Start)
	return s.response(sess), nil
}

// PushFrame delivers a picture to a push session
func (s *scanService) PushFrame(id string, img image.Image) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.push == nil {
		return nil, apperrors.NewValidationError("frames can only be pushed to push sessions", nil)
	}
	if err := sess.push.Push(img); err != nil {
		if errors.Is(err, capture.ErrNoActiveStream) {
			return nil, apperrors.NewConflictError("no active stream, start the session first", err)
		}
		return nil, apperrors.NewValidationError("invalid frame", err)
	}
	return s.response(sess), nil
}

// deviceErrors maps the failures a push client may report
var deviceErrors = map[string]error{
	string(apperrors.ErrorTypePermissionDenied):        capture.ErrPermissionDenied,
	string(apperrors.ErrorTypeDeviceNotFound):          capture.ErrDeviceNotFound,
	string(apperrors.ErrorTypeDeviceUnsupported):       capture.ErrUnsupported,
	string(apperrors.ErrorTypeDeviceBusy):              capture.ErrDeviceBusy,
	string(apperrors.ErrorTypeConstraintUnsatisfiable): capture.ErrOverconstrained,
}

// ReportDeviceError records a failure seen by a push client. The next
// acquisition fails with it; an empty type clears it.
func (s *scanService) ReportDeviceError(id string, errorType string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.push == nil {
		return nil, apperrors.NewValidationError("device errors can only be reported for push sessions", nil)
	}
	errorType = strings.TrimSpace(errorType)
	if errorType == "" {
		sess.push.ClearFailure()
		return s.response(sess), nil
	}
	failure, ok := deviceErrors[errorType]
	if !ok {
		return nil, apperrors.NewValidationError("unknown device error "+errorType, nil)
	}
	sess.push.ReportFailure(failure)
	return s.response(sess), nil
}

// SwitchFacing toggles the camera in the background
func (s *scanService) SwitchFacing(id string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.scanner.Status().Closed {
		return nil, apperrors.NewConflictError("session is closed", nil)
	}
	sess.goAcquire(sess.scanner.SwitchFacing)
	return s.response(sess), nil
}

// ToggleTorch flips the illumination
func (s *scanService) ToggleTorch(id string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.scanner.ToggleTorch()
	return s.response(sess), nil
}

// SubmitManual hands operator-entered text to the scanner
func (s *scanService) SubmitManual(id string, payload string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := sess.scanner.SubmitManual(payload); err != nil {
		if errors.Is(err, scanner.ErrScannerClosed) {
			return nil, apperrors.NewConflictError("session is closed", err)
		}
		return nil, err
	}
	return s.response(sess), nil
}

// CloseSession closes the scanner and forgets the session
func (s *scanService) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("session not found", nil)
	}
	sess.close()
	logger.WithSession(id).Info("Scan session closed")
	return nil
}

// SessionCount returns the number of open sessions
func (s *scanService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Metrics merges scan counters with the verification pool stats
func (s *scanService) Metrics() map[string]interface{} {
	m := map[string]interface{}{}
	if s.metrics != nil {
		m = s.metrics.GetMetrics()
	}
	m["sessions"] = s.SessionCount()
	if s.pool != nil {
		m["verification_pool"] = s.pool.GetStats()
	}
	return m
}

// Shutdown closes every session and drains pending verifications
func (s *scanService) Shutdown() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool.Wait()
	}
}

// verify forwards a decoded payload. It runs on the worker pool.
func (s *scanService) verify(sess *session, payload string) {
	if s.verifier == nil || s.pool == nil {
		sess.setVerification(&models.VerificationRecord{Status: models.VerificationDisabled})
		return
	}
	sess.setVerification(&models.VerificationRecord{Status: models.VerificationPending})

	submitted := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(sess.ctx, s.settings.VerifyTimeout)
		defer cancel()

		start := time.Now()
		result, err := s.verifier.VerifyQR(ctx, payload)
		if err != nil {
			logger.WithSession(sess.id).WithError(err).Warn("QR verification failed")
			sess.setVerification(&models.VerificationRecord{Status: models.VerificationFailed, Error: err.Error()})
			s.publish(observer.ScanEvent{EventType: observer.VerificationFailed, SessionID: sess.id, Duration: time.Since(start), ErrorMessage: err.Error()})
			return
		}
		sess.setVerification(&models.VerificationRecord{Status: models.VerificationDone, Result: result})
		s.publish(observer.ScanEvent{
			EventType: observer.VerificationCompleted,
			SessionID: sess.id,
			Duration:  time.Since(start),
			Success:   result.QRVerification.IsValid,
			Metadata:  map[string]interface{}{"blockchain_valid": result.QRVerification.BlockchainValid},
		})
	})
	if !submitted {
		sess.setVerification(&models.VerificationRecord{Status: models.VerificationFailed, Error: "service is shutting down"})
	}
}

func (s *scanService) publish(event observer.ScanEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(context.Background(), event)
	}
}

func (s *scanService) response(sess *session) *models.SessionResponse {
	st := sess.scanner.Status()
	resp := &models.SessionResponse{
		ID:               sess.id,
		Device:           sess.kind,
		Profile:          sess.profile,
		CreatedAt:        sess.createdAt.Format(time.RFC3339),
		AcquisitionState: st.State.String(),
		LoopRunning:      st.Loop == scanner.LoopRunning,
		Ticks:            st.Ticks,
		Facing:           st.Facing,
		Torch:            st.Torch,
		TorchAvailable:   st.TorchAvailable,
		ManualAvailable:  st.ManualAvailable,
		Closed:           st.Closed,
	}
	if st.Reason != nil {
		resp.Reason = string(st.Reason.Type)
		resp.Message = st.Reason.Message
	}
	if msg := sess.lastError(); msg != "" && resp.Message == "" {
		resp.Message = msg
	}
	if st.Outcome.Kind != scanner.OutcomePending {
		outcome := &models.OutcomeResponse{Kind: st.Outcome.Kind.String(), Payload: st.Outcome.Payload}
		if st.Outcome.Err != nil {
			outcome.Error = st.Outcome.Err.Error()
		}
		resp.Outcome = outcome
	}
	if f := st.LastFrame; f != nil {
		resp.LastFrameMean = f.Stats.Mean
		resp.LastFrameStdDev = f.Stats.StdDev
		if st.Loop == scanner.LoopRunning {
			issues := s.quality.ValidateFrame(validation.FrameQualityMetrics{
				Width:          f.Width,
				Height:         f.Height,
				Mean:           f.Stats.Mean,
				StdDev:         f.Stats.StdDev,
				TorchAvailable: st.TorchAvailable,
			})
			resp.Errors = s.quality.ConvertIssuesToMessages(issues)
		}
	}
	resp.Verification = sess.getVerification()
	return resp
}

// ListSessions returns every open session, oldest first
func (s *scanService) ListSessions() []*models.SessionResponse {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	out := make([]*models.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, s.response(sess))
	}
	return out
}
