package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/scanner"
	"github.com/anime-shed/certscan-go/pkg/models"
)

// session is one registered scanner and what its host has observed
type session struct {
	id        string
	kind      models.DeviceKind
	profile   string
	createdAt time.Time
	scanner   *scanner.Scanner
	push      *capture.PushDevice

	// ctx bounds background acquisitions and verifications
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	errMessage   string
	verification *models.VerificationRecord
}

// goAcquire runs fn in the background with the session context
func (sess *session) goAcquire(fn func(context.Context) error) {
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		err := fn(sess.ctx)
		if err != nil && !errors.Is(err, scanner.ErrScannerClosed) && !errors.Is(err, context.Canceled) {
			logger.WithSession(sess.id).WithError(err).Debug("Acquisition attempt ended")
		}
	}()
}

func (sess *session) close() {
	sess.cancel()
	sess.scanner.Close()
	sess.wg.Wait()
}

func (sess *session) setError(message string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.errMessage = message
}

func (sess *session) clearError() {
	sess.setError("")
}

func (sess *session) lastError() string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.errMessage
}

func (sess *session) setVerification(v *models.VerificationRecord) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.verification = v
}

func (sess *session) getVerification() *models.VerificationRecord {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.verification == nil {
		return nil
	}
	v := *sess.verification
	return &v
}

// sessionHost receives scanner callbacks for one session
type sessionHost struct {
	svc  *scanService
	sess *session
}

func (h *sessionHost) OnScan(payload string) {
	h.sess.clearError()
	h.svc.verify(h.sess, payload)
}

func (h *sessionHost) OnError(message string) {
	h.sess.setError(message)
}

func (h *sessionHost) OnClose() {}
