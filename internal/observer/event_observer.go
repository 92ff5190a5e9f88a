package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ScanEvent represents a scanner lifecycle event
type ScanEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	SessionID    string                 `json:"session_id,omitempty"`
	Duration     time.Duration          `json:"duration,omitempty"`
	Success      bool                   `json:"success"`
	ErrorType    string                 `json:"error_type,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of scan event
type EventType string

const (
	AcquisitionRequested EventType = "acquisition_requested"
	AcquisitionGranted   EventType = "acquisition_granted"
	AcquisitionRetrying  EventType = "acquisition_retrying"
	AcquisitionDenied    EventType = "acquisition_denied"

	// ScanDecoded fires once per lifecycle, for a detected or manual payload
	ScanDecoded    EventType = "scan_decoded"
	ScanFailed     EventType = "scan_failed"
	ScanCancelled  EventType = "scan_cancelled"
	ManualRejected EventType = "manual_rejected"
	FacingSwitched EventType = "facing_switched"
	TorchToggled   EventType = "torch_toggled"

	// VerificationCompleted and VerificationFailed report forwarded payloads
	VerificationCompleted EventType = "verification_completed"
	VerificationFailed    EventType = "verification_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ScanEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ScanEvent)
}

// LoggingObserver logs scan events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles scan events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"success":    event.Success,
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration
	}
	if event.ErrorType != "" {
		fields["error_type"] = event.ErrorType
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AcquisitionRequested, AcquisitionRetrying, FacingSwitched, TorchToggled:
		entry.Debug("Camera acquisition event")
	case AcquisitionGranted:
		entry.Info("Camera access granted")
	case AcquisitionDenied:
		entry.Warn("Camera access denied")
	case ScanDecoded:
		entry.Info("QR code decoded")
	case ScanCancelled:
		entry.Info("Scan cancelled")
	case ScanFailed:
		entry.Error("Scan failed")
	case ManualRejected:
		entry.Debug("Manual entry rejected")
	case VerificationCompleted:
		entry.Info("Verification completed")
	case VerificationFailed:
		entry.Error("Verification failed")
	default:
		entry.Info("Scan event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from scan events
type MetricsObserver struct {
	mu                 sync.RWMutex
	acquisitions       int64
	granted            int64
	retries            int64
	denied             map[string]int64
	decoded            int64
	manual             int64
	cancelled          int64
	failed             int64
	totalTimeToDecode  time.Duration
	verifications      int64
	verificationErrors int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{denied: make(map[string]int64)}
}

// OnEvent handles scan events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ScanEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AcquisitionRequested:
		o.acquisitions++
	case AcquisitionGranted:
		o.granted++
	case AcquisitionRetrying:
		o.retries++
	case AcquisitionDenied:
		o.denied[event.ErrorType]++
	case ScanDecoded:
		o.decoded++
		o.totalTimeToDecode += event.Duration
		if source, _ := event.Metadata["source"].(string); source == "manual" {
			o.manual++
		}
	case ScanCancelled:
		o.cancelled++
	case ScanFailed:
		o.failed++
	case VerificationCompleted:
		o.verifications++
	case VerificationFailed:
		o.verificationErrors++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgTimeToDecode := time.Duration(0)
	if o.decoded > 0 {
		avgTimeToDecode = o.totalTimeToDecode / time.Duration(o.decoded)
	}
	denied := make(map[string]int64, len(o.denied))
	for k, v := range o.denied {
		denied[k] = v
	}

	return map[string]interface{}{
		"acquisitions":        o.acquisitions,
		"granted":             o.granted,
		"retries":             o.retries,
		"denied":              denied,
		"decoded":             o.decoded,
		"manual_entries":      o.manual,
		"cancelled":           o.cancelled,
		"failed":              o.failed,
		"avg_time_to_decode":  avgTimeToDecode,
		"verifications":       o.verifications,
		"verification_errors": o.verificationErrors,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and must not block the scanner.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ScanEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
