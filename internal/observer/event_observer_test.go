package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name   string
	events chan ScanEvent
}

func (o *recordingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	o.events <- event
}

func (o *recordingObserver) GetObserverName() string {
	return o.name
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, ScanEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string          { return "panicking" }

func TestEventPublisher_NotifiesSubscribers(t *testing.T) {
	publisher := NewEventPublisher()
	rec := &recordingObserver{name: "rec", events: make(chan ScanEvent, 1)}
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(rec)

	publisher.NotifyObservers(context.Background(), ScanEvent{EventType: ScanDecoded, SessionID: "s1"})

	select {
	case event := <-rec.events:
		if event.SessionID != "s1" || event.EventType != ScanDecoded {
			t.Errorf("Unexpected event: %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Error("Expected publisher to stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("Observer was not notified")
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher()
	rec := &recordingObserver{name: "rec", events: make(chan ScanEvent, 1)}
	publisher.Subscribe(rec)
	publisher.Unsubscribe(rec)

	publisher.NotifyObservers(context.Background(), ScanEvent{EventType: ScanCancelled})

	select {
	case event := <-rec.events:
		t.Errorf("Unsubscribed observer received %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMetricsObserver_Counts(t *testing.T) {
	metrics := NewMetricsObserver()
	ctx := context.Background()

	events := []ScanEvent{
		{EventType: AcquisitionRequested},
		{EventType: AcquisitionRetrying},
		{EventType: AcquisitionDenied, ErrorType: "permission_denied"},
		{EventType: AcquisitionRequested},
		{EventType: AcquisitionGranted},
		{EventType: ScanDecoded, Duration: 2 * time.Second},
		{EventType: ScanDecoded, Duration: 4 * time.Second, Metadata: map[string]interface{}{"source": "manual"}},
		{EventType: ScanCancelled},
	}

	var wg sync.WaitGroup
	for _, e := range events {
		wg.Add(1)
		go func(e ScanEvent) {
			defer wg.Done()
			metrics.OnEvent(ctx, e)
		}(e)
	}
	wg.Wait()

	got := metrics.GetMetrics()
	if got["acquisitions"].(int64) != 2 {
		t.Errorf("Expected 2 acquisitions, got %v", got["acquisitions"])
	}
	if got["decoded"].(int64) != 2 || got["manual_entries"].(int64) != 1 {
		t.Errorf("Unexpected decode counters: %v", got)
	}
	if got["avg_time_to_decode"].(time.Duration) != 3*time.Second {
		t.Errorf("Expected 3s average, got %v", got["avg_time_to_decode"])
	}
	if got["denied"].(map[string]int64)["permission_denied"] != 1 {
		t.Errorf("Expected one permission denial, got %v", got["denied"])
	}
}

func TestLoggingObserver_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	obs := NewLoggingObserver(log)
	obs.OnEvent(context.Background(), ScanEvent{EventType: AcquisitionRequested, SessionID: "s1"})
	obs.OnEvent(context.Background(), ScanEvent{EventType: AcquisitionDenied, SessionID: "s1", ErrorType: "device_busy"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected only the warning to be logged at info level, got %d lines", len(lines))
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["level"] != "warning" || entry["error_type"] != "device_busy" || entry["session_id"] != "s1" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}
