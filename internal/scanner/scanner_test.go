package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/internal/frame"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const samplePayload = `{"certificateId":"CERT-1","hash":"abc","timestamp":123}`

func TestScanner_DecodesAtMostOnce(t *testing.T) {
	dev := &fakeDevice{}
	det := armedDetector(samplePayload)
	host := newRecordingHost()
	s := New(dev, det, host, testOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := receive(t, host.scanned, "scan"); got != samplePayload {
		t.Errorf("Expected payload %q, got %q", samplePayload, got)
	}

	readsAtDecode := det.calls.Load()
	time.Sleep(10 * testOptions().Interval)

	if det.calls.Load() != readsAtDecode {
		t.Errorf("Frames were read after decode: %d -> %d", readsAtDecode, det.calls.Load())
	}
	if scans, _, _ := host.counts(); scans != 1 {
		t.Errorf("Expected exactly one OnScan, got %d", scans)
	}
	if dev.openCount() != 0 {
		t.Errorf("Expected session closed after decode, %d open", dev.openCount())
	}
	if !dev.stream(0).stopped.Load() {
		t.Error("Expected stream to be stopped")
	}

	st := s.Status()
	if st.State != StateNotStarted || st.Outcome.Kind != OutcomeDecoded || st.Loop != LoopStopped {
		t.Errorf("Unexpected status after decode: %+v", st)
	}
	if st.Ticks == 0 {
		t.Error("Expected tick counter to be retained")
	}
}

func TestScanner_StartRearmsAfterDecode(t *testing.T) {
	dev := &fakeDevice{}
	host := newRecordingHost()
	s := New(dev, armedDetector("first"), host, testOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	receive(t, host.scanned, "first scan")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	receive(t, host.scanned, "second scan")

	if dev.attemptCount() != 2 {
		t.Errorf("Expected two acquisitions, got %d", dev.attemptCount())
	}
	if dev.maxOpenCount() != 1 {
		t.Errorf("Expected at most one open session, got %d", dev.maxOpenCount())
	}
}

func TestScanner_NotReadyTicksAreSkipped(t *testing.T) {
	dev := &fakeDevice{noFrame: true}
	det := armedDetector(samplePayload)
	host := newRecordingHost()
	s := New(dev, det, host, testOptions())
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "ticks", func() bool { return s.Status().Ticks >= 3 })

	if det.calls.Load() != 0 {
		t.Error("Detector must not run without a frame")
	}
	if _, errs, _ := host.counts(); errs != 0 {
		t.Error("Not-ready frames must not be reported")
	}

	dev.stream(0).setFrame(whiteFrame(32, 32))
	receive(t, host.scanned, "scan after frame arrives")
}

func TestScanner_CloseTearsDown(t *testing.T) {
	dev := &fakeDevice{}
	det := &countingDetector{}
	host := newRecordingHost()
	s := New(dev, det, host, testOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "scanning", func() bool { return det.calls.Load() > 0 })

	s.Close()
	s.Close()

	if dev.openCount() != 0 {
		t.Errorf("Expected session closed, %d open", dev.openCount())
	}
	if stops := dev.stream(0).stops.Load(); stops < 1 {
		t.Error("Expected stream stop")
	}
	scans, errs, closes := host.counts()
	if scans != 0 || errs != 0 || closes != 1 {
		t.Errorf("Expected only one OnClose, got scans=%d errors=%d closes=%d", scans, errs, closes)
	}

	calls := det.calls.Load()
	time.Sleep(5 * testOptions().Interval)
	if det.calls.Load() != calls {
		t.Error("Loop kept ticking after Close")
	}

	if err := s.Start(context.Background()); !errors.Is(err, ErrScannerClosed) {
		t.Errorf("Expected ErrScannerClosed, got %v", err)
	}
	if st := s.Status(); !st.Closed || st.Outcome.Kind != OutcomeCancelled {
		t.Errorf("Unexpected status after close: %+v", st)
	}
}

func TestScanner_OverconstrainedRetriesOnceWithBasicConstraints(t *testing.T) {
	dev := &fakeDevice{failAttempt: func(n int) error {
		if n == 1 {
			return fmt.Errorf("width: %w", capture.ErrOverconstrained)
		}
		return nil
	}}
	host := newRecordingHost()
	opts := MobileOptions().WithInterval(5*time.Millisecond).WithTimeouts(time.Second, time.Second, 10*time.Millisecond)
	s := New(dev, &countingDetector{}, host, opts)
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if dev.attemptCount() != 2 {
		t.Fatalf("Expected 2 attempts, got %d", dev.attemptCount())
	}
	retry := dev.constraintsAt(1)
	if retry != opts.Constraints.Basic() {
		t.Errorf("Expected basic constraints on retry, got %+v", retry)
	}
	if st := s.Status(); st.State != StateGranted {
		t.Errorf("Expected Granted, got %s", st.State)
	}
	if _, errs, _ := host.counts(); errs != 0 {
		t.Error("A successful retry must not report an error")
	}
}

func TestScanner_OverconstrainedTwiceIsTerminal(t *testing.T) {
	dev := &fakeDevice{failAttempt: func(int) error { return capture.ErrOverconstrained }}
	host := newRecordingHost()
	opts := testOptions().WithRetryOnOverconstrained(true)
	s := New(dev, &countingDetector{}, host, opts)

	err := s.Start(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeConstraintUnsatisfiable) {
		t.Fatalf("Expected constraint_unsatisfiable, got %v", err)
	}
	if dev.attemptCount() != 2 {
		t.Errorf("Expected exactly one retry, got %d attempts", dev.attemptCount())
	}
	st := s.Status()
	if st.State != StateDenied || st.Reason == nil || st.Reason.Type != apperrors.ErrorTypeConstraintUnsatisfiable {
		t.Errorf("Expected terminal Denied, got %+v", st)
	}
	if msg := receive(t, host.failed, "error"); msg != apperrors.OperatorMessage(apperrors.ErrorTypeConstraintUnsatisfiable) {
		t.Errorf("Unexpected operator message %q", msg)
	}
	time.Sleep(50 * time.Millisecond)
	if dev.attemptCount() != 2 {
		t.Error("Denied state must not be retried automatically")
	}
}

func TestScanner_OverconstrainedWithoutRetry(t *testing.T) {
	dev := &fakeDevice{failAttempt: func(int) error { return capture.ErrOverconstrained }}
	s := New(dev, &countingDetector{}, newRecordingHost(), testOptions().WithRetryOnOverconstrained(false))

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Expected failure")
	}
	if dev.attemptCount() != 1 {
		t.Errorf("Expected no retry, got %d attempts", dev.attemptCount())
	}
}

func TestScanner_ClassifiesAcquisitionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"Permission", capture.ErrPermissionDenied, apperrors.ErrorTypePermissionDenied},
		{"Not found", capture.ErrDeviceNotFound, apperrors.ErrorTypeDeviceNotFound},
		{"Unsupported", capture.ErrUnsupported, apperrors.ErrorTypeDeviceUnsupported},
		{"Busy", fmt.Errorf("in use: %w", capture.ErrDeviceBusy), apperrors.ErrorTypeDeviceBusy},
		{"Unknown", errors.New("driver exploded"), apperrors.ErrorTypeInternal},
	}

	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{failAttempt: func(int) error { return tt.err }}
			host := newRecordingHost()
			s := New(dev, &countingDetector{}, host, testOptions())

			err := s.Start(context.Background())
			if !apperrors.IsType(err, tt.want) {
				t.Fatalf("Expected %s, got %v", tt.want, err)
			}
			msg := receive(t, host.failed, "error")
			if seen[msg] {
				t.Errorf("Message %q is not distinct", msg)
			}
			seen[msg] = true
			if dev.openCount() != 0 {
				t.Error("No session may stay open on a denied acquisition")
			}
		})
	}
}

func TestScanner_AcquisitionTimeoutClosesLateGrant(t *testing.T) {
	block := make(chan struct{})
	dev := &fakeDevice{block: block}
	host := newRecordingHost()
	opts := testOptions().WithTimeouts(30*time.Millisecond, 0, 0)
	s := New(dev, &countingDetector{}, host, opts)

	err := s.Start(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeAcquisitionTimeout) {
		t.Fatalf("Expected acquisition_timeout, got %v", err)
	}
	if st := s.Status(); st.State != StateDenied {
		t.Errorf("Expected Denied, got %s", st.State)
	}

	close(block)
	waitFor(t, "late stream to be closed", func() bool {
		dev.mu.Lock()
		defer dev.mu.Unlock()
		return len(dev.streams) == 1 && dev.open == 0
	})
	if !dev.stream(0).stopped.Load() {
		t.Error("Late stream was not stopped")
	}
}

func TestScanner_MetadataTimeout(t *testing.T) {
	dev := &fakeDevice{notReady: true}
	host := newRecordingHost()
	opts := testOptions().WithTimeouts(0, 30*time.Millisecond, 0)
	s := New(dev, &countingDetector{}, host, opts)

	err := s.Start(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeMetadataTimeout) {
		t.Fatalf("Expected metadata_timeout, got %v", err)
	}
	if msg := receive(t, host.failed, "error"); msg != apperrors.OperatorMessage(apperrors.ErrorTypeMetadataTimeout) {
		t.Errorf("Unexpected message %q", msg)
	}
	if dev.openCount() != 0 {
		t.Error("Session must be closed after metadata timeout")
	}
}

func TestScanner_CancelledContextIsSilent(t *testing.T) {
	dev := &fakeDevice{notReady: true}
	host := newRecordingHost()
	s := New(dev, &countingDetector{}, host, testOptions().WithTimeouts(0, time.Second, 0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := s.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if _, errs, _ := host.counts(); errs != 0 {
		t.Error("Cancellation must not be reported as an error")
	}
	if st := s.Status(); st.State != StateNotStarted {
		t.Errorf("Expected NotStarted, got %s", st.State)
	}
	if dev.openCount() != 0 {
		t.Error("Session must be closed after cancellation")
	}
}

func TestScanner_CloseDuringAcquisition(t *testing.T) {
	dev := &fakeDevice{notReady: true}
	host := newRecordingHost()
	s := New(dev, &countingDetector{}, host, testOptions().WithTimeouts(0, 5*time.Second, 0))

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	waitFor(t, "open", func() bool { return dev.openCount() == 1 })

	s.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrScannerClosed) {
			t.Errorf("Expected ErrScannerClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not interrupt acquisition")
	}
	if dev.openCount() != 0 {
		t.Error("Pending session must be closed")
	}
	if _, errs, closes := host.counts(); errs != 0 || closes != 1 {
		t.Errorf("Expected one OnClose and no errors, got errors=%d closes=%d", errs, closes)
	}
}

func TestScanner_SwitchFacingClosesBeforeReopen(t *testing.T) {
	dev := &fakeDevice{}
	s := New(dev, &countingDetector{}, newRecordingHost(), testOptions())
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.SwitchFacing(context.Background()); err != nil {
		t.Fatalf("SwitchFacing failed: %v", err)
	}
	if err := s.SwitchFacing(context.Background()); err != nil {
		t.Fatalf("SwitchFacing failed: %v", err)
	}

	if dev.maxOpenCount() != 1 {
		t.Errorf("Two sessions were open at once (max %d)", dev.maxOpenCount())
	}
	if dev.openCount() != 1 {
		t.Errorf("Expected one open session, got %d", dev.openCount())
	}
	if f := dev.constraintsAt(1).Facing; f != capture.FacingFront {
		t.Errorf("Expected front camera after switch, got %s", f)
	}
	if f := dev.constraintsAt(2).Facing; f != capture.FacingBack {
		t.Errorf("Expected back camera after second switch, got %s", f)
	}
	if !dev.stream(0).stopped.Load() || !dev.stream(1).stopped.Load() {
		t.Error("Previous sessions must be stopped")
	}
	if st := s.Status(); st.State != StateGranted || st.Loop != LoopRunning {
		t.Errorf("Expected scanning after switch, got %+v", st)
	}
}

func TestScanner_SwitchFacingBeforeStart(t *testing.T) {
	dev := &fakeDevice{}
	s := New(dev, &countingDetector{}, newRecordingHost(), testOptions())

	if err := s.SwitchFacing(context.Background()); err != nil {
		t.Fatalf("SwitchFacing failed: %v", err)
	}
	if dev.attemptCount() != 0 {
		t.Error("Switching before Start must not acquire")
	}
	if st := s.Status(); st.Facing != string(capture.FacingFront) {
		t.Errorf("Expected front facing, got %s", st.Facing)
	}
}

func TestScanner_ToggleTorch(t *testing.T) {
	t.Run("Supported", func(t *testing.T) {
		dev := &fakeDevice{}
		s := New(dev, &countingDetector{}, newRecordingHost(), testOptions())
		defer s.Close()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if !s.ToggleTorch() {
			t.Error("Expected torch on")
		}
		if s.ToggleTorch() {
			t.Error("Expected torch off")
		}
	})

	t.Run("Unsupported is swallowed", func(t *testing.T) {
		dev := &fakeDevice{torchErr: capture.ErrCapabilityUnsupported}
		host := newRecordingHost()
		s := New(dev, &countingDetector{}, host, testOptions())
		defer s.Close()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if s.ToggleTorch() {
			t.Error("Torch state must stay off")
		}
		if _, errs, _ := host.counts(); errs != 0 {
			t.Error("Torch failure must not be reported")
		}
		if st := s.Status(); st.State != StateGranted {
			t.Errorf("Torch failure changed state to %s", st.State)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		dev := &fakeDevice{}
		s := New(dev, &countingDetector{}, newRecordingHost(), testOptions().WithTorch(false))
		defer s.Close()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if s.ToggleTorch() {
			t.Error("Disabled torch must not turn on")
		}
		if dev.stream(0).torch {
			t.Error("Disabled torch must not reach the device")
		}
	})
}

func TestScanner_ManualFallback(t *testing.T) {
	t.Run("Valid input is a decode", func(t *testing.T) {
		dev := &fakeDevice{}
		host := newRecordingHost()
		s := New(dev, &countingDetector{}, host, testOptions())
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		if err := s.SubmitManual(samplePayload); err != nil {
			t.Fatalf("Expected valid manual input, got %v", err)
		}
		if got := receive(t, host.scanned, "manual scan"); got != samplePayload {
			t.Errorf("Expected exact input, got %q", got)
		}
		if dev.openCount() != 0 {
			t.Error("Manual decode must tear down the session")
		}
		if err := s.SubmitManual(samplePayload); !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			t.Errorf("Expected conflict on second submit, got %v", err)
		}
		if scans, _, _ := host.counts(); scans != 1 {
			t.Errorf("Expected one OnScan, got %d", scans)
		}
	})

	t.Run("Session is closed when OnScan fires", func(t *testing.T) {
		dev := &fakeDevice{}
		det := &countingDetector{}
		type observed struct {
			open              int
			before, afterwait int64
		}
		seen := make(chan observed, 1)
		host := HostFuncs{Scan: func(string) {
			o := observed{open: dev.openCount(), before: det.calls.Load()}
			time.Sleep(10 * testOptions().Interval)
			o.afterwait = det.calls.Load()
			seen <- o
		}}
		s := New(dev, det, host, testOptions())
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		waitFor(t, "frame reads", func() bool { return det.calls.Load() > 0 })

		if err := s.SubmitManual(samplePayload); err != nil {
			t.Fatalf("Expected valid manual input, got %v", err)
		}
		o := <-seen
		if o.open != 0 {
			t.Errorf("Expected no open session during OnScan, got %d", o.open)
		}
		if o.afterwait != o.before {
			t.Errorf("Frames were read during OnScan: %d -> %d", o.before, o.afterwait)
		}
	})

	t.Run("Invalid input is local", func(t *testing.T) {
		dev := &fakeDevice{}
		host := newRecordingHost()
		s := New(dev, &countingDetector{}, host, testOptions())
		defer s.Close()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		err := s.SubmitManual("not-json")
		if !apperrors.IsType(err, apperrors.ErrorTypeManualInputInvalid) {
			t.Fatalf("Expected manual_input_invalid, got %v", err)
		}
		scans, errs, closes := host.counts()
		if scans != 0 || errs != 0 || closes != 0 {
			t.Errorf("Invalid input fired callbacks: scans=%d errors=%d closes=%d", scans, errs, closes)
		}
		if dev.openCount() != 1 || s.Status().Loop != LoopRunning {
			t.Error("Invalid input must leave the session running")
		}
	})

	t.Run("Before acquisition", func(t *testing.T) {
		host := newRecordingHost()
		s := New(&fakeDevice{}, &countingDetector{}, host, testOptions())
		if err := s.SubmitManual(samplePayload); err != nil {
			t.Fatalf("Expected manual input before Start, got %v", err)
		}
		receive(t, host.scanned, "manual scan")
	})

	t.Run("After denial", func(t *testing.T) {
		host := newRecordingHost()
		dev := &fakeDevice{failAttempt: func(int) error { return capture.ErrPermissionDenied }}
		s := New(dev, &countingDetector{}, host, testOptions())
		_ = s.Start(context.Background())
		if err := s.SubmitManual(samplePayload); err != nil {
			t.Fatalf("Expected manual input after denial, got %v", err)
		}
		receive(t, host.scanned, "manual scan")
	})

	t.Run("Disabled", func(t *testing.T) {
		host := newRecordingHost()
		s := New(&fakeDevice{}, &countingDetector{}, host, testOptions().WithManualFallback(false))
		if err := s.SubmitManual(samplePayload); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestScanner_StreamLost(t *testing.T) {
	dev := &fakeDevice{latestErr: capture.ErrStreamEnded}
	host := newRecordingHost()
	s := New(dev, &countingDetector{}, host, testOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if msg := receive(t, host.failed, "stream lost"); msg != apperrors.OperatorMessage(apperrors.ErrorTypeStreamLost) {
		t.Errorf("Unexpected message %q", msg)
	}
	st := s.Status()
	if st.Outcome.Kind != OutcomeFailed || st.Reason == nil || st.Reason.Type != apperrors.ErrorTypeStreamLost {
		t.Errorf("Unexpected status %+v", st)
	}
	if dev.openCount() != 0 {
		t.Error("Failed loop must close the session")
	}
}

func TestScanner_WithFinderDetector(t *testing.T) {
	f := whiteFrame(120, 120)
	for _, origin := range [][2]int{{10, 10}, {80, 10}, {10, 80}} {
		paintFinder(f, origin[0], origin[1])
	}

	dev := &fakeDevice{}
	host := newRecordingHost()
	backend := detector.BackendFunc(func(*frame.Frame) (string, error) { return samplePayload, nil })
	det := detector.New(backend, detector.DefaultOptions())
	s := New(dev, det, host, testOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(5 * testOptions().Interval)
	if scans, _, _ := host.counts(); scans != 0 {
		t.Fatal("A plain frame must not decode")
	}

	dev.stream(0).setFrame(f)
	if got := receive(t, host.scanned, "scan"); got != samplePayload {
		t.Errorf("Unexpected payload %q", got)
	}
	if info := s.Status().LastFrame; info == nil || info.Width != 120 {
		t.Errorf("Expected last frame info, got %+v", info)
	}
}

func renderQR(t *testing.T, contents string, size int) *frame.Frame {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(contents, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("Failed to encode QR: %v", err)
	}
	f := frame.New(matrix.GetWidth(), matrix.GetHeight())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if !matrix.Get(x, y) {
				f.Set(x, y, 255)
			}
		}
	}
	return f
}

func TestScanner_EveryProfileDecodesRenderedSymbol(t *testing.T) {
	payload := `{"certificateId":"CERT-1","hash":"abc"}`
	f := renderQR(t, payload, 240)

	for _, name := range []string{ProfileDefault, ProfileMobile, ProfileEnhanced} {
		t.Run(name, func(t *testing.T) {
			opts, err := ProfileOptions(name)
			if err != nil {
				t.Fatal(err)
			}
			opts = opts.WithInterval(5*time.Millisecond).
				WithTimeouts(time.Second, time.Second, 10*time.Millisecond)

			host := newRecordingHost()
			backend := detector.NewZXingBackend(name == ProfileEnhanced)
			s := New(capture.NewStillDeviceFromFrames(f), detector.New(backend, opts.Detector), host, opts)
			defer s.Close()

			if err := s.Start(context.Background()); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			if got := receive(t, host.scanned, "scan"); got != payload {
				t.Errorf("Expected %q, got %q", payload, got)
			}
		})
	}
}

func paintFinder(f *frame.Frame, ox, oy int) {
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			f.Set(ox+x, oy+y, 0)
		}
	}
	f.Set(ox+3, oy+3, 255)
}

func TestProfileOptions(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		torch    bool
		manual   bool
		retry    bool
	}{
		{"", 100 * time.Millisecond, false, false, false},
		{"mobile", 200 * time.Millisecond, true, true, true},
		{"Enhanced", 150 * time.Millisecond, true, true, true},
	}
	for _, tt := range tests {
		opts, err := ProfileOptions(tt.name)
		if err != nil {
			t.Fatalf("ProfileOptions(%q): %v", tt.name, err)
		}
		if opts.Interval != tt.interval || opts.EnableTorch != tt.torch ||
			opts.EnableManualFallback != tt.manual || opts.RetryOnOverconstrained != tt.retry {
			t.Errorf("Profile %q: unexpected options %+v", tt.name, opts)
		}
	}
	if _, err := ProfileOptions("kiosk"); err == nil {
		t.Error("Expected error for unknown profile")
	}
	if !EnhancedOptions().Constraints.ContinuousFocus {
		t.Error("Enhanced profile must request continuous focus")
	}
	if !MobileOptions().Detector.CheckVertical {
		t.Error("Mobile profile must check the vertical run")
	}
}
