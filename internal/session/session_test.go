package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/fsm"
	"github.com/rbright/drai/internal/gemini"
)

type fakeIndicator struct {
	recording  atomic.Int32
	processing atomic.Int32
	reviews    atomic.Int32
	errors     atomic.Int32
	stopCues   atomic.Int32
	completes  atomic.Int32
	hides      atomic.Int32

	mu        sync.Mutex
	lastError string
}

func (f *fakeIndicator) ShowRecording(context.Context)   { f.recording.Add(1) }
func (f *fakeIndicator) ShowProcessing(context.Context)  { f.processing.Add(1) }
func (f *fakeIndicator) ShowReview(context.Context, int) { f.reviews.Add(1) }
func (f *fakeIndicator) ShowError(_ context.Context, msg string) {
	f.errors.Add(1)
	f.mu.Lock()
	f.lastError = msg
	f.mu.Unlock()
}
func (f *fakeIndicator) CueStop(context.Context)     { f.stopCues.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context, int) { f.completes.Add(1) }
func (f *fakeIndicator) Hide(context.Context)        { f.hides.Add(1) }

// fakeCapture drives ticks by hand through tick().
type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	running  bool
	onTick   func(int)
	elapsed  atomic.Int64
	starts   atomic.Int32
	stops    atomic.Int32
	ctx      context.Context
	encoded  audio.Encoded
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{encoded: audio.Encoded{
		MIMEType: audio.MIMETypeWAV,
		Data:     []byte("RIFF....WAVE"),
		Duration: 3 * time.Second,
		Device:   audio.Device{ID: "mic-1", Description: "Desk Mic"},
	}}
}

func (f *fakeCapture) Start(ctx context.Context, onTick func(int)) error {
	f.starts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.onTick = onTick
	f.ctx = ctx
	f.elapsed.Store(0)
	return nil
}

func (f *fakeCapture) Stop() (audio.Encoded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return audio.Encoded{}, nil
	}
	f.stops.Add(1)
	f.running = false
	f.onTick = nil
	return f.encoded, f.stopErr
}

func (f *fakeCapture) Elapsed() int { return int(f.elapsed.Load()) }

func (f *fakeCapture) tick() {
	n := int(f.elapsed.Add(1))
	f.mu.Lock()
	onTick := f.onTick
	f.mu.Unlock()
	if onTick != nil {
		onTick(n)
	}
}

// fakeGenerator blocks until release is closed when release is set.
type fakeGenerator struct {
	data    consultation.Data
	err     error
	release chan struct{}
	calls   atomic.Int32
	got     chan audio.Encoded
}

func (f *fakeGenerator) Generate(ctx context.Context, recording audio.Encoded) (consultation.Data, error) {
	f.calls.Add(1)
	if f.got != nil {
		f.got <- recording
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return consultation.Data{}, ctx.Err()
		}
	}
	return f.data, f.err
}

func sampleData() consultation.Data {
	return consultation.Data{
		Transcript: []consultation.Segment{
			{Speaker: consultation.SpeakerDoctor, Timestamp: "00:00", Text: "What brings you in?", Confidence: 0.97},
			{Speaker: consultation.SpeakerPatient, Timestamp: "00:02", Text: "Chest pain since Monday.", Confidence: 0.9},
		},
		Soap: consultation.SoapNote{ChiefComplaint: "Chest pain", HPI: "Since Monday", Assessment: "Chest wall pain", Plan: "NSAIDs"},
	}
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("c-%d", n.Add(1)) }
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}

func TestControllerHappyPathReachesReview(t *testing.T) {
	capture := newFakeCapture()
	gen := &fakeGenerator{data: sampleData(), got: make(chan audio.Encoded, 1)}
	ind := &fakeIndicator{}
	var results []Result
	var resultsMu sync.Mutex
	ctrl := NewController(nil, capture, gen, ind,
		WithIDGenerator(sequentialIDs()),
		WithResultHook(func(r Result) {
			resultsMu.Lock()
			results = append(results, r)
			resultsMu.Unlock()
		}),
	)
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.State != fsm.StateRecording || snap.ID != "c-1" || snap.Elapsed != 0 {
		t.Fatalf("unexpected recording snapshot: %+v", snap)
	}

	capture.tick()
	capture.tick()
	if got := ctrl.Snapshot().Elapsed; got != 2 {
		t.Fatalf("Elapsed = %d, want 2", got)
	}

	if err := ctrl.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	recording := <-gen.got
	if string(recording.Data) != "RIFF....WAVE" {
		t.Fatalf("generator got %q", recording.Data)
	}

	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	snap = ctrl.Snapshot()
	if snap.State != fsm.StateReview {
		t.Fatalf("state = %s, want review", snap.State)
	}
	if snap.Data == nil || snap.Data.Soap.ChiefComplaint != "Chest pain" {
		t.Fatalf("unexpected data: %+v", snap.Data)
	}
	if snap.Data.Flags == nil {
		t.Fatalf("expected flags normalized to empty slice")
	}
	if snap.Elapsed != 0 {
		t.Fatalf("Elapsed outside recording = %d, want 0", snap.Elapsed)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls.Load())
	}
	if ind.recording.Load() != 1 || ind.processing.Load() != 1 || ind.reviews.Load() != 1 {
		t.Fatalf("unexpected indicator calls: rec=%d proc=%d review=%d", ind.recording.Load(), ind.processing.Load(), ind.reviews.Load())
	}
	if ind.stopCues.Load() != 1 || ind.completes.Load() != 1 {
		t.Fatalf("expected one stop cue and one complete cue")
	}

	ctrl.mu.RLock()
	held := ctrl.recording
	ctrl.mu.RUnlock()
	if held != nil {
		t.Fatalf("recording should be released after review")
	}

	resultsMu.Lock()
	defer resultsMu.Unlock()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.State != fsm.StateReview || r.ID != "c-1" || r.Segments != 2 || r.Flags != 0 || r.AudioBytes != 12 {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.AudioDevice != "Desk Mic (mic-1)" {
		t.Fatalf("AudioDevice = %q", r.AudioDevice)
	}
}

func TestControllerCaptureFailureEntersError(t *testing.T) {
	capture := newFakeCapture()
	capture.startErr = fmt.Errorf("select audio input: %w", audio.ErrPermissionDenied)
	ind := &fakeIndicator{}
	ctrl := NewController(nil, capture, &fakeGenerator{}, ind)
	defer ctrl.Close()

	err := ctrl.Start(context.Background())
	if !errors.Is(err, audio.ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want ErrPermissionDenied", err)
	}

	snap := ctrl.Snapshot()
	if snap.State != fsm.StateError {
		t.Fatalf("state = %s, want error", snap.State)
	}
	if snap.Error != "microphone access denied: please ensure permissions are granted" {
		t.Fatalf("unexpected error message %q", snap.Error)
	}
	if ind.errors.Load() != 1 || ind.recording.Load() != 0 {
		t.Fatalf("unexpected indicator calls")
	}

	if err := ctrl.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap = ctrl.Snapshot()
	if snap.State != fsm.StateIdle || snap.Error != "" || snap.ID != "" || snap.Data != nil {
		t.Fatalf("reset did not clear state: %+v", snap)
	}
}

func TestControllerGenerationFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "configuration", err: gemini.ErrConfiguration, want: "Gemini API key is missing: set GEMINI_API_KEY or gemini.api_key"},
		{name: "network", err: fmt.Errorf("%w: dial tcp: refused", gemini.ErrNetwork), want: "could not reach Gemini; check your connection and try again"},
		{name: "schema", err: gemini.ErrSchema, want: "Gemini returned an incomplete consultation; try again"},
		{name: "encoding", err: gemini.ErrEncoding, want: "recording could not be encoded; check that the microphone captured audio"},
		{name: "other", err: errors.New("boom"), want: "failed to process audio: boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ind := &fakeIndicator{}
			results := make(chan Result, 1)
			ctrl := NewController(nil, newFakeCapture(), &fakeGenerator{err: tc.err}, ind,
				WithResultHook(func(r Result) { results <- r }))
			defer ctrl.Close()

			ctx := context.Background()
			if err := ctrl.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if err := ctrl.Stop(ctx); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}
			if err := ctrl.Wait(ctx); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}

			snap := ctrl.Snapshot()
			if snap.State != fsm.StateError {
				t.Fatalf("state = %s, want error", snap.State)
			}
			if snap.Error != tc.want {
				t.Fatalf("Error = %q, want %q", snap.Error, tc.want)
			}
			if snap.Data != nil {
				t.Fatalf("data must be empty in error state")
			}
			if ind.completes.Load() != 0 {
				t.Fatalf("no complete cue expected on failure")
			}
			if result := <-results; !errors.Is(result.Err, tc.err) {
				t.Fatalf("result Err = %v", result.Err)
			}
		})
	}
}

func TestControllerServiceErrorMessageIncludesDetail(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: http 403 PERMISSION_DENIED: API key not valid", gemini.ErrService)}
	ctrl := NewController(nil, newFakeCapture(), gen, nil)
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	_ = ctrl.Wait(ctx)

	snap := ctrl.Snapshot()
	want := "Gemini rejected the request: gemini service error: http 403 PERMISSION_DENIED: API key not valid"
	if snap.Error != want {
		t.Fatalf("Error = %q, want %q", snap.Error, want)
	}
}

func TestControllerStopErrorFromCaptureEntersError(t *testing.T) {
	capture := newFakeCapture()
	capture.stopErr = errors.New("stream lost")
	gen := &fakeGenerator{}
	ctrl := NewController(nil, capture, gen, nil)
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Stop(ctx); err == nil {
		t.Fatal("expected stop error")
	}
	if state := ctrl.State(); state != fsm.StateError {
		t.Fatalf("state = %s, want error", state)
	}
	if gen.calls.Load() != 0 {
		t.Fatalf("generator must not run when capture fails")
	}
}

func TestControllerRejectsCommandsWhileProcessing(t *testing.T) {
	gen := &fakeGenerator{data: sampleData(), release: make(chan struct{})}
	ctrl := NewController(nil, newFakeCapture(), gen, nil)
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	waitForState(t, ctrl, fsm.StateProcessing)

	if err := ctrl.Stop(ctx); err == nil || err.Error() != "already processing" {
		t.Fatalf("second Stop() error = %v, want already processing", err)
	}
	if err := ctrl.Start(ctx); err == nil {
		t.Fatal("Start() during processing should fail")
	}
	if err := ctrl.Reset(); err == nil || err.Error() != "cannot reset while processing" {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := ctrl.Toggle(ctx); err == nil {
		t.Fatal("Toggle() during processing should fail")
	}

	ctrl.mu.RLock()
	held := ctrl.recording
	ctrl.mu.RUnlock()
	if held == nil {
		t.Fatal("recording should be held while processing")
	}

	close(gen.release)
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if state := ctrl.State(); state != fsm.StateReview {
		t.Fatalf("state = %s, want review", state)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("generator calls = %d, want exactly 1", gen.calls.Load())
	}
}

func TestControllerToggleCyclesThroughLifecycle(t *testing.T) {
	capture := newFakeCapture()
	ctrl := NewController(nil, capture, &fakeGenerator{data: sampleData()}, nil, WithIDGenerator(sequentialIDs()))
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if ctrl.State() != fsm.StateRecording {
		t.Fatalf("state = %s", ctrl.State())
	}
	if err := ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	_ = ctrl.Wait(ctx)
	if ctrl.State() != fsm.StateReview {
		t.Fatalf("state = %s", ctrl.State())
	}
	if err := ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if ctrl.State() != fsm.StateIdle {
		t.Fatalf("state = %s", ctrl.State())
	}

	capture.tick()
	if err := ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	snap := ctrl.Snapshot()
	if snap.ID != "c-2" || snap.Elapsed != 0 {
		t.Fatalf("second consultation should start fresh: %+v", snap)
	}
}

func TestControllerResetIsRejectedWhileRecording(t *testing.T) {
	ctrl := NewController(nil, newFakeCapture(), &fakeGenerator{}, nil)
	defer ctrl.Close()

	if err := ctrl.Reset(); err != nil {
		t.Fatalf("idle Reset() error = %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Reset(); err == nil {
		t.Fatal("Reset() while recording should fail")
	}
	if err := ctrl.Start(context.Background()); err == nil {
		t.Fatal("Start() while recording should fail")
	}
}

func TestControllerUpdatesKeepLatestSnapshot(t *testing.T) {
	capture := newFakeCapture()
	ctrl := NewController(nil, capture, &fakeGenerator{}, nil)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	capture.tick()
	capture.tick()
	capture.tick()

	snap := <-ctrl.Updates()
	if snap.State != fsm.StateRecording || snap.Elapsed != 3 {
		t.Fatalf("latest update = %+v, want recording at 3s", snap)
	}
	select {
	case extra := <-ctrl.Updates():
		t.Fatalf("unexpected extra update %+v", extra)
	default:
	}

	ctrl.Close()
	for range ctrl.Updates() {
	}
}

func TestControllerCloseCancelsGeneration(t *testing.T) {
	capture := newFakeCapture()
	gen := &fakeGenerator{release: make(chan struct{})}
	ctrl := NewController(nil, capture, gen, nil)

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if capture.ctx == nil {
		t.Fatal("capture must receive the controller lifetime context")
	}
	if err := ctrl.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	ctrl.Close()
	if state := ctrl.State(); state != fsm.StateError {
		t.Fatalf("state = %s, want error after cancelled generation", state)
	}
	if msg := ctrl.Snapshot().Error; msg != "analysis cancelled" {
		t.Fatalf("Error = %q", msg)
	}
	if err := ctrl.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start() after Close = %v, want ErrClosed", err)
	}
}

func TestControllerCloseReleasesRecordingCapture(t *testing.T) {
	capture := newFakeCapture()
	ctrl := NewController(nil, capture, &fakeGenerator{}, nil)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctrl.Close()
	if capture.stops.Load() != 1 {
		t.Fatalf("capture stops = %d, want 1", capture.stops.Load())
	}
	if capture.ctx.Err() == nil {
		t.Fatal("lifetime context should be cancelled")
	}
}
