// Package session owns the lifecycle of one consultation at a time: capture,
// analysis, review, and reset.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/fsm"
)

// Capture is the recorder surface the controller drives.
type Capture interface {
	Start(ctx context.Context, onTick func(elapsed int)) error
	Stop() (audio.Encoded, error)
	Elapsed() int
}

// Generator turns one recording into consultation data.
type Generator interface {
	Generate(ctx context.Context, recording audio.Encoded) (consultation.Data, error)
}

// GenerateFunc adapts a function to the Generator interface.
type GenerateFunc func(context.Context, audio.Encoded) (consultation.Data, error)

func (f GenerateFunc) Generate(ctx context.Context, recording audio.Encoded) (consultation.Data, error) {
	return f(ctx, recording)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowReview(context.Context, int)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context, int)
	Hide(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowProcessing(context.Context)    {}
func (noopIndicator) ShowReview(context.Context, int)   {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context, int)  {}
func (noopIndicator) Hide(context.Context)              {}

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session controller closed")

// Snapshot is a consistent copy of controller state. Data is set only in
// review and Elapsed is non-zero only while recording.
type Snapshot struct {
	ID      string
	State   fsm.State
	Elapsed int
	Data    *consultation.Data
	Error   string
}

// Result summarizes one finished consultation for logging.
type Result struct {
	ID            string
	State         fsm.State
	Err           error
	AudioDevice   string
	AudioBytes    int
	Recorded      time.Duration
	Analysis      time.Duration
	Segments      int
	Flags         int
	StartedAt     time.Time
	FinishedAt    time.Time
	Data          *consultation.Data
	StatusMessage string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the UUID consultation id source.
func WithIDGenerator(next func() string) Option {
	return func(c *Controller) {
		if next != nil {
			c.newID = next
		}
	}
}

// WithResultHook receives every finished consultation, including failures to
// start capture.
func WithResultHook(hook func(Result)) Option {
	return func(c *Controller) { c.onResult = hook }
}

// Controller orchestrates state transitions and side effects. All state
// changes are linearized by mu.
type Controller struct {
	logger    *slog.Logger
	capture   Capture
	generator Generator
	indicator Indicator
	newID     func() string
	onResult  func(Result)

	lifetime context.Context
	cancel   context.CancelFunc

	mu        sync.RWMutex
	state     fsm.State
	id        string
	data      *consultation.Data
	errMsg    string
	recording *audio.Encoded
	startedAt time.Time
	closed    bool
	// genDone is closed when the current generation task returns.
	genDone chan struct{}

	pubMu     sync.Mutex
	pubClosed bool
	updates   chan Snapshot
}

// NewController constructs a controller; a nil indicator disables indicator output.
func NewController(
	logger *slog.Logger,
	capture Capture,
	generator Generator,
	indicator Indicator,
	opts ...Option,
) *Controller {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	lifetime, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:    logger,
		capture:   capture,
		generator: generator,
		indicator: indicator,
		newID:     uuid.NewString,
		lifetime:  lifetime,
		cancel:    cancel,
		state:     fsm.StateIdle,
		updates:   make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{ID: c.id, State: c.state, Error: c.errMsg}
	if c.state == fsm.StateRecording && c.capture != nil {
		snap.Elapsed = c.capture.Elapsed()
	}
	if c.data != nil {
		data := *c.data
		snap.Data = &data
	}
	return snap
}

// Updates delivers the latest snapshot after every transition and tick.
// Slow readers miss intermediate snapshots, never the newest one. The
// channel is closed by Close.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Start opens capture and enters recording. Capture runs under the
// controller lifetime rather than ctx, which only scopes indicator calls.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, _, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		return rejectError("start", state)
	}
	if c.capture == nil {
		c.mu.Unlock()
		return errors.New("no audio capture configured")
	}

	startedAt := time.Now()
	if err := c.capture.Start(c.lifetime, c.onTick); err != nil {
		c.state, _, _ = fsm.Transition(c.state, fsm.EventFail)
		c.id = c.newID()
		c.errMsg = captureErrorMessage(err)
		msg, result := c.errMsg, Result{
			ID:            c.id,
			State:         c.state,
			Err:           err,
			StartedAt:     startedAt,
			FinishedAt:    time.Now(),
			StatusMessage: c.errMsg,
		}
		c.mu.Unlock()

		c.indicator.ShowError(ctx, msg)
		c.publish()
		c.report(result)
		return fmt.Errorf("%s: %w", msg, err)
	}

	c.state = next
	c.id = c.newID()
	c.errMsg = ""
	c.data = nil
	c.startedAt = startedAt
	id := c.id
	c.mu.Unlock()

	c.logInfo("recording started", "id", id)
	c.indicator.ShowRecording(ctx)
	c.publish()
	return nil
}

// Stop finalizes capture and hands the recording to exactly one generation
// task. It is rejected while processing.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == fsm.StateProcessing {
		c.mu.Unlock()
		return errors.New("already processing")
	}
	next, _, err := fsm.Transition(c.state, fsm.EventStop)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		return rejectError("stop", state)
	}
	c.state = next
	id := c.id
	startedAt := c.startedAt
	done := make(chan struct{})
	c.genDone = done
	c.mu.Unlock()

	// The recorder waits for its tick goroutine, which may be blocked
	// publishing, so it must be stopped without holding mu.
	recording, stopErr := c.capture.Stop()
	c.indicator.CueStop(ctx)
	c.indicator.ShowProcessing(ctx)
	c.publish()

	if stopErr != nil {
		c.finish(id, startedAt, recording, time.Now(), consultation.Data{}, fmt.Errorf("finalize recording: %w", stopErr))
		close(done)
		return stopErr
	}

	c.mu.Lock()
	c.recording = &recording
	c.mu.Unlock()
	c.logInfo("recording stopped",
		"id", id,
		"audio_bytes", len(recording.Data),
		"chunks", recording.Chunks,
		"duration_ms", recording.Duration.Milliseconds(),
		"device", recording.Device.Describe(),
	)

	go func() {
		defer close(done)
		analysisStart := time.Now()
		var (
			data consultation.Data
			err  error
		)
		if c.generator == nil {
			err = errors.New("no generator configured")
		} else {
			data, err = c.generator.Generate(c.lifetime, recording)
		}
		c.finish(id, startedAt, recording, analysisStart, data, err)
	}()
	return nil
}

// finish records the outcome of processing and releases the recording.
func (c *Controller) finish(
	id string,
	startedAt time.Time,
	recording audio.Encoded,
	analysisStart time.Time,
	data consultation.Data,
	genErr error,
) {
	c.mu.Lock()
	if c.state != fsm.StateProcessing || c.id != id {
		c.mu.Unlock()
		return
	}
	c.recording = nil

	result := Result{
		ID:          id,
		Err:         genErr,
		AudioDevice: recording.Device.Describe(),
		AudioBytes:  len(recording.Data),
		Recorded:    recording.Duration,
		Analysis:    time.Since(analysisStart),
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}
	if genErr != nil {
		c.state, _, _ = fsm.Transition(c.state, fsm.EventFail)
		c.errMsg = generationErrorMessage(genErr)
		c.data = nil
		result.StatusMessage = c.errMsg
	} else {
		c.state, _, _ = fsm.Transition(c.state, fsm.EventGenerated)
		normalized := data.Normalize()
		c.data = &normalized
		c.errMsg = ""
		result.Segments = len(normalized.Transcript)
		result.Flags = len(normalized.Flags)
		copied := normalized
		result.Data = &copied
	}
	result.State = c.state
	msg := c.errMsg
	c.mu.Unlock()

	ctx := context.Background()
	if genErr != nil {
		c.indicator.ShowError(ctx, msg)
	} else {
		c.indicator.CueComplete(ctx, result.Flags)
		c.indicator.ShowReview(ctx, result.Flags)
	}
	c.publish()
	c.report(result)
}

// Reset clears a finished consultation. Idle resets are a no-op clear.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, _, err := fsm.Transition(c.state, fsm.EventReset)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		if state == fsm.StateProcessing {
			return errors.New("cannot reset while processing")
		}
		return rejectError("reset", state)
	}
	c.state = next
	c.id = ""
	c.data = nil
	c.errMsg = ""
	c.recording = nil
	c.startedAt = time.Time{}
	c.mu.Unlock()

	c.indicator.Hide(context.Background())
	c.publish()
	return nil
}

// Toggle advances the natural next step for the current state.
func (c *Controller) Toggle(ctx context.Context) error {
	switch state := c.State(); state {
	case fsm.StateIdle:
		return c.Start(ctx)
	case fsm.StateRecording:
		return c.Stop(ctx)
	case fsm.StateReview, fsm.StateError:
		return c.Reset()
	case fsm.StateProcessing:
		return errors.New("already processing")
	default:
		return rejectError("toggle", state)
	}
}

// Wait blocks until no generation task is in flight.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.RLock()
	done := c.genDone
	c.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight work, releases an open capture, and closes Updates.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	recording := c.state == fsm.StateRecording
	c.mu.Unlock()

	c.cancel()
	if recording && c.capture != nil {
		_, _ = c.capture.Stop()
	}
	_ = c.Wait(context.Background())

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()
	c.indicator.Hide(cleanupCtx)

	c.pubMu.Lock()
	c.pubClosed = true
	close(c.updates)
	c.pubMu.Unlock()
}

func (c *Controller) onTick(int) {
	if c.State() != fsm.StateRecording {
		return
	}
	c.publish()
}

// publish replaces any unread snapshot with the current one. It must not be
// called with mu held.
func (c *Controller) publish() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if c.pubClosed {
		return
	}
	snap := c.Snapshot()
	select {
	case <-c.updates:
	default:
	}
	c.updates <- snap
}

func (c *Controller) report(result Result) {
	if c.onResult != nil {
		c.onResult(result)
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func rejectError(action string, state fsm.State) error {
	return fmt.Errorf("cannot %s from state %s", action, state)
}
