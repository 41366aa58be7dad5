package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/doctor"
	"github.com/rbright/drai/internal/fsm"
	"github.com/rbright/drai/internal/gemini"
	"github.com/rbright/drai/internal/indicator"
	"github.com/rbright/drai/internal/ipc"
	"github.com/rbright/drai/internal/output"
	"github.com/rbright/drai/internal/pipeline"
	"github.com/rbright/drai/internal/render"
	"github.com/rbright/drai/internal/session"
	"github.com/rbright/drai/internal/tui"
	"github.com/rbright/drai/internal/version"
	"golang.org/x/sync/errgroup"
)

const cueDrainTimeout = 2 * time.Second

// Deps builds the owner's collaborators from config.
type Deps struct {
	Capture      func(cfg config.Config, logger *slog.Logger) session.Capture
	Generator    func(cfg config.Config, logger *slog.Logger) (session.Generator, func(), error)
	Indicator    func(cfg config.Config, logger *slog.Logger) session.Indicator
	Copy         func(cfg config.Config, logger *slog.Logger) tui.CopyFunc
	Prober       func(cfg config.Config, logger *slog.Logger) doctor.Prober
	SelectDevice doctor.DeviceSelector
	RunTUI       func(ctx context.Context, model tui.Model) error
}

func (d Deps) withDefaults() Deps {
	if d.Capture == nil {
		d.Capture = liveCapture
	}
	if d.Generator == nil {
		d.Generator = liveGenerator
	}
	if d.Indicator == nil {
		d.Indicator = func(cfg config.Config, logger *slog.Logger) session.Indicator {
			return indicator.NewNotifier(cfg.Indicator, cfg.Note.Language, logger)
		}
	}
	if d.Copy == nil {
		d.Copy = func(cfg config.Config, logger *slog.Logger) tui.CopyFunc {
			return output.NewClipboard(cfg.Clipboard, logger).Copy
		}
	}
	if d.Prober == nil {
		d.Prober = liveProber
	}
	if d.RunTUI == nil {
		d.RunTUI = runProgram
	}
	return d
}

func liveCapture(cfg config.Config, logger *slog.Logger) session.Capture {
	return audio.NewRecorder(audio.PulseSource{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger,
	})
}

func geminiConfig(cfg config.Config, logger *slog.Logger) gemini.Config {
	return gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Endpoint:    cfg.Gemini.Endpoint,
		Temperature: cfg.Gemini.Temperature,
		Language:    cfg.Note.Language,
		Timeout:     cfg.Gemini.RequestTimeout(),
		UserAgent:   version.UserAgent(),
		Logger:      logger,
	}
}

// liveGenerator builds the Gemini client behind the debug artifact analyzer.
// The returned cleanup closes the response dump.
func liveGenerator(cfg config.Config, logger *slog.Logger) (session.Generator, func(), error) {
	sink, err := pipeline.OpenResponseDump(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}

	gcfg := geminiConfig(cfg, logger)
	cleanup := func() {}
	if sink != nil {
		gcfg.DebugResponseSink = sink
		cleanup = func() { _ = sink.Close() }
	}
	return pipeline.NewAnalyzer(gemini.NewClient(gcfg), cfg.Debug, logger), cleanup, nil
}

func liveProber(cfg config.Config, logger *slog.Logger) doctor.Prober {
	if cfg.Gemini.APIKey == "" {
		return nil
	}
	return gemini.NewClient(geminiConfig(cfg, logger))
}

func runProgram(ctx context.Context, model tui.Model) error {
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// commandToggle forwards to a running owner or becomes the owner for one
// consultation.
func (r Runner) commandToggle(ctx context.Context, flags *globalFlags) error {
	e, err := r.bootstrap(flags, "toggle")
	if err != nil {
		return err
	}
	defer e.close()

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return failure(err)
	}

	resp, err := ipc.Forward(ctx, socketPath, ipc.CommandToggle, forwardTimeout)
	if !errors.Is(err, ipc.ErrNoOwner) {
		return r.printResponse(resp, err)
	}

	cfg := e.loaded.Config
	copyFn := r.Deps.withDefaults().Copy(cfg, e.logger)
	err = r.serveOwner(ctx, e, socketPath, r.driveToggle(cfg, copyFn))
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		resp, err := ipc.Forward(ctx, socketPath, ipc.CommandToggle, forwardTimeout)
		return r.printResponse(resp, err)
	}
	return err
}

// commandTUI runs the review screen as the owner so hotkey toggles reach it.
func (r Runner) commandTUI(ctx context.Context, flags *globalFlags) error {
	e, err := r.bootstrap(flags, "tui")
	if err != nil {
		return err
	}
	defer e.close()

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return failure(err)
	}

	deps := r.Deps.withDefaults()
	copyFn := deps.Copy(e.loaded.Config, e.logger)
	err = r.serveOwner(ctx, e, socketPath, func(ctx context.Context, controller *session.Controller) error {
		return deps.RunTUI(ctx, tui.New(ctx, controller, copyFn))
	})
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		return failure(errors.New("a drai session is already running; finish it with `drai stop` or `drai reset`"))
	}
	return err
}

// serveOwner holds the control socket, serves it, and runs drive against a
// fresh controller until drive returns.
func (r Runner) serveOwner(
	ctx context.Context,
	e env,
	socketPath string,
	drive func(context.Context, *session.Controller) error,
) error {
	listener, err := ipc.Acquire(ctx, socketPath, ipc.DefaultProbeTimeout, ipc.DefaultRetries, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return err
		}
		return failure(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	deps := r.Deps.withDefaults()
	cfg := e.loaded.Config
	generator, cleanup, err := deps.Generator(cfg, e.logger)
	if err != nil {
		return failure(err)
	}
	defer cleanup()

	ind := deps.Indicator(cfg, e.logger)
	controller := session.NewController(
		e.logger,
		deps.Capture(cfg, e.logger),
		generator,
		ind,
		session.WithResultHook(func(result session.Result) {
			logSessionResult(e.logger, result)
		}),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	driveCtx, stopServing := context.WithCancel(groupCtx)
	defer stopServing()

	group.Go(func() error {
		if err := ipc.Serve(driveCtx, listener, controller); err != nil {
			return failure(fmt.Errorf("ipc server failed: %w", err))
		}
		return nil
	})
	group.Go(func() error {
		defer stopServing()
		return drive(driveCtx, controller)
	})

	err = group.Wait()
	controller.Close()
	drainCues(ind)
	return err
}

// driveToggle starts recording and waits for the consultation to finish.
func (r Runner) driveToggle(cfg config.Config, copyFn tui.CopyFunc) func(context.Context, *session.Controller) error {
	return func(ctx context.Context, controller *session.Controller) error {
		if err := controller.Start(ctx); err != nil {
			return failure(err)
		}

		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(r.Stdout, "cancelled")
				return nil
			case snap, ok := <-controller.Updates():
				if !ok {
					return nil
				}
				switch snap.State {
				case fsm.StateReview:
					return r.deliver(ctx, cfg, copyFn, snap.Data)
				case fsm.StateError:
					return failure(errors.New(snap.Error))
				case fsm.StateIdle:
					fmt.Fprintln(r.Stdout, "cancelled")
					return nil
				}
			}
		}
	}
}

// deliver prints the review and copies the note when output.copy_on_review is set.
func (r Runner) deliver(ctx context.Context, cfg config.Config, copyFn tui.CopyFunc, data *consultation.Data) error {
	if data == nil {
		return failure(errors.New("consultation finished without data"))
	}
	fmt.Fprintln(r.Stdout, render.Report(*data))

	if !cfg.Output.CopyOnReview || copyFn == nil {
		return nil
	}
	if err := copyFn(ctx, render.SoapText(data.Soap)); err != nil {
		return failure(err)
	}
	fmt.Fprintln(r.Stderr, "SOAP note copied to clipboard")
	return nil
}

// drainCues lets queued audio cues finish before the process exits.
func drainCues(ind session.Indicator) {
	waiter, ok := ind.(interface{ Wait() })
	if !ok {
		return
	}
	done := make(chan struct{})
	go func() {
		waiter.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cueDrainTimeout):
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"id", result.ID,
		"state", result.State,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"recorded_ms", result.Recorded.Milliseconds(),
		"analysis_ms", result.Analysis.Milliseconds(),
		"audio_device", result.AudioDevice,
		"audio_bytes", result.AudioBytes,
		"segments", result.Segments,
		"flags", result.Flags,
	}

	if result.Err != nil {
		logger.Error("consultation failed", append(fields, "error", result.Err.Error(), "message", result.StatusMessage)...)
		return
	}
	logger.Info("consultation complete", fields...)
}
