// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/hypr"
)

const (
	dispatchTimeout = 400 * time.Millisecond
	// Recording and processing stay up until replaced.
	persistentTimeoutMS   = 300000
	defaultErrorTimeoutMS = 1200
	defaultReviewTimeout  = 4000
	cueTimeout            = 5 * time.Second
)

// Notifier routes session state to Hyprland or freedesktop notifications
// and plays the matching audio cues.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	focusedMonitor        string
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// NewNotifier creates an indicator from config, localized for the note language.
func NewNotifier(cfg config.IndicatorConfig, lang consultation.Language, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessages(lang).withOverrides(cfg),
	}
}

// ShowRecording signals recording start and emits the start cue.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.ensureFocusedMonitor(ctx)
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconInfo, persistentTimeoutMS, hypr.ColorRecording, n.messages.recording, urgencyNormal)
	})
}

// ShowProcessing signals that the recording is being analyzed.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconHint, persistentTimeoutMS, hypr.ColorProcessing, n.messages.processing, urgencyLow)
	})
}

// ShowReview announces a finished consultation and how many flags it carries.
func (n *Notifier) ShowReview(ctx context.Context, flags int) {
	if !n.cfg.Enable {
		return
	}
	timeout := n.cfg.ReviewTimeoutMS
	if timeout <= 0 {
		timeout = defaultReviewTimeout
	}
	icon := hypr.IconOK
	if flags > 0 {
		icon = hypr.IconWarning
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, icon, timeout, hypr.ColorReview, n.messages.review(flags), urgencyNormal)
	})
}

// ShowError displays an error-state indicator message and emits the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if strings.TrimSpace(text) == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = defaultErrorTimeoutMS
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconError, timeout, hypr.ColorError, text, urgencyCritical)
	})
}

// CueStop emits the stop cue.
func (n *Notifier) CueStop(context.Context) {
	n.playCue(cueStop)
}

// CueComplete emits the analysis-complete cue, or the flagged variant when
// the note carries flags.
func (n *Notifier) CueComplete(_ context.Context, flags int) {
	n.playCue(completionCue(flags))
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// FocusedMonitor returns the monitor captured when recording began.
func (n *Notifier) FocusedMonitor() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focusedMonitor
}

// Wait blocks until queued audio cues have finished playing.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

// ensureFocusedMonitor resolves and caches the focused monitor once per process.
func (n *Notifier) ensureFocusedMonitor(ctx context.Context) {
	if n.desktopBackend() {
		return
	}
	n.mu.Lock()
	alreadySet := n.focusedMonitor != ""
	n.mu.Unlock()
	if alreadySet {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		n.log("indicator focused monitor query failed", err)
		return
	}

	n.mu.Lock()
	n.focusedMonitor = monitor
	n.mu.Unlock()
}

func (n *Notifier) desktopBackend() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon hypr.Icon, timeoutMS int, color string, text string, level urgency) error {
	if n.desktopBackend() {
		return n.notifyDesktop(ctx, timeoutMS, text, level)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktopBackend() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string, level urgency) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "drai-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, "drai", text, level, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := emitCue(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
