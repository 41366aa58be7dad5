// Package doctor runs readiness diagnostics for config, credentials, tools,
// audio, and the Gemini endpoint.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/hypr"
)

const probeTimeout = 5 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Prober verifies that the configured model answers with the configured key.
type Prober interface {
	Probe(ctx context.Context) error
}

// DeviceSelector resolves the capture device the recorder would open.
type DeviceSelector func(ctx context.Context, input string, fallback string) (audio.Selection, error)

// Run executes environment/config/runtime checks for a loaded config. A nil
// selector uses live Pulse selection.
func Run(ctx context.Context, loaded config.Loaded, gemini Prober, selectDevice DeviceSelector) Report {
	if selectDevice == nil {
		selectDevice = audio.SelectDevice
	}
	cfg := loaded.Config

	checks := []Check{checkConfig(loaded)}
	checks = append(checks, checkAPIKey(cfg.Gemini))
	checks = append(checks, Check{
		Name:    "note.language",
		Pass:    true,
		Message: fmt.Sprintf("%s (%s)", cfg.Note.Language, cfg.Note.Language.PromptName()),
	})
	if cfg.Indicator.Enable {
		checks = append(checks, checkIndicatorBackend(cfg.Indicator))
	}
	checks = append(checks, checkCommand(cfg.Clipboard.Argv, "clipboard_cmd"))
	checks = append(checks, checkAudioSelection(ctx, cfg.Audio, selectDevice))
	checks = append(checks, checkGemini(ctx, cfg.Gemini, gemini))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

// checkAPIKey reports where the key came from without echoing it.
func checkAPIKey(cfg config.GeminiConfig) Check {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Check{
			Name:    "gemini.api_key",
			Pass:    false,
			Message: fmt.Sprintf("not set; export %s or set gemini.api_key", config.EnvAPIKey),
		}
	}
	source := cfg.APIKeySource
	if source == "" {
		source = "unknown source"
	}
	return Check{Name: "gemini.api_key", Pass: true, Message: "set via " + source}
}

func checkIndicatorBackend(cfg config.IndicatorConfig) Check {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		return checkBinary("busctl", "desktop notifications use busctl")
	}
	if !hypr.Running() {
		return Check{Name: "indicator.backend", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty; set indicator.backend=desktop outside Hyprland"}
	}
	return checkBinary("hyprctl", "Hyprland session detected")
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig, selectDevice DeviceSelector) Check {
	selection, err := selectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", selection.Device.Describe())
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkGemini(ctx context.Context, cfg config.GeminiConfig, prober Prober) Check {
	name := "gemini.model"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Check{Name: name, Pass: false, Message: "skipped: no API key"}
	}
	if prober == nil {
		return Check{Name: name, Pass: false, Message: "skipped: no client"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := prober.Probe(probeCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s did not answer within %s", cfg.Endpoint, probeTimeout)}
		}
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s reachable at %s", cfg.Model, cfg.Endpoint)}
}
