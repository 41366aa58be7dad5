// Package pipeline wraps consultation analysis with optional debug artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/logging"
	"github.com/rbright/drai/internal/session"
)

// Analyzer forwards recordings to a generator, dumping the uploaded WAV
// first when debug.audio_dump is enabled.
type Analyzer struct {
	next   session.Generator
	debug  config.DebugConfig
	logger *slog.Logger

	mu        sync.Mutex
	lastAudio string
}

// NewAnalyzer wraps next with debug artifact handling.
func NewAnalyzer(next session.Generator, debug config.DebugConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{next: next, debug: debug, logger: logger}
}

// Generate implements session.Generator.
func (a *Analyzer) Generate(ctx context.Context, recording audio.Encoded) (consultation.Data, error) {
	a.writeDebugAudio(recording)

	started := time.Now()
	data, err := a.next.Generate(ctx, recording)
	if err != nil {
		return consultation.Data{}, err
	}
	a.logDebug("consultation analyzed",
		"segments", len(data.Transcript),
		"flags", len(data.Flags),
		"latency_ms", time.Since(started).Milliseconds(),
	)
	return data, nil
}

// LastAudioDump returns the path of the most recent WAV dump, if any.
func (a *Analyzer) LastAudioDump() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAudio
}

// writeDebugAudio writes the encoded WAV exactly as uploaded.
func (a *Analyzer) writeDebugAudio(recording audio.Encoded) {
	if !a.debug.EnableAudioDump || len(recording.Data) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		a.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Write(recording.Data); err != nil {
		a.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
		return
	}

	a.mu.Lock()
	a.lastAudio = file.Name()
	a.mu.Unlock()
}

// OpenResponseDump opens the raw Gemini response sink when
// debug.response_dump is enabled. It returns nil, nil when disabled.
func OpenResponseDump(debug config.DebugConfig) (*os.File, error) {
	if !debug.EnableResponseDump {
		return nil, nil
	}
	return createDebugFile("response", "jsonl")
}

// createDebugFile creates timestamped debug artifacts under the drai state directory.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

func (a *Analyzer) logWarn(message string) {
	if a.logger == nil {
		return
	}
	a.logger.Warn(message)
}

func (a *Analyzer) logDebug(message string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Debug(message, args...)
}
