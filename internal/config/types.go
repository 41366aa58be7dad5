// Package config resolves, parses, validates, and defaults drai configuration.
package config

import (
	"time"

	"github.com/rbright/drai/internal/consultation"
)

// Config is the fully materialized runtime configuration used by drai.
type Config struct {
	Gemini    GeminiConfig
	Note      NoteConfig
	Audio     AudioConfig
	Indicator IndicatorConfig
	Clipboard CommandConfig
	Output    OutputConfig
	Debug     DebugConfig
}

// GeminiConfig controls the generateContent request.
type GeminiConfig struct {
	APIKey string
	// APIKeySource names where APIKey came from: an env var, "config", or "".
	APIKeySource     string
	Model            string
	Endpoint         string
	Temperature      float64
	RequestTimeoutMS int
}

// RequestTimeout is the bound on one generateContent call; zero means none.
func (g GeminiConfig) RequestTimeout() time.Duration {
	if g.RequestTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(g.RequestTimeoutMS) * time.Millisecond
}

// NoteConfig controls the generated SOAP note.
type NoteConfig struct {
	Language consultation.Language
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundFlaggedFile  string
	TextRecording     string
	TextProcessing    string
	TextReview        string
	TextError         string
	ErrorTimeoutMS    int
	ReviewTimeoutMS   int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// OutputConfig controls what happens once a consultation reaches review.
type OutputConfig struct {
	CopyOnReview bool
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump    bool
	EnableResponseDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
