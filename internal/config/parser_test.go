package config

import (
	"strings"
	"testing"

	"github.com/rbright/drai/internal/consultation"
	"github.com/stretchr/testify/require"
)

func TestParseValidConfig(t *testing.T) {
	input := `
# comment
gemini:
  model: gemini-2.5-flash
  temperature: 0.4
  request_timeout_ms: 90000
note:
  language: zh_TW
audio:
  input: "Elgato Wave"
indicator:
  backend: desktop
  sound_enable: false
output:
  copy_on_review: false
debug:
  audio_dump: true
`

	cfg, warnings, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected gemini.model: %s", cfg.Gemini.Model)
	}
	if cfg.Gemini.Temperature != 0.4 {
		t.Fatalf("unexpected gemini.temperature: %v", cfg.Gemini.Temperature)
	}
	if cfg.Gemini.RequestTimeout().Seconds() != 90 {
		t.Fatalf("unexpected request timeout: %s", cfg.Gemini.RequestTimeout())
	}
	if cfg.Note.Language != consultation.LanguageTraditionalChinese {
		t.Fatalf("unexpected note.language: %s", cfg.Note.Language)
	}
	if cfg.Audio.Input != "Elgato Wave" || cfg.Audio.Fallback != "default" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Indicator.Backend != "desktop" || cfg.Indicator.SoundEnable {
		t.Fatalf("unexpected indicator config: %+v", cfg.Indicator)
	}
	if cfg.Output.CopyOnReview {
		t.Fatal("expected copy_on_review=false")
	}
	if !cfg.Debug.EnableAudioDump || cfg.Debug.EnableResponseDump {
		t.Fatalf("unexpected debug config: %+v", cfg.Debug)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestParseEmptyContentUsesBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)

	cfg, _, err = Parse("# only a comment\n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("gemini:\n  modle: typo\n", Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "modle") {
		t.Fatalf("expected unknown key in error, got %v", err)
	}
}

func TestParseLineNumberOnError(t *testing.T) {
	_, _, err := Parse("gemini:\n  model: ok\n  temperature: warm\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("gemini:\n  model: a\n---\ngemini:\n  model: b\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "single YAML document")
}

func TestParseRejectsUnsupportedLanguage(t *testing.T) {
	_, _, err := Parse("note:\n  language: fr\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "note.language")
}

func TestParseAPIKeyInFileWarns(t *testing.T) {
	cfg, warnings, err := Parse("gemini:\n  api_key: \" secret \"\n", Default())
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.Gemini.APIKey)
	require.Equal(t, "config", cfg.Gemini.APIKeySource)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "GEMINI_API_KEY")
}

func TestParseCommandArgvQuoted(t *testing.T) {
	cfg, _, err := Parse(`clipboard_cmd: "xclip -selection 'clip board'"`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"xclip", "-selection", "clip board"}, cfg.Clipboard.Argv)
}

func TestParseRejectsUnterminatedCommandQuote(t *testing.T) {
	_, _, err := Parse(`clipboard_cmd: "wl-copy 'oops"`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid clipboard_cmd")
}

func TestParseIndicatorSoundFilesAndText(t *testing.T) {
	input := `
indicator:
  sound_start_file: " ~/sounds/start.wav "
  sound_stop_file: /tmp/stop.wav
  sound_complete_file: /tmp/complete.wav
  sound_flagged_file: /tmp/flagged.wav
  text_recording: "Listening"
  text_review: "Done: %d flags"
  review_timeout_ms: 2500
`
	cfg, _, err := Parse(input, Default())
	require.NoError(t, err)
	require.Equal(t, "~/sounds/start.wav", cfg.Indicator.SoundStartFile)
	require.Equal(t, "/tmp/stop.wav", cfg.Indicator.SoundStopFile)
	require.Equal(t, "/tmp/complete.wav", cfg.Indicator.SoundCompleteFile)
	require.Equal(t, "/tmp/flagged.wav", cfg.Indicator.SoundFlaggedFile)
	require.Equal(t, "Listening", cfg.Indicator.TextRecording)
	require.Equal(t, "Done: %d flags", cfg.Indicator.TextReview)
	require.Equal(t, 2500, cfg.Indicator.ReviewTimeoutMS)
}
