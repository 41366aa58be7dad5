package config

import "github.com/rbright/drai/internal/consultation"

const defaultClipboardCmd = "wl-copy --trim-newline"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash-exp",
			Endpoint:    "https://generativelanguage.googleapis.com",
			Temperature: 0.2,
		},
		Note: NoteConfig{Language: consultation.LanguageEnglish},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Indicator: IndicatorConfig{
			Enable:          true,
			Backend:         "hypr",
			DesktopAppName:  "drai-indicator",
			SoundEnable:     true,
			ErrorTimeoutMS:  1600,
			ReviewTimeoutMS: 4000,
		},
		Clipboard: mustParseCommand(defaultClipboardCmd),
		Output:    OutputConfig{CopyOnReview: true},
		Debug:     DebugConfig{},
	}
}
