package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rbright/drai/internal/consultation"
	"gopkg.in/yaml.v3"
)

type yamlConfig struct {
	Gemini    *yamlGemini    `yaml:"gemini"`
	Note      *yamlNote      `yaml:"note"`
	Audio     *yamlAudio     `yaml:"audio"`
	Indicator *yamlIndicator `yaml:"indicator"`

	ClipboardCmd *string     `yaml:"clipboard_cmd"`
	Output       *yamlOutput `yaml:"output"`
	Debug        *yamlDebug  `yaml:"debug"`
}

type yamlGemini struct {
	APIKey           *string  `yaml:"api_key"`
	Model            *string  `yaml:"model"`
	Endpoint         *string  `yaml:"endpoint"`
	Temperature      *float64 `yaml:"temperature"`
	RequestTimeoutMS *int     `yaml:"request_timeout_ms"`
}

type yamlNote struct {
	Language *string `yaml:"language"`
}

type yamlAudio struct {
	Input    *string `yaml:"input"`
	Fallback *string `yaml:"fallback"`
}

type yamlIndicator struct {
	Enable            *bool   `yaml:"enable"`
	Backend           *string `yaml:"backend"`
	DesktopAppName    *string `yaml:"desktop_app_name"`
	SoundEnable       *bool   `yaml:"sound_enable"`
	SoundStartFile    *string `yaml:"sound_start_file"`
	SoundStopFile     *string `yaml:"sound_stop_file"`
	SoundCompleteFile *string `yaml:"sound_complete_file"`
	SoundFlaggedFile  *string `yaml:"sound_flagged_file"`
	TextRecording     *string `yaml:"text_recording"`
	TextProcessing    *string `yaml:"text_processing"`
	TextReview        *string `yaml:"text_review"`
	TextError         *string `yaml:"text_error"`
	ErrorTimeoutMS    *int    `yaml:"error_timeout_ms"`
	ReviewTimeoutMS   *int    `yaml:"review_timeout_ms"`
}

type yamlOutput struct {
	CopyOnReview *bool `yaml:"copy_on_review"`
}

type yamlDebug struct {
	AudioDump    *bool `yaml:"audio_dump"`
	ResponseDump *bool `yaml:"response_dump"`
}

// Parse reads YAML configuration content on top of base and validates the result.
// Unknown keys are rejected.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload yamlConfig
	if err := decoder.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, nil, fmt.Errorf("decode yaml: %w", err)
	}
	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, nil, errors.New("config must contain a single YAML document")
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload yamlConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Gemini != nil {
		if payload.Gemini.APIKey != nil {
			cfg.Gemini.APIKey = strings.TrimSpace(*payload.Gemini.APIKey)
			if cfg.Gemini.APIKey != "" {
				cfg.Gemini.APIKeySource = "config"
				warnings = append(warnings, Warning{Message: "gemini.api_key is stored in plain text; prefer the GEMINI_API_KEY environment variable"})
			}
		}
		if payload.Gemini.Model != nil {
			cfg.Gemini.Model = strings.TrimSpace(*payload.Gemini.Model)
		}
		if payload.Gemini.Endpoint != nil {
			cfg.Gemini.Endpoint = strings.TrimSpace(*payload.Gemini.Endpoint)
		}
		if payload.Gemini.Temperature != nil {
			cfg.Gemini.Temperature = *payload.Gemini.Temperature
		}
		if payload.Gemini.RequestTimeoutMS != nil {
			cfg.Gemini.RequestTimeoutMS = *payload.Gemini.RequestTimeoutMS
		}
	}

	if payload.Note != nil && payload.Note.Language != nil {
		lang, err := consultation.ParseLanguage(*payload.Note.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid note.language: %w", err)
		}
		cfg.Note.Language = lang
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if in := payload.Indicator; in != nil {
		if in.Enable != nil {
			cfg.Indicator.Enable = *in.Enable
		}
		if in.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*in.Backend)
		}
		if in.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*in.DesktopAppName)
		}
		if in.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *in.SoundEnable
		}
		if in.SoundStartFile != nil {
			cfg.Indicator.SoundStartFile = strings.TrimSpace(*in.SoundStartFile)
		}
		if in.SoundStopFile != nil {
			cfg.Indicator.SoundStopFile = strings.TrimSpace(*in.SoundStopFile)
		}
		if in.SoundCompleteFile != nil {
			cfg.Indicator.SoundCompleteFile = strings.TrimSpace(*in.SoundCompleteFile)
		}
		if in.SoundFlaggedFile != nil {
			cfg.Indicator.SoundFlaggedFile = strings.TrimSpace(*in.SoundFlaggedFile)
		}
		if in.TextRecording != nil {
			cfg.Indicator.TextRecording = *in.TextRecording
		}
		if in.TextProcessing != nil {
			cfg.Indicator.TextProcessing = *in.TextProcessing
		}
		if in.TextReview != nil {
			cfg.Indicator.TextReview = *in.TextReview
		}
		if in.TextError != nil {
			cfg.Indicator.TextError = *in.TextError
		}
		if in.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *in.ErrorTimeoutMS
		}
		if in.ReviewTimeoutMS != nil {
			cfg.Indicator.ReviewTimeoutMS = *in.ReviewTimeoutMS
		}
	}

	if payload.ClipboardCmd != nil {
		cmd, err := ParseCommand(*payload.ClipboardCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = cmd
	}

	if payload.Output != nil && payload.Output.CopyOnReview != nil {
		cfg.Output.CopyOnReview = *payload.Output.CopyOnReview
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.ResponseDump != nil {
			cfg.Debug.EnableResponseDump = *payload.Debug.ResponseDump
		}
	}

	return warnings, nil
}
