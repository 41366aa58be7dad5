package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/drai/internal/consultation"
)

const maxTemperature = 2.0

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return nil, fmt.Errorf("gemini.model must not be empty")
	}
	endpoint, err := url.Parse(strings.TrimSpace(cfg.Gemini.Endpoint))
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("gemini.endpoint must be an absolute URL")
	}
	if endpoint.Scheme != "https" && endpoint.Scheme != "http" {
		return nil, fmt.Errorf("gemini.endpoint must use http or https")
	}
	if endpoint.Scheme == "http" && endpoint.Hostname() != "127.0.0.1" && endpoint.Hostname() != "localhost" {
		warnings = append(warnings, Warning{Message: "gemini.endpoint uses plain http; the API key is sent unencrypted"})
	}
	if cfg.Gemini.Temperature < 0 || cfg.Gemini.Temperature > maxTemperature {
		return nil, fmt.Errorf("gemini.temperature must be between 0 and %.0f", maxTemperature)
	}
	if cfg.Gemini.RequestTimeoutMS < 0 {
		return nil, fmt.Errorf("gemini.request_timeout_ms must be >= 0")
	}
	if _, err := consultation.ParseLanguage(string(cfg.Note.Language)); err != nil {
		return nil, fmt.Errorf("note.language: %w", err)
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Indicator.ReviewTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.review_timeout_ms must be >= 0")
	}
	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty")
	}

	return warnings, nil
}
