package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/gemini"
)

const permissionHint = "please ensure permissions are granted"

// captureErrorMessage is the user-facing text for a capture that never started.
func captureErrorMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "microphone access denied: " + permissionHint
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "microphone access denied: no usable input device; " + permissionHint + " and check audio.input"
	default:
		return fmt.Sprintf("microphone access denied: %v; %s", err, permissionHint)
	}
}

// generationErrorMessage is the user-facing text for a failed analysis.
func generationErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "analysis cancelled"
	case errors.Is(err, gemini.ErrConfiguration):
		return "Gemini API key is missing: set GEMINI_API_KEY or gemini.api_key"
	case errors.Is(err, gemini.ErrEncoding):
		return "recording could not be encoded; check that the microphone captured audio"
	case errors.Is(err, gemini.ErrNetwork):
		return "could not reach Gemini; check your connection and try again"
	case errors.Is(err, gemini.ErrService):
		return fmt.Sprintf("Gemini rejected the request: %v", err)
	case errors.Is(err, gemini.ErrSchema):
		return "Gemini returned an incomplete consultation; try again"
	default:
		return fmt.Sprintf("failed to process audio: %v", err)
	}
}
