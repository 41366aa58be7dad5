package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrPermissionDenied means the sound server refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means no usable input device could be opened.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
)

// classifyPulseError tags a raw pulse/socket error with one of the package
// sentinels. Errors already tagged are returned unchanged.
func classifyPulseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "access denied"),
		strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "not authorized"):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
}
