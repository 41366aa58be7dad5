package audio

import (
	"context"
	"fmt"
	"log/slog"
)

// Source grants access to a live input stream.
type Source interface {
	// Open starts capture and delivers PCM to sink in capture order. The
	// sink may run on another goroutine and must not block.
	Open(ctx context.Context, sink func([]byte)) (Stream, error)
}

// Stream is an open capture. Stop releases the device; once it returns
// the sink has received every byte the stream accepted.
type Stream interface {
	Stop() error
	Device() Device
}

// PulseSource opens capture streams on the configured Pulse input.
type PulseSource struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// Open selects a device and starts recording from it. Failures always wrap
// ErrPermissionDenied or ErrDeviceUnavailable.
func (s PulseSource) Open(ctx context.Context, sink func([]byte)) (Stream, error) {
	selection, err := SelectDevice(ctx, s.Input, s.Fallback)
	if err != nil {
		return nil, fmt.Errorf("select audio input: %w", classifyPulseError(err))
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn(selection.Warning, "device", selection.Device.ID)
	}

	capture, err := StartCapture(ctx, selection.Device, sink)
	if err != nil {
		return nil, fmt.Errorf("start capture: %w", classifyPulseError(err))
	}
	return capture, nil
}
