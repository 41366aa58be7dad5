// Package audio records consultation audio from PulseAudio and packages it as WAV.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Describe formats device metadata for logs and reports.
func (d Device) Describe() string {
	if d.Description == "" {
		return d.ID
	}
	if d.ID == "" {
		return d.Description
	}
	return fmt.Sprintf("%s (%s)", d.Description, d.ID)
}

func (d Device) usable() bool {
	return d.Available && !d.Muted
}

// condition names why a device cannot record.
func (d Device) condition() string {
	switch {
	case d.Muted:
		return "muted"
	case !d.Available:
		return "unavailable"
	default:
		return "ready"
	}
}

// Selection is the device a recording will use. Warning is set when the
// configured input could not be used and another device stood in for it.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the Pulse input sources with default and availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return devicesFromReply(reply, defaultSource.ID()), nil
}

func devicesFromReply(reply pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(reply))
	for _, info := range reply {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return devices
}

// SelectDevice resolves the audio.input and audio.fallback settings against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// preference is one normalized audio.input or audio.fallback value. The
// empty preference stands for the server default source.
type preference string

func parsePreference(raw string) preference {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "default" {
		p = ""
	}
	return preference(p)
}

func (p preference) isDefault() bool {
	return p == ""
}

// resolve finds the default device or the first device matching p.
func (p preference) resolve(devices []Device) (Device, error) {
	for _, dev := range devices {
		if p.isDefault() && dev.Default {
			return dev, nil
		}
		if !p.isDefault() && deviceMatches(dev, string(p)) {
			return dev, nil
		}
	}
	if p.isDefault() {
		return Device{}, fmt.Errorf("%w: default audio source is missing", ErrDeviceUnavailable)
	}
	return Device{}, fmt.Errorf("%w: %q did not match any device", ErrDeviceUnavailable, string(p))
}

// selectDeviceFromList prefers the input device and falls back only when
// it is muted or unavailable. The stand-in must itself be usable.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no audio input devices found", ErrDeviceUnavailable)
	}

	in, fb := parsePreference(input), parsePreference(fallback)
	primary, err := in.resolve(devices)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}
	if primary.usable() {
		return Selection{Device: primary}, nil
	}

	reason := primary.condition()
	alternate, err := fb.resolve(devices)
	if err != nil {
		if fb.isDefault() {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
		}
		return Selection{}, fmt.Errorf("%w: primary input %q is %s and fallback %q not found", ErrDeviceUnavailable, primary.ID, reason, string(fb))
	}
	if !alternate.usable() {
		return Selection{}, fmt.Errorf("%w: audio fallback device %q is %s", ErrDeviceUnavailable, alternate.ID, alternate.condition())
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

// deviceMatches reports whether term appears in the device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("drai"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", classifyPulseError(err))
	}
	return client, nil
}

var sourceStates = map[uint32]string{0: "running", 1: "idle", 2: "suspended"}

func sourceStateString(state uint32) string {
	if name, ok := sourceStates[state]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// sourceAvailable reports the active port's availability. Sources without
// ports, or whose active port is not listed, count as available.
func sourceAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// unknown=0, no=1, yes=2
			return port.Available != 1
		}
	}
	return true
}
