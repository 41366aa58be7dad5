package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/drai/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	// cueComplete means the note is ready and nothing was flagged.
	cueComplete
	// cueFlagged means the note is ready but carries flags to review.
	cueFlagged
	cueError
)

const (
	cueSampleRate  = 16000
	cueFileTimeout = 4 * time.Second
	cueGap         = 22 * time.Millisecond
	cueRamp        = cueSampleRate / 200 // 5ms
)

// tone is one note of a cue.
type tone struct {
	hz   float64
	ms   int
	gain float64
}

func (t tone) duration() time.Duration {
	return time.Duration(t.ms) * time.Millisecond
}

// cue pairs a synthesized pattern with the config file that can replace it.
type cue struct {
	name  string
	tones []tone
	file  func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueStart: {
		name:  "start",
		tones: []tone{{660, 80, 0.16}, {990, 80, 0.16}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundStartFile },
	},
	cueStop: {
		name:  "stop",
		tones: []tone{{990, 70, 0.16}, {660, 90, 0.16}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundStopFile },
	},
	cueComplete: {
		name:  "complete",
		tones: []tone{{784, 60, 0.16}, {988, 60, 0.16}, {1319, 110, 0.16}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundCompleteFile },
	},
	cueFlagged: {
		name:  "flagged",
		tones: []tone{{784, 60, 0.16}, {988, 60, 0.16}, {740, 90, 0.18}, {740, 90, 0.18}},
		file: func(cfg config.IndicatorConfig) string {
			if strings.TrimSpace(cfg.SoundFlaggedFile) != "" {
				return cfg.SoundFlaggedFile
			}
			return cfg.SoundCompleteFile
		},
	},
	cueError: {
		name:  "error",
		tones: []tone{{440, 110, 0.18}, {330, 160, 0.18}},
	},
}

var cuePCM = renderCues(cues)

func renderCues(set map[cueKind]cue) map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(set))
	for kind, c := range set {
		out[kind] = synthesizeCue(c.tones)
	}
	return out
}

// completionCue picks the cue announcing a finished analysis.
func completionCue(flags int) cueKind {
	if flags > 0 {
		return cueFlagged
	}
	return cueComplete
}

// emitCue plays the configured cue file, falling back to the synthesized pattern.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(cues[kind].name, samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok || c.file == nil {
		return ""
	}
	return expandUserPath(c.file(cfg))
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cueFileTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(name string, samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("drai"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("drai "+name+" cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s cue: %w", name, err)
	}
	return nil
}

// synthesizeCue renders tones back to back with a short silence between them.
func synthesizeCue(tones []tone) []int16 {
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, samplesForDuration(cueGap))...)
		}
		pcm = append(pcm, synthesizeTone(t)...)
	}
	return pcm
}

// synthesizeTone renders a sine with linear attack and release ramps so the
// cue does not click.
func synthesizeTone(t tone) []int16 {
	n := samplesForDuration(t.duration())
	if n <= 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}
	ramp := min(max(n/10, 1), cueRamp)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.gain * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
