package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const chunkSizeBytes = 640 // 20ms @ 16kHz mono s16

// Capture is one running Pulse record stream. Accepted PCM reaches the sink
// in whole chunks while recording; Stop releases the device and then hands
// the sink whatever partial chunk is left. Every byte Pulse was told was
// written reaches the sink exactly once, in order.
type Capture struct {
	device Device
	sink   func([]byte)
	done   chan struct{}

	client *pulse.Client
	stream *pulse.RecordStream

	mu       sync.Mutex
	pending  []byte
	accepted int64
	stopped  bool
}

func newCapture(device Device, sink func([]byte)) *Capture {
	if sink == nil {
		sink = func([]byte) {}
	}
	return &Capture{device: device, sink: sink, done: make(chan struct{})}
}

// StartCapture opens a 16kHz mono s16 record stream on selected and feeds
// sink from the Pulse client goroutine. The capture stops on its own when
// ctx is cancelled.
func StartCapture(ctx context.Context, selected Device, sink func([]byte)) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w: %w", selected.ID, ErrDeviceUnavailable, err)
	}

	capture := newCapture(selected, sink)
	capture.client = client

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("drai consultation"),
	)
	if err != nil {
		_ = capture.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.done:
		}
	}()

	return capture, nil
}

func (c *Capture) Device() Device {
	return c.device
}

// Accepted reports the PCM bytes taken from Pulse so far.
func (c *Capture) Accepted() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// Stop refuses further PCM, releases the stream and server connection,
// then flushes the residual partial chunk. Later calls do nothing.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()
	close(c.done)

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) > 0 {
		rest := c.pending
		c.pending = nil
		c.sink(rest)
	}
	return nil
}

// onPCM accepts a Pulse buffer and forwards every complete chunk. The sink
// runs under c.mu, which keeps chunks ordered and lets Stop observe a
// settled pending buffer.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0, io.EOF
	}

	c.accepted += int64(len(buffer))
	c.pending = append(c.pending, buffer...)
	for len(c.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, c.pending)
		c.pending = c.pending[chunkSizeBytes:]
		c.sink(chunk)
	}
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
