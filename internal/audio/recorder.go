package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Encoded is one finished recording ready to upload.
type Encoded struct {
	MIMEType string
	Data     []byte
	PCMBytes int
	Chunks   int
	Duration time.Duration
	Device   Device
}

// Ticker is the subset of time.Ticker the recorder needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithTicker swaps the one second elapsed ticker.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(r *Recorder) {
		if newTicker != nil {
			r.newTicker = newTicker
		}
	}
}

// Recorder owns one stream at a time along with the PCM it delivers, and
// reports elapsed whole seconds.
type Recorder struct {
	source    Source
	newTicker func(time.Duration) Ticker

	mu        sync.Mutex
	running   bool
	stream    Stream
	ticker    Ticker
	stopTick  chan struct{}
	tickDone  chan struct{}
	pcm       *pcmBuffer
	startedAt time.Time

	elapsed atomic.Int64
}

// pcmBuffer collects chunks handed over by a stream's sink.
type pcmBuffer struct {
	mu     sync.Mutex
	data   bytes.Buffer
	chunks int
}

func (b *pcmBuffer) write(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Write(chunk)
	b.chunks++
}

func (b *pcmBuffer) take() ([]byte, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Bytes(), b.chunks
}

func NewRecorder(source Source, opts ...Option) *Recorder {
	r := &Recorder{
		source:    source,
		newTicker: newTimeTicker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start opens the source and begins buffering. onTick runs on the ticker
// goroutine with each new elapsed value.
func (r *Recorder) Start(ctx context.Context, onTick func(elapsed int)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("recorder already started")
	}
	if r.source == nil {
		return fmt.Errorf("%w: no audio source configured", ErrDeviceUnavailable)
	}

	buf := &pcmBuffer{}
	stream, err := r.source.Open(ctx, buf.write)
	if err != nil {
		return err
	}

	r.running = true
	r.stream = stream
	r.pcm = buf
	r.elapsed.Store(0)
	r.startedAt = time.Now()
	r.stopTick = make(chan struct{})
	r.tickDone = make(chan struct{})
	r.ticker = r.newTicker(time.Second)

	go r.tick(r.ticker, r.stopTick, r.tickDone, onTick)
	return nil
}

// Stop tears down the ticker, releases the device, and only then encodes
// everything the stream delivered since Start. The device is released even
// when encoding fails. Calling Stop on an idle recorder returns a zero Encoded.
func (r *Recorder) Stop() (Encoded, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return Encoded{}, nil
	}
	r.running = false
	stream := r.stream
	ticker := r.ticker
	stopTick := r.stopTick
	tickDone := r.tickDone
	startedAt := r.startedAt
	buf := r.pcm
	r.stream = nil
	r.pcm = nil
	r.ticker = nil
	r.mu.Unlock()

	ticker.Stop()
	close(stopTick)
	<-tickDone

	stopErr := stream.Stop()

	pcm, chunks := buf.take()
	encoded := Encoded{
		MIMEType: MIMETypeWAV,
		PCMBytes: len(pcm),
		Chunks:   chunks,
		Duration: time.Since(startedAt),
		Device:   stream.Device(),
	}

	if stopErr != nil {
		return encoded, fmt.Errorf("release audio stream: %w", stopErr)
	}
	if len(pcm) == 0 {
		return encoded, nil
	}

	data, err := EncodeWAV(pcm, SampleRate, Channels)
	if err != nil {
		return encoded, err
	}
	encoded.Data = data
	return encoded, nil
}

// Elapsed returns the last published counter value.
func (r *Recorder) Elapsed() int {
	return int(r.elapsed.Load())
}

// Recording reports whether a stream is currently open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Recorder) tick(ticker Ticker, stop <-chan struct{}, done chan<- struct{}, onTick func(int)) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			n := int(r.elapsed.Add(1))
			if onTick != nil {
				onTick(n)
			}
		}
	}
}
