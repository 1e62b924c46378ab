package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"micctl/common"
	"micctl/gate"
)

type EngineState string

const (
	EngineIdle    EngineState = "idle"
	EngineRunning EngineState = "running"
	EngineError   EngineState = "error"
)

// RuntimeStatus is the externally visible state of the audio engine.
type RuntimeStatus struct {
	EngineState   EngineState `json:"engine_state"`
	BufferLevelMs uint32      `json:"buffer_level_ms"`
	Xruns         uint64      `json:"xruns"`
	LastError     *string     `json:"last_error"`
	GateState     gate.State  `json:"gate_state"`
}

// Gate is the read side of the gate consulted by the output callback.
type Gate interface {
	IsOpen() bool
}

// Bridge copies a capture stream into a playback stream through a bounded
// queue, applying the gate's gain envelope on the way out.
type Bridge struct {
	input  Stream
	output Stream

	inFormat  Format
	outFormat Format

	queue *Queue
	gate  Gate
	step  float64

	// gain is only touched by the output callback.
	gain float32

	xruns atomic.Uint64

	errMu   sync.Mutex
	lastErr error

	closeOnce sync.Once
	closeErr  error
}

// Start resolves both devices, negotiates formats and starts the capture and
// playback streams. Either both streams run or nothing is left open.
func Start(dir Directory, route Route, g Gate) (*Bridge, error) {
	inDev, err := dir.Resolve(route.InputDeviceID, Input)
	if err != nil {
		return nil, err
	}
	outDev, err := dir.Resolve(route.OutputDeviceID, Output)
	if err != nil {
		return nil, err
	}

	inFormats, err := inDev.Formats()
	if err != nil {
		return nil, common.Wrap(common.KindAudio, err, "failed to query input formats")
	}
	inFormat, err := chooseInput(inFormats)
	if err != nil {
		return nil, err
	}
	outFormats, err := outDev.Formats()
	if err != nil {
		return nil, common.Wrap(common.KindAudio, err, "failed to query output formats")
	}
	outFormat, err := chooseOutput(outFormats, inFormat)
	if err != nil {
		return nil, err
	}

	b := newBridge(inFormat, outFormat, g)

	b.input, err = inDev.Open(inFormat, b.produce, b.fault)
	if err != nil {
		return nil, common.Wrap(common.KindAudio, err, "failed to open input stream")
	}
	b.output, err = outDev.Open(outFormat, b.consume, b.fault)
	if err != nil {
		b.input.Close()
		return nil, common.Wrap(common.KindAudio, err, "failed to open output stream")
	}

	if err := b.input.Start(); err != nil {
		b.closeStreams()
		return nil, common.Wrap(common.KindAudio, err, "failed to start input stream")
	}
	if err := b.output.Start(); err != nil {
		b.closeStreams()
		return nil, common.Wrap(common.KindAudio, err, "failed to start output stream")
	}
	return b, nil
}

func newBridge(in, out Format, g Gate) *Bridge {
	return &Bridge{
		inFormat:  in,
		outFormat: out,
		queue:     NewQueue(out.SampleRate * out.Channels),
		gate:      g,
		step:      gate.Step(out.SampleRate),
	}
}

// produce is the capture callback.
func (b *Bridge) produce(in []float32) {
	b.queue.Push(in)
}

// consume is the playback callback. It advances the envelope once per frame
// toward the gate target. While open it plays queued samples, emitting
// silence and counting one underrun for each frame that finds the queue
// empty. While closed it fades out what is queued and, once the gain is
// zero, writes silence and discards the backlog.
func (b *Bridge) consume(out []float32) {
	ch := b.outFormat.Channels
	if ch < 1 {
		clear(out)
		return
	}
	open := b.gate.IsOpen()
	q := b.queue

	q.mu.Lock()
	n := len(out) - len(out)%ch
	for i := 0; i < n; i += ch {
		b.gain = gate.Advance(b.gain, open, 1, b.step)
		frame := out[i : i+ch]

		switch {
		case open && q.n == 0:
			clear(frame)
			b.xruns.Add(1)
		case open || b.gain > 0:
			for c := range frame {
				s, _ := q.popLocked()
				frame[c] = s * b.gain
			}
		default:
			clear(frame)
		}
	}
	if !open && b.gain == 0 {
		q.clearLocked()
	}
	q.mu.Unlock()

	clear(out[n:])
}

// fault records an asynchronous stream error, or clears it when err is
// nil. The stream keeps running.
func (b *Bridge) fault(err error) {
	b.errMu.Lock()
	b.lastErr = err
	b.errMu.Unlock()
}

// LastError returns the most recent stream error, if any.
func (b *Bridge) LastError() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.lastErr
}

// Xruns returns the number of underrun frames so far.
func (b *Bridge) Xruns() uint64 {
	return b.xruns.Load()
}

// Format returns the negotiated output format.
func (b *Bridge) Format() Format {
	return b.outFormat
}

// InputFormat returns the negotiated capture format.
func (b *Bridge) InputFormat() Format {
	return b.inFormat
}

// BufferLevelMs converts a queue length into milliseconds of audio.
func BufferLevelMs(queueLen int, f Format) uint32 {
	perMs := f.SampleRate * f.Channels / 1000
	if perMs <= 0 {
		return 0
	}
	return uint32(queueLen / perMs)
}

// Status reports live counters together with the given gate snapshot.
func (b *Bridge) Status(gs gate.State) RuntimeStatus {
	st := RuntimeStatus{
		EngineState:   EngineRunning,
		BufferLevelMs: BufferLevelMs(b.queue.Len(), b.outFormat),
		Xruns:         b.Xruns(),
		GateState:     gs,
	}
	if err := b.LastError(); err != nil {
		msg := err.Error()
		st.LastError = &msg
	}
	return st
}

// Close stops and releases both streams. Only the first call does work.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.closeStreams()
	})
	return b.closeErr
}

func (b *Bridge) closeStreams() error {
	var errs []error
	for _, s := range []Stream{b.input, b.output} {
		if s == nil {
			continue
		}
		if err := s.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop stream: %w", err))
		}
	}
	for _, s := range []Stream{b.input, b.output} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stream: %w", err))
		}
	}
	return errors.Join(errs...)
}
