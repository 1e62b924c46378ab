// Package portaudio implements audio.Directory on top of the host's
// PortAudio library. It is the only package that links libportaudio.
package portaudio

import (
	"errors"
	"slices"

	pa "github.com/gordonklaus/portaudio"

	"micctl/audio"
	"micctl/common"
)

// Rates probed on every device in addition to its default rate.
var standardRates = []float64{8000, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 192000}

// Preallocated so the callbacks never allocate.
var (
	errInputOverflow   = errors.New("input stream overflow: samples were discarded by the driver")
	errOutputUnderflow = errors.New("output stream underflow: the device ran out of samples")
)

// Initialize loads the host library. Every successful call must be paired
// with Terminate.
func Initialize() error {
	if err := pa.Initialize(); err != nil {
		return common.Wrap(common.KindAudio, err, "failed to initialize portaudio")
	}
	return nil
}

func Terminate() error {
	return pa.Terminate()
}

func VersionText() string {
	return pa.VersionText()
}

// Directory is the audio.Directory backed by PortAudio. Initialize must
// have been called.
type Directory struct{}

func New() *Directory {
	return &Directory{}
}

type enumeration struct {
	inputs, outputs []*pa.DeviceInfo
	defIn, defOut   *pa.DeviceInfo
}

func (p *Directory) enumerate() (enumeration, error) {
	var e enumeration
	devices, err := pa.Devices()
	if err != nil {
		return e, common.Wrap(common.KindAudio, err, "failed to enumerate devices")
	}
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			e.inputs = append(e.inputs, d)
		}
		if d.MaxOutputChannels > 0 {
			e.outputs = append(e.outputs, d)
		}
	}
	// A host without a default device is not an error for listing.
	e.defIn, _ = pa.DefaultInputDevice()
	e.defOut, _ = pa.DefaultOutputDevice()
	return e, nil
}

func describe(dir audio.Direction, index int, d, def *pa.DeviceInfo) audio.DeviceInfo {
	return audio.DeviceInfo{
		ID:                 audio.MakeDeviceID(dir, index, d.Name),
		Name:               d.Name,
		Direction:          dir,
		IsDefault:          def != nil && def.Index == d.Index,
		IsVirtualCandidate: audio.IsVirtualCandidate(d.Name),
	}
}

func (p *Directory) List() (audio.DeviceList, error) {
	e, err := p.enumerate()
	if err != nil {
		return audio.DeviceList{}, err
	}
	list := audio.DeviceList{
		Inputs:  make([]audio.DeviceInfo, 0, len(e.inputs)),
		Outputs: make([]audio.DeviceInfo, 0, len(e.outputs)),
	}
	for i, d := range e.inputs {
		list.Inputs = append(list.Inputs, describe(audio.Input, i, d, e.defIn))
	}
	for i, d := range e.outputs {
		list.Outputs = append(list.Outputs, describe(audio.Output, i, d, e.defOut))
	}
	return list, nil
}

func (p *Directory) Resolve(id string, dir audio.Direction) (audio.Device, error) {
	e, err := p.enumerate()
	if err != nil {
		return nil, err
	}
	pool, def := e.inputs, e.defIn
	if dir == audio.Output {
		pool, def = e.outputs, e.defOut
	}
	d, err := audio.ResolveIn(id, pool, func(d *pa.DeviceInfo) string { return d.Name })
	if err != nil {
		return nil, err
	}
	return &device{
		info: d,
		meta: describe(dir, slices.Index(pool, d), d, def),
	}, nil
}

type device struct {
	info *pa.DeviceInfo
	meta audio.DeviceInfo
}

func (d *device) Info() audio.DeviceInfo {
	return d.meta
}

func (d *device) params(f audio.Format) pa.StreamParameters {
	var p pa.StreamParameters
	if d.meta.Direction == audio.Output {
		p = pa.LowLatencyParameters(nil, d.info)
		p.Output.Channels = f.Channels
	} else {
		p = pa.LowLatencyParameters(d.info, nil)
		p.Input.Channels = f.Channels
	}
	p.SampleRate = float64(f.SampleRate)
	p.FramesPerBuffer = pa.FramesPerBufferUnspecified
	return p
}

func (d *device) maxChannels() int {
	if d.meta.Direction == audio.Output {
		return d.info.MaxOutputChannels
	}
	return d.info.MaxInputChannels
}

// Formats probes float32 support over the standard rates and a few
// channel counts.
func (d *device) Formats() ([]audio.Format, error) {
	maxCh := d.maxChannels()
	if maxCh < 1 {
		return nil, common.Errorf(common.KindAudio, "device %q has no %s channels", d.info.Name, d.meta.Direction)
	}
	var channels []int
	for _, c := range []int{1, 2, maxCh} {
		if c <= maxCh && !slices.Contains(channels, c) {
			channels = append(channels, c)
		}
	}
	rates := slices.Clone(standardRates)
	if r := d.info.DefaultSampleRate; r > 0 && !slices.Contains(rates, r) {
		rates = append(rates, r)
	}

	probe := make([]float32, 1)
	var formats []audio.Format
	for _, c := range channels {
		for _, r := range rates {
			f := audio.Format{SampleRate: int(r), Channels: c, SampleFormat: audio.Float32}
			if pa.IsFormatSupported(d.params(f), probe) == nil {
				formats = append(formats, f)
			}
		}
	}
	return formats, nil
}

func (d *device) Open(f audio.Format, process func([]float32), fault func(error)) (audio.Stream, error) {
	var cb any
	if d.meta.Direction == audio.Output {
		xrun := xrunReporter{fault: fault, err: errOutputUnderflow}
		cb = func(out []float32, _ pa.StreamCallbackTimeInfo, flags pa.StreamCallbackFlags) {
			xrun.report(flags&pa.OutputUnderflow != 0)
			process(out)
		}
	} else {
		xrun := xrunReporter{fault: fault, err: errInputOverflow}
		cb = func(in []float32, _ pa.StreamCallbackTimeInfo, flags pa.StreamCallbackFlags) {
			xrun.report(flags&pa.InputOverflow != 0)
			process(in)
		}
	}
	s, err := pa.OpenStream(d.params(f), cb)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// xrunReporter turns per-callback xrun flags into fault transitions: err
// on the first flagged cycle, nil on the first clean cycle after it.
// It is only touched from the stream's callback thread.
type xrunReporter struct {
	fault   func(error)
	err     error
	glitchy bool
}

func (x *xrunReporter) report(flagged bool) {
	switch {
	case flagged && !x.glitchy:
		x.glitchy = true
		x.fault(x.err)
	case !flagged && x.glitchy:
		x.glitchy = false
		x.fault(nil)
	}
}
