// Package audiotest provides an in-memory device directory for tests that
// need to bring a bridge up without sound hardware.
package audiotest

import (
	"sync"

	"micctl/audio"
	"micctl/common"
)

// Stream records the calls made on an opened stream.
type Stream struct {
	mu      sync.Mutex
	started bool
	closed  bool
}

func (s *Stream) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Running reports whether the stream was started and not yet stopped.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}

// Device is a fake endpoint offering a fixed list of formats.
type Device struct {
	info    audio.DeviceInfo
	formats []audio.Format

	mu      sync.Mutex
	streams []*Stream
}

// NewDevice creates a device whose id is derived from dir, index and name.
func NewDevice(dir audio.Direction, index int, name string, formats ...audio.Format) *Device {
	return &Device{
		info: audio.DeviceInfo{
			ID:                 audio.MakeDeviceID(dir, index, name),
			Name:               name,
			Direction:          dir,
			IsVirtualCandidate: audio.IsVirtualCandidate(name),
		},
		formats: formats,
	}
}

func (d *Device) Info() audio.DeviceInfo { return d.info }

func (d *Device) Formats() ([]audio.Format, error) { return d.formats, nil }

func (d *Device) Open(f audio.Format, process func([]float32), fault func(error)) (audio.Stream, error) {
	s := &Stream{}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Streams returns every stream opened on the device so far.
func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Stream(nil), d.streams...)
}

// Directory serves a fixed set of fake devices.
type Directory struct {
	Inputs  []*Device
	Outputs []*Device
}

// Stereo48k returns a directory with one stereo 48 kHz microphone and one
// matching virtual cable.
func Stereo48k() *Directory {
	f := audio.Format{SampleRate: 48000, Channels: 2, SampleFormat: audio.Float32}
	return &Directory{
		Inputs:  []*Device{NewDevice(audio.Input, 0, "Headset Mic", f)},
		Outputs: []*Device{NewDevice(audio.Output, 0, "CABLE Input (VB-Audio Virtual Cable)", f)},
	}
}

// Route returns the route between the first input and the first output.
func (d *Directory) Route() audio.Route {
	return audio.Route{InputDeviceID: d.Inputs[0].info.ID, OutputDeviceID: d.Outputs[0].info.ID}
}

func (d *Directory) List() (audio.DeviceList, error) {
	var l audio.DeviceList
	for _, dev := range d.Inputs {
		l.Inputs = append(l.Inputs, dev.info)
	}
	for _, dev := range d.Outputs {
		l.Outputs = append(l.Outputs, dev.info)
	}
	return l, nil
}

func (d *Directory) Resolve(id string, dir audio.Direction) (audio.Device, error) {
	_, name, err := audio.ParseDeviceID(id)
	if err != nil {
		return nil, err
	}
	pool := d.Inputs
	if dir == audio.Output {
		pool = d.Outputs
	}
	for _, dev := range pool {
		if dev.info.ID == id {
			return dev, nil
		}
	}
	for _, dev := range pool {
		if dev.info.Name == name {
			return dev, nil
		}
	}
	return nil, common.Errorf(common.KindDeviceNotFound, "%s", name)
}
