package audio

import (
	"errors"
	"sync"
)

type fakeStream struct {
	mu      sync.Mutex
	started bool
	stops   int
	closes  int
	failOn  string
	process func([]float32)
	fault   func(error)
}

func (s *fakeStream) Start() error {
	if s.failOn == "start" {
		return errors.New("device busy")
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	s.started = false
	s.stops++
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

type fakeDevice struct {
	info    DeviceInfo
	formats []Format
	failOn  string
	opened  []*fakeStream
}

func (d *fakeDevice) Info() DeviceInfo { return d.info }

func (d *fakeDevice) Formats() ([]Format, error) { return d.formats, nil }

func (d *fakeDevice) Open(f Format, process func([]float32), fault func(error)) (Stream, error) {
	if d.failOn == "open" {
		return nil, errors.New("cannot open")
	}
	s := &fakeStream{failOn: d.failOn, process: process, fault: fault}
	d.opened = append(d.opened, s)
	return s, nil
}

func (d *fakeDevice) stream() *fakeStream {
	return d.opened[len(d.opened)-1]
}

type fakeDirectory struct {
	inputs  []*fakeDevice
	outputs []*fakeDevice
}

func newFakeDevice(dir Direction, index int, name string, formats ...Format) *fakeDevice {
	return &fakeDevice{
		info: DeviceInfo{
			ID:                 MakeDeviceID(dir, index, name),
			Name:               name,
			Direction:          dir,
			IsVirtualCandidate: IsVirtualCandidate(name),
		},
		formats: formats,
	}
}

func (f *fakeDirectory) List() (DeviceList, error) {
	var l DeviceList
	for _, d := range f.inputs {
		l.Inputs = append(l.Inputs, d.info)
	}
	for _, d := range f.outputs {
		l.Outputs = append(l.Outputs, d.info)
	}
	return l, nil
}

func (f *fakeDirectory) Resolve(id string, dir Direction) (Device, error) {
	pool := f.inputs
	if dir == Output {
		pool = f.outputs
	}
	d, err := ResolveIn(id, pool, func(d *fakeDevice) string { return d.info.Name })
	if err != nil {
		return nil, err
	}
	return d, nil
}

type fixedGate struct {
	mu   sync.Mutex
	open bool
}

func (g *fixedGate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *fixedGate) set(open bool) {
	g.mu.Lock()
	g.open = open
	g.mu.Unlock()
}

func f32(rate, channels int) Format {
	return Format{SampleRate: rate, Channels: channels, SampleFormat: Float32}
}
