package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"micctl/audio"
	"micctl/common"
	"micctl/gate"
)

var route = audio.Route{InputDeviceID: "in#0#Mic", OutputDeviceID: "out#0#Cable"}

type fakeRuntime struct {
	closes atomic.Int32
	xruns  atomic.Uint64
}

func (r *fakeRuntime) Status(gs gate.State) audio.RuntimeStatus {
	return audio.RuntimeStatus{EngineState: audio.EngineRunning, Xruns: r.xruns.Load(), GateState: gs}
}

func (r *fakeRuntime) Close() error {
	r.closes.Add(1)
	return nil
}

type countingOpener struct {
	mu     sync.Mutex
	opened []*fakeRuntime
	delay  time.Duration
	err    error
}

func (o *countingOpener) open(audio.Route) (runtime, error) {
	time.Sleep(o.delay)
	if o.err != nil {
		return nil, o.err
	}
	rt := &fakeRuntime{}
	o.mu.Lock()
	o.opened = append(o.opened, rt)
	o.mu.Unlock()
	return rt, nil
}

func (o *countingOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func newTestSupervisor(o *countingOpener, opts ...Option) *Supervisor {
	opts = append([]Option{withOpener(o.open), WithPollInterval(5 * time.Millisecond)}, opts...)
	return New(nil, gate.NewController(gate.ModePTT), opts...)
}

func TestStartIsIdempotent(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{}
	s := newTestSupervisor(o)
	defer s.Stop()

	is.NoErr(s.Start(route))
	is.NoErr(s.Start(route))
	is.Equal(o.count(), 1) // no second bridge
	is.True(s.Running())
	is.Equal(s.Status().EngineState, audio.EngineRunning)
}

func TestStopClosesBridgeAndGoesIdle(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{}
	s := newTestSupervisor(o)
	is.NoErr(s.Start(route))

	s.Stop()
	is.Equal(o.opened[0].closes.Load(), int32(1))
	is.Equal(s.Status().EngineState, audio.EngineIdle)
	is.True(!s.Running())

	s.Stop() // nothing running
	is.Equal(o.opened[0].closes.Load(), int32(1))

	is.NoErr(s.Start(route)) // restart opens a fresh bridge
	is.Equal(o.count(), 2)
	s.Stop()
}

func TestStatusIsPolled(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{}
	s := newTestSupervisor(o)
	defer s.Stop()
	is.NoErr(s.Start(route))

	o.opened[0].xruns.Store(7)
	deadline := time.Now().Add(2 * time.Second)
	for s.Status().Xruns != 7 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	is.Equal(s.Status().Xruns, uint64(7))
}

func TestStatusCarriesFreshGate(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{}
	g := gate.NewController(gate.ModeToggle)
	s := New(nil, g, withOpener(o.open), WithPollInterval(time.Hour))
	defer s.Stop()
	is.NoErr(s.Start(route))

	g.SetOpen(true, "ui")
	is.True(s.Status().GateState.IsOpen) // not waiting for the next poll
}

func TestStartFailureReportsError(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{err: common.Errorf(common.KindDeviceNotFound, "Mic")}
	var seen []audio.RuntimeStatus
	s := newTestSupervisor(o, WithOnChange(func(st audio.RuntimeStatus) { seen = append(seen, st) }))

	err := s.Start(route)
	is.True(errors.Is(err, common.ErrDeviceNotFound))
	is.True(!s.Running())

	st := s.Status()
	is.Equal(st.EngineState, audio.EngineError)
	is.True(st.LastError != nil)
	is.Equal(*st.LastError, err.Error())
	is.Equal(len(seen), 1)
}

func TestStartRejectsIncompleteRoute(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{}
	s := newTestSupervisor(o)

	err := s.Start(audio.Route{InputDeviceID: "in#0#Mic"})
	is.True(errors.Is(err, common.ErrInvalidArgument))
	is.Equal(o.count(), 0)
}

func TestStartTimeoutJoinsWorker(t *testing.T) {
	is := is.New(t)

	o := &countingOpener{delay: 100 * time.Millisecond}
	s := newTestSupervisor(o, WithStartTimeout(10*time.Millisecond))

	err := s.Start(route)
	is.True(errors.Is(err, common.ErrSystem))
	is.Equal(err.Error(), common.Errorf(common.KindSystem, "engine start timed out").Error())

	// The worker was joined, so the late bridge is already closed.
	is.Equal(o.count(), 1)
	is.Equal(o.opened[0].closes.Load(), int32(1))
	is.True(!s.Running())

	st := s.Status()
	is.Equal(st.EngineState, audio.EngineError)
	is.True(st.LastError != nil)
}

func TestLateBridgeIsNeverPublished(t *testing.T) {
	is := is.New(t)

	var (
		mu     sync.Mutex
		states []audio.EngineState
	)
	o := &countingOpener{delay: 50 * time.Millisecond}
	s := newTestSupervisor(o, WithStartTimeout(5*time.Millisecond), WithOnChange(func(st audio.RuntimeStatus) {
		mu.Lock()
		states = append(states, st.EngineState)
		mu.Unlock()
	}))

	is.True(s.Start(route) != nil)
	time.Sleep(20 * time.Millisecond) // let any stray poll land

	is.Equal(o.count(), 1)
	is.Equal(o.opened[0].closes.Load(), int32(1))
	is.Equal(s.Status().EngineState, audio.EngineError)

	mu.Lock()
	defer mu.Unlock()
	is.Equal(states, []audio.EngineState{audio.EngineError})
}

func TestOnChangeFiresOnTransitions(t *testing.T) {
	is := is.New(t)

	var (
		mu     sync.Mutex
		states []audio.EngineState
	)
	o := &countingOpener{}
	s := newTestSupervisor(o, WithOnChange(func(st audio.RuntimeStatus) {
		mu.Lock()
		states = append(states, st.EngineState)
		mu.Unlock()
	}))

	is.NoErr(s.Start(route))
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	is.Equal(states, []audio.EngineState{audio.EngineRunning, audio.EngineIdle})
}
