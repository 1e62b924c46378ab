package hotkey

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"micctl/common"
	"micctl/gate"
)

// fakeLoop stands in for the native message loop.
type fakeLoop struct {
	installErr   error
	installDelay time.Duration

	quitCh   chan struct{}
	quitOnce sync.Once
	exited   atomic.Bool
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{quitCh: make(chan struct{})}
}

func (l *fakeLoop) run(ready chan<- error) {
	defer l.exited.Store(true)
	select {
	case <-time.After(l.installDelay):
	case <-l.quitCh:
		return
	}
	if l.installErr != nil {
		ready <- l.installErr
		return
	}
	ready <- nil
	<-l.quitCh
}

func (l *fakeLoop) quit() {
	l.quitOnce.Do(func() { close(l.quitCh) })
}

type recorder struct {
	mu     sync.Mutex
	states []gate.State
}

func (r *recorder) notify(s gate.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func newTestHook(g *gate.Controller, loops ...*fakeLoop) (*MouseHook, *recorder) {
	rec := &recorder{}
	m := NewMouseHook(g, rec.notify)
	m.installTimeout = 50 * time.Millisecond
	var i int
	m.newLoop = func(*MouseHook) hookLoop {
		l := loops[i]
		i++
		return l
	}
	return m, rec
}

func TestRegisterAndUnregister(t *testing.T) {
	is := is.New(t)

	g := gate.NewController(gate.ModePTT)
	loop := newFakeLoop()
	m, _ := newTestHook(g, loop)

	is.NoErr(m.Register("Ctrl+MouseBack", gate.ModePTT))
	b, ok := m.Active()
	is.True(ok)
	is.Equal(b.Button, ButtonBack)
	is.True(!loop.exited.Load())

	m.Unregister()
	is.True(loop.exited.Load()) // joined
	_, ok = m.Active()
	is.True(!ok)

	m.Unregister() // idempotent
}

func TestRegisterReplacesBinding(t *testing.T) {
	is := is.New(t)

	g := gate.NewController(gate.ModePTT)
	first, second := newFakeLoop(), newFakeLoop()
	m, _ := newTestHook(g, first, second)

	is.NoErr(m.Register("MouseMiddle", gate.ModePTT))
	is.NoErr(m.Register("MouseForward", gate.ModeToggle))
	is.True(first.exited.Load())
	is.True(!second.exited.Load())

	b, _ := m.Active()
	is.Equal(b.Button, ButtonForward)
	m.Unregister()
}

func TestRegisterParseErrorInstallsNothing(t *testing.T) {
	is := is.New(t)

	m, _ := newTestHook(gate.NewController(gate.ModePTT))
	err := m.Register("MouseFoo", gate.ModePTT)
	is.True(errors.Is(err, common.ErrHotkey))
	_, ok := m.Active()
	is.True(!ok)
}

func TestRegisterInstallFailure(t *testing.T) {
	is := is.New(t)

	loop := newFakeLoop()
	loop.installErr = errors.New("access denied")
	m, _ := newTestHook(gate.NewController(gate.ModePTT), loop)

	err := m.Register("MouseLeft", gate.ModePTT)
	is.True(errors.Is(err, common.ErrHotkey))
	is.True(loop.exited.Load())
	_, ok := m.Active()
	is.True(!ok)
}

func TestRegisterTimeoutJoinsThread(t *testing.T) {
	is := is.New(t)

	loop := newFakeLoop()
	loop.installDelay = time.Hour
	m, _ := newTestHook(gate.NewController(gate.ModePTT), loop)

	err := m.Register("MouseLeft", gate.ModePTT)
	is.True(errors.Is(err, common.ErrSystem))
	is.True(loop.exited.Load()) // joined before returning
	_, ok := m.Active()
	is.True(!ok)
}

func TestDispatchRequiresExactModifiers(t *testing.T) {
	is := is.New(t)

	g := gate.NewController(gate.ModePTT)
	m, rec := newTestHook(g, newFakeLoop())
	is.NoErr(m.Register("Ctrl+MouseRight", gate.ModePTT))
	defer m.Unregister()

	is.True(!m.dispatch(ButtonRight, true, Modifiers{}))                        // ctrl missing
	is.True(!m.dispatch(ButtonRight, true, Modifiers{Ctrl: true, Shift: true})) // extra shift
	is.True(!m.dispatch(ButtonLeft, true, Modifiers{Ctrl: true}))               // other button
	is.True(!g.IsOpen())
	is.Equal(rec.count(), 0)

	is.True(m.dispatch(ButtonRight, true, Modifiers{Ctrl: true}))
	is.True(g.IsOpen())
	is.Equal(g.Snapshot().LastSource, SourceMouse)

	is.True(m.dispatch(ButtonRight, false, Modifiers{Ctrl: true}))
	is.True(!g.IsOpen())
	is.Equal(rec.count(), 2)
}

func TestDispatchToggleMode(t *testing.T) {
	is := is.New(t)

	g := gate.NewController(gate.ModeToggle)
	m, rec := newTestHook(g, newFakeLoop())
	is.NoErr(m.Register("MouseBack", gate.ModeToggle))
	defer m.Unregister()

	m.dispatch(ButtonBack, true, Modifiers{})
	m.dispatch(ButtonBack, false, Modifiers{})
	is.True(g.IsOpen())
	m.dispatch(ButtonBack, true, Modifiers{})
	is.True(!g.IsOpen())
	is.Equal(rec.count(), 2) // releases do not touch the gate
}

func TestDispatchAfterUnregisterIgnored(t *testing.T) {
	is := is.New(t)

	g := gate.NewController(gate.ModePTT)
	m, _ := newTestHook(g, newFakeLoop())
	is.NoErr(m.Register("MouseLeft", gate.ModePTT))
	m.Unregister()

	is.True(!m.dispatch(ButtonLeft, true, Modifiers{}))
	is.True(!g.IsOpen())
}
