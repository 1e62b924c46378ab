package hotkey

import (
	"context"
	"sync"
	"time"

	"micctl/common"
	"micctl/common/logger"
	"micctl/common/task"
	"micctl/gate"
)

const DefaultInstallTimeout = 3 * time.Second

// hookLoop is one installation of the global mouse hook. run installs it,
// reports the outcome on ready, then pumps native messages until quit.
type hookLoop interface {
	run(ready chan<- error)
	quit()
}

// hookContext is what the native callback matches events against.
type hookContext struct {
	binding MouseBinding
	mode    gate.Mode
}

// MouseHook captures a system-wide mouse binding on a dedicated OS thread.
// At most one binding is live at a time.
type MouseHook struct {
	gate           *gate.Controller
	notify         func(gate.State)
	installTimeout time.Duration
	newLoop        func(*MouseHook) hookLoop

	// Native callback pointer, created once per MouseHook.
	callbackOnce sync.Once
	callback     uintptr

	mu     sync.Mutex
	worker *task.Handle

	ctxMu  sync.RWMutex
	active *hookContext
}

// NewMouseHook creates an idle hook. notify, if set, receives the gate
// snapshot after every matched event.
func NewMouseHook(g *gate.Controller, notify func(gate.State)) *MouseHook {
	return &MouseHook{
		gate:           g,
		notify:         notify,
		installTimeout: DefaultInstallTimeout,
		newLoop:        newPlatformLoop,
	}
}

// Register replaces any live binding with accelerator. It returns once the
// hook is installed, or after the worker has been joined on failure.
func (m *MouseHook) Register(accelerator string, mode gate.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked()

	binding, err := ParseMouseBinding(accelerator)
	if err != nil {
		return err
	}
	m.setContext(&hookContext{binding: binding, mode: mode})

	loop := m.newLoop(m)
	ready := make(chan error, 1)
	w := task.Start(func(ctx context.Context) {
		stop := context.AfterFunc(ctx, loop.quit)
		defer stop()
		loop.run(ready)
	})

	timer := time.NewTimer(m.installTimeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err != nil {
			w.Stop()
			m.setContext(nil)
			return common.Wrap(common.KindHotkey, err, "failed to install mouse hook")
		}
		m.worker = w
		logger.Info("Mouse binding %s registered (%s)", binding, mode)
		return nil
	case <-timer.C:
		w.Stop()
		m.setContext(nil)
		return common.Errorf(common.KindSystem, "mouse hook installation timed out")
	}
}

// Unregister removes the hook and joins its thread. Safe to call when
// nothing is registered.
func (m *MouseHook) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *MouseHook) unregisterLocked() {
	if m.worker != nil {
		m.worker.Stop()
		m.worker = nil
		logger.Debug("Mouse binding unregistered")
	}
	m.setContext(nil)
}

// Active returns the live binding, if any.
func (m *MouseHook) Active() (MouseBinding, bool) {
	m.ctxMu.RLock()
	defer m.ctxMu.RUnlock()
	if m.active == nil {
		return MouseBinding{}, false
	}
	return m.active.binding, true
}

func (m *MouseHook) setContext(c *hookContext) {
	m.ctxMu.Lock()
	m.active = c
	m.ctxMu.Unlock()
}

// dispatch handles one decoded button event from the native callback and
// reports whether it matched the binding.
func (m *MouseHook) dispatch(button Button, pressed bool, mods Modifiers) bool {
	m.ctxMu.RLock()
	c := m.active
	m.ctxMu.RUnlock()

	if c == nil || c.binding.Button != button || c.binding.Modifiers != mods {
		return false
	}
	if applyTransition(m.gate, c.mode, pressed, SourceMouse) && m.notify != nil {
		m.notify(m.gate.Snapshot())
	}
	return true
}
