package hotkey

import (
	"context"
	"sync"

	"micctl/common"
	"micctl/common/logger"
	"micctl/common/task"
	"micctl/gate"
)

// KeyHook is one system-wide keyboard accelerator. Events delivers true on
// key down and false on key up while registered.
type KeyHook interface {
	Register() error
	Unregister() error
	Events() <-chan bool
}

// KeyHookFactory builds the OS hook for a parsed binding.
type KeyHookFactory func(KeyBinding) (KeyHook, error)

// Keyboard drives the gate from a global keyboard accelerator.
type Keyboard struct {
	gate    *gate.Controller
	notify  func(gate.State)
	factory KeyHookFactory

	mu     sync.Mutex
	hook   KeyHook
	worker *task.Handle
}

// NewKeyboard creates an idle keyboard path. A nil factory makes every
// registration fail with a Hotkey error.
func NewKeyboard(g *gate.Controller, notify func(gate.State), factory KeyHookFactory) *Keyboard {
	return &Keyboard{gate: g, notify: notify, factory: factory}
}

// Register replaces the current accelerator.
func (k *Keyboard) Register(accelerator string, mode gate.Mode) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.unregisterLocked()

	b, err := ParseKeyBinding(accelerator)
	if err != nil {
		return err
	}
	if k.factory == nil {
		return common.Errorf(common.KindHotkey, "keyboard accelerators are not available in this build")
	}
	h, err := k.factory(b)
	if err != nil {
		return err
	}
	if err := h.Register(); err != nil {
		return common.Wrap(common.KindHotkey, err, "failed to register "+accelerator)
	}

	k.hook = h
	k.worker = task.Start(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case pressed := <-h.Events():
				if applyTransition(k.gate, mode, pressed, SourceKeyboard) && k.notify != nil {
					k.notify(k.gate.Snapshot())
				}
			}
		}
	})
	logger.Info("Keyboard accelerator %s registered (%s)", accelerator, mode)
	return nil
}

// Unregister releases the accelerator. Safe to call when nothing is registered.
func (k *Keyboard) Unregister() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unregisterLocked()
}

func (k *Keyboard) unregisterLocked() {
	k.worker.Stop()
	k.worker = nil
	if k.hook != nil {
		if err := k.hook.Unregister(); err != nil {
			logger.Warn("Failed to unregister accelerator: %v", err)
		}
		k.hook = nil
	}
}
