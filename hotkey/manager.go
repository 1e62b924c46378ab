package hotkey

import (
	"sync"

	"micctl/gate"
)

// Manager owns both trigger paths and keeps exactly one of them active.
type Manager struct {
	mouse    *MouseHook
	keyboard *Keyboard

	mu      sync.Mutex
	current string
}

func NewManager(mouse *MouseHook, keyboard *Keyboard) *Manager {
	return &Manager{mouse: mouse, keyboard: keyboard}
}

// Apply tears down any active binding and registers accelerator on the path
// it belongs to. On failure nothing stays registered.
func (m *Manager) Apply(accelerator string, mode gate.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keyboard.Unregister()
	m.mouse.Unregister()
	m.current = ""

	var err error
	if IsMouseAccelerator(accelerator) {
		err = m.mouse.Register(accelerator, mode)
	} else {
		err = m.keyboard.Register(accelerator, mode)
	}
	if err != nil {
		return err
	}
	m.current = accelerator
	return nil
}

// Unregister removes whichever binding is active.
func (m *Manager) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keyboard.Unregister()
	m.mouse.Unregister()
	m.current = ""
}

// Current returns the registered accelerator, or "" if none.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
