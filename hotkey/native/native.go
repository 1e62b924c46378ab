// Package native registers keyboard accelerators with the operating system
// through golang.design/x/hotkey. Call mainthread.Init from main before use.
package native

import (
	"sync"

	"golang.design/x/hotkey"

	"micctl/common"
	micctlhotkey "micctl/hotkey"
)

type keyHook struct {
	hk     *hotkey.Hotkey
	events chan bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New builds a KeyHook for b. It satisfies micctlhotkey.KeyHookFactory.
func New(b micctlhotkey.KeyBinding) (micctlhotkey.KeyHook, error) {
	key, ok := keyNameToKey(b.Key)
	if !ok {
		return nil, common.Errorf(common.KindHotkey, "key %q has no native code", b.Key)
	}
	return &keyHook{
		hk:     hotkey.New(platformModifiers(b.Modifiers), key),
		events: make(chan bool, 8),
		done:   make(chan struct{}),
	}, nil
}

func (h *keyHook) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.wg.Add(1)
	go h.forward()
	return nil
}

// forward converts keydown and keyup events into pressed flags.
func (h *keyHook) forward() {
	defer h.wg.Done()
	for {
		var pressed bool
		select {
		case <-h.done:
			return
		case <-h.hk.Keydown():
			pressed = true
		case <-h.hk.Keyup():
			pressed = false
		}
		select {
		case h.events <- pressed:
		case <-h.done:
			return
		}
	}
}

func (h *keyHook) Events() <-chan bool {
	return h.events
}

func (h *keyHook) Unregister() error {
	close(h.done)
	h.wg.Wait()
	return h.hk.Unregister()
}
