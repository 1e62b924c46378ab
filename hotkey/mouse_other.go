//go:build !windows

package hotkey

import "errors"

var errMouseUnsupported = errors.New("mouse bindings are only supported on Windows")

type unsupportedLoop struct{}

func newPlatformLoop(*MouseHook) hookLoop {
	return unsupportedLoop{}
}

func (unsupportedLoop) run(ready chan<- error) {
	ready <- errMouseUnsupported
}

func (unsupportedLoop) quit() {}
