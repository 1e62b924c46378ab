//go:build windows

package hotkey

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

// winLoop runs WH_MOUSE_LL on a locked OS thread with its own message loop.
type winLoop struct {
	hook *MouseHook

	tid           atomic.Uint32
	quitRequested atomic.Bool
}

func newPlatformLoop(m *MouseHook) hookLoop {
	return &winLoop{hook: m}
}

func (l *winLoop) run(ready chan<- error) {
	// The thread is never unlocked, so it exits with the goroutine and
	// cannot carry a stray WM_QUIT into another goroutine.
	runtime.LockOSThread()

	var msg MSG
	// Create the thread's message queue before anyone can post to it.
	peekMessage(&msg, WM_USER, WM_USER, PM_NOREMOVE)
	l.tid.Store(windows.GetCurrentThreadId())

	h, err := setWindowsHookEx(WH_MOUSE_LL, l.hook.nativeCallback())
	if err != nil {
		ready <- err
		return
	}
	defer unhookWindowsHookEx(h)

	ready <- nil
	if l.quitRequested.Load() {
		return
	}

	for {
		switch getMessage(&msg) {
		case 0, -1:
			return
		default:
			translateAndDispatch(&msg)
		}
	}
}

func (l *winLoop) quit() {
	l.quitRequested.Store(true)
	if tid := l.tid.Load(); tid != 0 {
		postThreadMessage(tid, WM_QUIT)
	}
}

func (m *MouseHook) nativeCallback() uintptr {
	m.callbackOnce.Do(func() {
		m.callback = windows.NewCallback(m.lowLevelMouseProc)
	})
	return m.callback
}

func (m *MouseHook) lowLevelMouseProc(nCode int, wParam, lParam uintptr) uintptr {
	if int32(nCode) == HC_ACTION {
		if button, pressed, ok := decodeButton(wParam, lParam); ok {
			m.dispatch(button, pressed, liveModifiers())
		}
	}
	return callNextHookEx(nCode, wParam, lParam)
}

func decodeButton(wParam, lParam uintptr) (Button, bool, bool) {
	switch wParam {
	case WM_LBUTTONDOWN:
		return ButtonLeft, true, true
	case WM_LBUTTONUP:
		return ButtonLeft, false, true
	case WM_RBUTTONDOWN:
		return ButtonRight, true, true
	case WM_RBUTTONUP:
		return ButtonRight, false, true
	case WM_MBUTTONDOWN:
		return ButtonMiddle, true, true
	case WM_MBUTTONUP:
		return ButtonMiddle, false, true
	case WM_XBUTTONDOWN, WM_XBUTTONUP:
		info := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		pressed := wParam == WM_XBUTTONDOWN
		switch uint16(info.MouseData >> 16) {
		case XBUTTON1:
			return ButtonBack, pressed, true
		case XBUTTON2:
			return ButtonForward, pressed, true
		}
	}
	return 0, false, false
}

func liveModifiers() Modifiers {
	return Modifiers{
		Ctrl:  isKeyDown(VK_CONTROL),
		Alt:   isKeyDown(VK_MENU),
		Shift: isKeyDown(VK_SHIFT),
		Meta:  isKeyDown(VK_LWIN) || isKeyDown(VK_RWIN),
	}
}
