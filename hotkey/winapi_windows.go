//go:build windows

package hotkey

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Win32 declarations used by the low-level mouse hook.
var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPeekMessage         = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	WH_MOUSE_LL = 14
	HC_ACTION   = 0

	WM_QUIT        = 0x0012
	WM_USER        = 0x0400
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C

	XBUTTON1 = 0x0001
	XBUTTON2 = 0x0002

	PM_NOREMOVE = 0x0000

	VK_SHIFT   = 0x10
	VK_CONTROL = 0x11
	VK_MENU    = 0x12
	VK_LWIN    = 0x5B
	VK_RWIN    = 0x5C
)

type POINT struct {
	X, Y int32
}

type MSG struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      POINT
}

type MSLLHOOKSTRUCT struct {
	Pt          POINT
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

func setWindowsHookEx(idHook int, fn uintptr) (uintptr, error) {
	h, _, err := procSetWindowsHookEx.Call(uintptr(idHook), fn, 0, 0)
	if h == 0 {
		return 0, err
	}
	return h, nil
}

func unhookWindowsHookEx(h uintptr) {
	procUnhookWindowsHookEx.Call(h)
}

func callNextHookEx(nCode int, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// getMessage returns 0 on WM_QUIT and -1 on error.
func getMessage(msg *MSG) int32 {
	ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	return int32(ret)
}

func peekMessage(msg *MSG, min, max uint32, remove uint32) {
	procPeekMessage.Call(uintptr(unsafe.Pointer(msg)), 0, uintptr(min), uintptr(max), uintptr(remove))
}

func translateAndDispatch(msg *MSG) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
	procDispatchMessage.Call(uintptr(unsafe.Pointer(msg)))
}

func postThreadMessage(tid uint32, msg uint32) {
	procPostThreadMessage.Call(uintptr(tid), uintptr(msg), 0, 0)
}

// isKeyDown returns true if the given virtual key is down.
func isKeyDown(vk uint16) bool {
	ret, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return (ret & 0x8000) != 0
}
