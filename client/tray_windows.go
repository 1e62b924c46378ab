//go:build windows

package main

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"micctl/audio"
	"micctl/common"
	"micctl/common/logger"
)

const (
	trayIconID = 1

	menuOpenPanel = 1001
	menuExit      = 1002
	menuToggleMic = 1003
	menuEngine    = 1004
)

var (
	wndProcOnce sync.Once
	wndProcPtr  uintptr
	activeTray  atomic.Pointer[Tray]
)

// Tray is the notification-area icon with its hidden message window.
type Tray struct {
	state  *AppState
	url    string
	onExit func()

	hwnd uintptr
	done chan struct{}
}

// NewTray creates a tray icon that opens url and calls onExit when the
// user picks Exit.
func NewTray(state *AppState, url string, onExit func()) *Tray {
	return &Tray{state: state, url: url, onExit: onExit, done: make(chan struct{})}
}

// Start creates the hidden window and the icon on a dedicated OS thread and
// returns once the icon is visible.
func (t *Tray) Start() error {
	if !activeTray.CompareAndSwap(nil, t) {
		return common.Errorf(common.KindSystem, "a tray icon is already running")
	}
	wndProcOnce.Do(func() {
		wndProcPtr = windows.NewCallback(trayWindowProc)
	})

	ready := make(chan error, 1)
	go t.run(ready)
	if err := <-ready; err != nil {
		activeTray.Store(nil)
		return err
	}

	t.state.AddObserver(func(change StateChange) {
		if change.Type == common.EventGateStateChanged {
			t.update()
		}
	})
	return nil
}

// Stop removes the icon and waits for the message loop to end.
func (t *Tray) Stop() {
	if activeTray.Load() != t {
		return
	}
	postMessage.Call(t.hwnd, WM_CLOSE, 0, 0)
	<-t.done
	activeTray.Store(nil)
}

func (t *Tray) run(ready chan<- error) {
	// The window and its messages belong to this thread.
	runtime.LockOSThread()
	defer close(t.done)

	if err := t.createWindow(); err != nil {
		ready <- err
		return
	}
	if err := t.addIcon(); err != nil {
		destroyWindow.Call(t.hwnd)
		ready <- err
		return
	}
	ready <- nil
	logger.Info("System tray icon created")

	var msg MSG
	for {
		ret, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		translateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		dispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
	}
	logger.Debug("Tray message loop ended")
}

func (t *Tray) createWindow() error {
	hInstance, _, _ := getModuleHandle.Call(0)
	className, _ := windows.UTF16PtrFromString("MicctlTrayWindow")

	wc := WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(WNDCLASSEX{})),
		LpfnWndProc:   wndProcPtr,
		HInstance:     hInstance,
		LpszClassName: className,
	}
	// Registration fails harmlessly when the class survives a previous tray.
	registerClassEx.Call(uintptr(unsafe.Pointer(&wc)))

	hwnd, _, err := createWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0,
		0,
		0, 0, 0, 0,
		0,
		0,
		hInstance,
		0,
	)
	if hwnd == 0 {
		return common.Wrap(common.KindSystem, err, "failed to create tray window")
	}
	t.hwnd = hwnd
	return nil
}

func (t *Tray) icon(open bool) uintptr {
	id := uintptr(IDI_ERROR)
	if open {
		id = IDI_INFORMATION
	}
	h, _, _ := loadIcon.Call(0, id)
	return h
}

func (t *Tray) tooltip(open bool) string {
	if open {
		return "micctl - microphone open"
	}
	return "micctl - microphone closed"
}

func (t *Tray) addIcon() error {
	open := t.state.GateState().IsOpen
	nid := NOTIFYICONDATA{
		CbSize:           uint32(unsafe.Sizeof(NOTIFYICONDATA{})),
		Hwnd:             t.hwnd,
		UID:              trayIconID,
		UFlags:           NIF_MESSAGE | NIF_ICON | NIF_TIP,
		UCallbackMessage: WM_TRAYICON,
		HIcon:            t.icon(open),
	}
	copy(nid.SzTip[:], windows.StringToUTF16(t.tooltip(open)))

	if ret, _, err := shellNotifyIcon.Call(NIM_ADD, uintptr(unsafe.Pointer(&nid))); ret == 0 {
		return common.Wrap(common.KindSystem, err, "failed to create tray icon")
	}
	return nil
}

// update refreshes icon and tooltip from the gate state.
func (t *Tray) update() {
	open := t.state.GateState().IsOpen
	nid := NOTIFYICONDATA{
		CbSize: uint32(unsafe.Sizeof(NOTIFYICONDATA{})),
		Hwnd:   t.hwnd,
		UID:    trayIconID,
		UFlags: NIF_ICON | NIF_TIP,
		HIcon:  t.icon(open),
	}
	copy(nid.SzTip[:], windows.StringToUTF16(t.tooltip(open)))
	shellNotifyIcon.Call(NIM_MODIFY, uintptr(unsafe.Pointer(&nid)))
}

func (t *Tray) removeIcon() {
	nid := NOTIFYICONDATA{
		CbSize: uint32(unsafe.Sizeof(NOTIFYICONDATA{})),
		Hwnd:   t.hwnd,
		UID:    trayIconID,
	}
	if ret, _, _ := shellNotifyIcon.Call(NIM_DELETE, uintptr(unsafe.Pointer(&nid))); ret == 0 {
		logger.Warn("Failed to remove tray icon")
	}
}

type menuItem struct {
	text string
	id   uintptr
}

func (t *Tray) menuItems() []menuItem {
	st := t.state.RuntimeStatus()

	mic := "Microphone: closed"
	toggle := "Open microphone"
	if st.GateState.IsOpen {
		mic = "Microphone: open"
		toggle = "Close microphone"
	}
	engine := "Start engine"
	if st.EngineState == audio.EngineRunning {
		engine = "Stop engine"
	}

	return []menuItem{
		{"Open control panel", menuOpenPanel},
		{"", 0},
		{mic, 0},
		{"Engine: " + string(st.EngineState), 0},
		{"", 0},
		{toggle, menuToggleMic},
		{engine, menuEngine},
		{"", 0},
		{"Exit micctl", menuExit},
	}
}

func (t *Tray) showMenu() {
	hMenu, _, _ := createPopupMenu.Call()
	if hMenu == 0 {
		logger.Error("Failed to create popup menu")
		return
	}
	defer destroyMenu.Call(hMenu)

	for _, item := range t.menuItems() {
		if item.text == "" {
			appendMenu.Call(hMenu, MF_SEPARATOR, 0, 0)
			continue
		}
		flags := uintptr(MF_STRING)
		if item.id == 0 {
			flags = MF_GRAYED
		}
		text, _ := windows.UTF16PtrFromString(item.text)
		appendMenu.Call(hMenu, flags, item.id, uintptr(unsafe.Pointer(text)))
	}

	var pt POINT
	getCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	setForegroundWindow.Call(t.hwnd)
	cmd, _, _ := trackPopupMenu.Call(hMenu, TPM_RIGHTBUTTON|TPM_RETURNCMD, uintptr(pt.X), uintptr(pt.Y), 0, t.hwnd, 0)
	postMessage.Call(t.hwnd, WM_NULL, 0, 0)

	t.handleMenu(cmd)
}

func (t *Tray) handleMenu(cmd uintptr) {
	switch cmd {
	case menuOpenPanel:
		logger.Info("Tray menu: opening control panel")
		t.openPanel()
	case menuToggleMic:
		t.state.ToggleGate("tray")
	case menuEngine:
		// Engine start can block for seconds; keep the message loop free.
		go func() {
			if t.state.EngineRunning() {
				t.state.StopEngine()
				return
			}
			if err := t.state.StartEngine(); err != nil {
				logger.Error("Tray menu: engine start failed: %v", err)
			}
		}()
	case menuExit:
		logger.Info("Exit requested from system tray")
		t.state.AddMessage("micctl shutting down...", "info")
		if t.onExit != nil {
			go t.onExit()
		}
	}
}

func (t *Tray) openPanel() {
	if err := openBrowser(t.url); err != nil {
		logger.Error("Failed to open control panel: %v", err)
		t.state.AddMessage("Failed to open control panel", "error")
		return
	}
	t.state.AddMessage("Control panel opened", "info")
}

func trayWindowProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	t := activeTray.Load()
	if t != nil && hwnd == t.hwnd {
		switch msg {
		case WM_TRAYICON:
			switch lParam {
			case WM_RBUTTONUP:
				t.showMenu()
			case WM_LBUTTONUP:
				t.openPanel()
			}
			return 0
		case WM_CLOSE:
			t.removeIcon()
			destroyWindow.Call(hwnd)
			return 0
		case WM_DESTROY:
			postQuitMessage.Call(0)
			return 0
		}
	}
	ret, _, _ := defWindowProc.Call(hwnd, msg, wParam, lParam)
	return ret
}
