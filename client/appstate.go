package main

import (
	"sync"
	"time"

	"micctl/audio"
	"micctl/common"
	"micctl/common/logger"
	"micctl/config"
	"micctl/engine"
	"micctl/gate"
	"micctl/hotkey"
)

// StateChange is one notification delivered to observers.
type StateChange struct {
	Type string // gate_state_changed, engine_state_changed, message
	Data any
}

// StateObserver is called synchronously on the goroutine that caused the
// change and must not block.
type StateObserver func(StateChange)

// AppMessage is one line of the activity log shown in the UIs.
type AppMessage struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Type      string `json:"type"` // info, error, success, gate
}

const maxMessages = 100

// AppState ties the gate, the engine, the hotkey paths and the persisted
// configuration together behind the operations the UIs call.
type AppState struct {
	mutex sync.RWMutex

	cfg     *config.Config
	cfgPath string

	devices audio.Directory
	gate    *gate.Controller
	engine  *engine.Supervisor
	hotkeys *hotkey.Manager

	// launch registers or removes the OS entry that starts the app at logon.
	launch func(enabled bool) error

	messages  []AppMessage
	observers []StateObserver
}

// NewAppState builds the application around cfg. An empty cfgPath keeps
// configuration changes in memory only.
func NewAppState(cfg *config.Config, cfgPath string, devices audio.Directory, keys hotkey.KeyHookFactory, opts ...engine.Option) *AppState {
	as := &AppState{
		cfg:     cfg,
		cfgPath: cfgPath,
		devices: devices,
		gate:    gate.NewController(cfg.Hotkey.Mode),
	}
	as.launch = func(enabled bool) error { return registerLaunch(cfgPath, enabled) }
	opts = append([]engine.Option{engine.WithOnChange(as.engineChanged)}, opts...)
	as.engine = engine.New(devices, as.gate, opts...)
	as.hotkeys = hotkey.NewManager(
		hotkey.NewMouseHook(as.gate, as.gateChanged),
		hotkey.NewKeyboard(as.gate, as.gateChanged, keys),
	)
	return as
}

// AddObserver adds a function that will be called when state changes.
func (as *AppState) AddObserver(observer StateObserver) {
	as.mutex.Lock()
	defer as.mutex.Unlock()
	as.observers = append(as.observers, observer)
}

func (as *AppState) notifyObservers(changeType string, data any) {
	as.mutex.RLock()
	observers := make([]StateObserver, len(as.observers))
	copy(observers, as.observers)
	as.mutex.RUnlock()

	change := StateChange{Type: changeType, Data: data}
	for _, observer := range observers {
		observer(change)
	}
}

func (as *AppState) gateChanged(st gate.State) {
	as.notifyObservers(common.EventGateStateChanged, st)
}

func (as *AppState) engineChanged(st audio.RuntimeStatus) {
	if st.EngineState == audio.EngineError && st.LastError != nil {
		as.AddMessage("Engine error: "+*st.LastError, "error")
	}
	as.notifyObservers(common.EventEngineStateChanged, st)
}

// === ENGINE ===

// StartEngine brings the bridge up on the configured route.
func (as *AppState) StartEngine() error {
	route := as.Config().Route
	if err := as.engine.Start(route); err != nil {
		return err
	}
	as.AddMessage("Engine running", "success")
	return nil
}

// StopEngine tears the bridge down. It is a no-op when idle.
func (as *AppState) StopEngine() {
	if !as.engine.Running() {
		return
	}
	as.engine.Stop()
	as.AddMessage("Engine stopped", "info")
}

// EngineRunning reports whether a bridge is up.
func (as *AppState) EngineRunning() bool {
	return as.engine.Running()
}

// RuntimeStatus returns the engine status together with a fresh gate
// snapshot.
func (as *AppState) RuntimeStatus() audio.RuntimeStatus {
	return as.engine.Status()
}

// === GATE ===

// SetGate forces the gate open or closed and returns the new state.
func (as *AppState) SetGate(open bool, source string) gate.State {
	if source == "" {
		source = "ui"
	}
	as.gate.SetOpen(open, source)
	st := as.gate.Snapshot()
	as.gateChanged(st)
	return st
}

// ToggleGate flips the gate and returns the new state.
func (as *AppState) ToggleGate(source string) gate.State {
	if source == "" {
		source = "ui"
	}
	as.gate.Toggle(source)
	st := as.gate.Snapshot()
	as.gateChanged(st)
	return st
}

// GateState returns the current gate snapshot.
func (as *AppState) GateState() gate.State {
	return as.gate.Snapshot()
}

// === HOTKEY ===

// RegisterHotkey binds accelerator in the given mode and persists the
// choice. On failure the previous binding is gone and the config is left
// untouched.
func (as *AppState) RegisterHotkey(accelerator string, mode gate.Mode) error {
	if err := as.hotkeys.Apply(accelerator, mode); err != nil {
		as.AddMessage("Hotkey "+accelerator+" rejected: "+err.Error(), "error")
		return err
	}
	as.gate.SetMode(mode)

	as.mutex.Lock()
	as.cfg.Hotkey = config.Hotkey{Accelerator: accelerator, Mode: mode}
	as.mutex.Unlock()

	as.AddMessage("Hotkey "+accelerator+" ("+string(mode)+") active", "success")
	as.gateChanged(as.gate.Snapshot())
	return as.saveConfig()
}

// RegisterConfiguredHotkey binds the accelerator stored in the config.
func (as *AppState) RegisterConfiguredHotkey() error {
	hk := as.Config().Hotkey
	return as.RegisterHotkey(hk.Accelerator, hk.Mode)
}

// UnregisterHotkey removes the active binding.
func (as *AppState) UnregisterHotkey() {
	as.hotkeys.Unregister()
	as.AddMessage("Hotkey released", "info")
}

// CurrentHotkey returns the registered accelerator, or "" if none.
func (as *AppState) CurrentHotkey() string {
	return as.hotkeys.Current()
}

// === DEVICES & CONFIG ===

// ListDevices enumerates every input and output device.
func (as *AppState) ListDevices() (audio.DeviceList, error) {
	return as.devices.List()
}

// VirtualMicStatus reports whether the virtual microphone endpoint exists.
func (as *AppState) VirtualMicStatus() audio.VirtualMicStatus {
	return audio.DetectVirtualMic(as.devices)
}

// SaveRoute validates and persists the route. A running engine keeps its
// current devices until it is restarted.
func (as *AppState) SaveRoute(route audio.Route) error {
	if err := route.Validate(); err != nil {
		return err
	}
	as.mutex.Lock()
	as.cfg.Route = route
	as.mutex.Unlock()

	if as.engine.Running() {
		logger.Info("Route saved; restart the engine to use it")
	}
	return as.saveConfig()
}

// SetLaunchOnStartup registers or removes the logon entry and persists the
// choice. The setting is left untouched when the OS refuses.
func (as *AppState) SetLaunchOnStartup(enabled bool) error {
	if err := as.launch(enabled); err != nil {
		if common.KindOf(err) != common.KindSystem {
			err = common.Wrap(common.KindSystem, err, "launch on startup")
		}
		as.AddMessage("Launch on startup failed: "+err.Error(), "error")
		return err
	}
	as.mutex.Lock()
	as.cfg.LaunchOnStartup = enabled
	as.mutex.Unlock()

	logger.Info("Launch on startup set to %t", enabled)
	return as.saveConfig()
}

// ApplyLaunchOnStartup re-registers the logon entry when the configuration
// asks for it, so a moved executable is picked up.
func (as *AppState) ApplyLaunchOnStartup() error {
	if !as.Config().LaunchOnStartup {
		return nil
	}
	return as.launch(true)
}

func (as *AppState) SetMinimizeToTray(enabled bool) error {
	as.mutex.Lock()
	as.cfg.MinimizeToTray = enabled
	as.mutex.Unlock()

	logger.Info("Minimize to tray set to %t", enabled)
	return as.saveConfig()
}

// ValidateRoute checks that both devices of the configured route exist.
func (as *AppState) ValidateRoute() error {
	route := as.Config().Route
	if err := route.Validate(); err != nil {
		return err
	}
	if _, err := as.devices.Resolve(route.InputDeviceID, audio.Input); err != nil {
		return err
	}
	_, err := as.devices.Resolve(route.OutputDeviceID, audio.Output)
	return err
}

// Config returns a copy of the current configuration.
func (as *AppState) Config() config.Config {
	as.mutex.RLock()
	defer as.mutex.RUnlock()
	return *as.cfg
}

func (as *AppState) saveConfig() error {
	if as.cfgPath == "" {
		return nil
	}
	cfg := as.Config()
	if err := cfg.Save(as.cfgPath); err != nil {
		logger.Error("Saving config: %v", err)
		return err
	}
	return nil
}

// === MESSAGES ===

// AddMessage appends to the activity log and notifies observers.
func (as *AppState) AddMessage(message, msgType string) {
	msg := AppMessage{
		Timestamp: time.Now().Format("15:04:05"),
		Message:   message,
		Type:      msgType,
	}

	as.mutex.Lock()
	as.messages = append(as.messages, msg)
	if len(as.messages) > maxMessages {
		as.messages = as.messages[len(as.messages)-maxMessages:]
	}
	as.mutex.Unlock()

	as.notifyObservers(common.EventMessage, msg)
}

// Messages returns a copy of the activity log.
func (as *AppState) Messages() []AppMessage {
	as.mutex.RLock()
	defer as.mutex.RUnlock()
	return append([]AppMessage(nil), as.messages...)
}

// Shutdown releases the hotkey and stops the engine.
func (as *AppState) Shutdown() {
	as.hotkeys.Unregister()
	as.engine.Stop()
}
