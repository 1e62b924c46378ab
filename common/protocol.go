package common

import (
	"time"

	"github.com/google/uuid"
)

// Event types pushed to UI observers.
const (
	EventGateStateChanged   = "gate_state_changed"
	EventEngineStateChanged = "engine_state_changed"
	EventMessage            = "message"
)

// Commands accepted on /api/command.
const (
	CommandStartEngine = "start_engine"
	CommandStopEngine  = "stop_engine"
	CommandSetGate     = "set_gate"
	CommandToggleGate  = "toggle_gate"
	CommandSetHotkey   = "set_hotkey"
	CommandSaveRoute   = "save_route"

	CommandSetLaunchOnStartup = "set_launch_on_startup"
	CommandSetMinimizeToTray  = "set_minimize_to_tray"
)

// Event is one out-of-band notification frame sent over the websocket.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"` // gate_state_changed, engine_state_changed, message
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// NewEvent stamps a payload with a fresh id.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Time: time.Now().UTC(),
		Data: data,
	}
}

type SetGateArgs struct {
	Open   bool   `json:"open"`
	Source string `json:"source"`
}

type SetHotkeyArgs struct {
	Accelerator string `json:"accelerator"`
	Mode        string `json:"mode"`
}

type SaveRouteArgs struct {
	InputDeviceID        string `json:"input_device_id"`
	BridgeOutputDeviceID string `json:"bridge_output_device_id"`
}

// SetEnabledArgs carries the flag of the boolean settings commands.
type SetEnabledArgs struct {
	Enabled bool `json:"enabled"`
}

// ErrorReply is the body of any failed API call.
type ErrorReply struct {
	Error   string `json:"error"` // error kind
	Message string `json:"message"`
}
