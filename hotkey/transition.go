package hotkey

import "micctl/gate"

// Sources stamped on the gate by each trigger path.
const (
	SourceKeyboard = "hotkey"
	SourceMouse    = "mouse_hotkey"
)

// applyTransition maps a press or release onto the gate for mode and reports
// whether the gate was written.
//
// Hybrid currently behaves exactly like Toggle.
func applyTransition(g *gate.Controller, mode gate.Mode, pressed bool, source string) bool {
	switch mode {
	case gate.ModePTT:
		g.SetOpen(pressed, source)
		return true
	case gate.ModeToggle, gate.ModeHybrid:
		if pressed {
			g.Toggle(source)
			return true
		}
	}
	return false
}
