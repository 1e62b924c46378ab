// Package hotkey turns keyboard accelerators and global mouse bindings into
// gate transitions.
package hotkey

import (
	"strings"

	"micctl/common"
)

// Button is a mouse button usable in a binding.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "MouseLeft"
	case ButtonRight:
		return "MouseRight"
	case ButtonMiddle:
		return "MouseMiddle"
	case ButtonBack:
		return "MouseBack"
	case ButtonForward:
		return "MouseForward"
	default:
		return "Mouse?"
	}
}

// Modifiers is the set of held modifier keys. Bindings match it exactly.
type Modifiers struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// MouseBinding is a parsed "Ctrl+MouseBack" style accelerator.
type MouseBinding struct {
	Modifiers
	Button Button
}

// join renders the held modifiers in canonical order followed by key.
func (m Modifiers) join(key string) string {
	var parts []string
	if m.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if m.Alt {
		parts = append(parts, "Alt")
	}
	if m.Shift {
		parts = append(parts, "Shift")
	}
	if m.Meta {
		parts = append(parts, "Meta")
	}
	return strings.Join(append(parts, key), "+")
}

func (b MouseBinding) String() string {
	return b.Modifiers.join(b.Button.String())
}

func tokens(accelerator string) []string {
	var out []string
	for _, t := range strings.Split(accelerator, "+") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// IsMouseAccelerator reports whether any token names a mouse button.
func IsMouseAccelerator(accelerator string) bool {
	for _, t := range tokens(accelerator) {
		if strings.HasPrefix(strings.ToLower(t), "mouse") {
			return true
		}
	}
	return false
}

// applyModifier sets the flag named by a lowercase token.
func applyModifier(m *Modifiers, lower string) bool {
	switch lower {
	case "ctrl", "control", "commandorcontrol", "cmdorctrl":
		m.Ctrl = true
	case "alt", "option":
		m.Alt = true
	case "shift":
		m.Shift = true
	case "super", "win", "meta", "cmd", "command":
		m.Meta = true
	default:
		return false
	}
	return true
}

var mouseButtons = map[string]Button{
	"mouseleft":    ButtonLeft,
	"mouseright":   ButtonRight,
	"mousemiddle":  ButtonMiddle,
	"mouseback":    ButtonBack,
	"mouseforward": ButtonForward,
}

// ParseMouseBinding parses modifiers plus exactly one Mouse* button token.
func ParseMouseBinding(accelerator string) (MouseBinding, error) {
	var (
		b         MouseBinding
		hasButton bool
	)
	for _, t := range tokens(accelerator) {
		lower := strings.ToLower(t)
		if applyModifier(&b.Modifiers, lower) {
			continue
		}
		btn, ok := mouseButtons[lower]
		if !ok {
			if strings.HasPrefix(lower, "mouse") {
				return MouseBinding{}, common.Errorf(common.KindHotkey,
					"unsupported mouse button %q, use MouseLeft/MouseRight/MouseMiddle/MouseBack/MouseForward", t)
			}
			return MouseBinding{}, common.Errorf(common.KindHotkey, "unsupported accelerator token %q", t)
		}
		if hasButton {
			return MouseBinding{}, common.Errorf(common.KindHotkey, "more than one mouse button: %q", t)
		}
		b.Button = btn
		hasButton = true
	}
	if !hasButton {
		return MouseBinding{}, common.Errorf(common.KindHotkey, "missing Mouse* key in %q", accelerator)
	}
	return b, nil
}
