//go:build linux

package native

import (
	"golang.design/x/hotkey"

	micctlhotkey "micctl/hotkey"
)

func platformModifiers(m micctlhotkey.Modifiers) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m.Alt {
		mods = append(mods, hotkey.Mod1)
	}
	if m.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if m.Meta {
		mods = append(mods, hotkey.Mod4)
	}
	return mods
}
