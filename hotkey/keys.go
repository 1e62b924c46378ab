package hotkey

import (
	"strings"

	"micctl/common"
)

// Key names accepted in keyboard accelerators, after alias folding.
var keyNames = map[string]bool{
	"SPACE":  true,
	"TAB":    true,
	"ENTER":  true,
	"ESC":    true,
	"DELETE": true,
	"UP":     true,
	"DOWN":   true,
	"LEFT":   true,
	"RIGHT":  true,
	"F1":     true,
	"F2":     true,
	"F3":     true,
	"F4":     true,
	"F5":     true,
	"F6":     true,
	"F7":     true,
	"F8":     true,
	"F9":     true,
	"F10":    true,
	"F11":    true,
	"F12":    true,
	"F13":    true,
	"F14":    true,
	"F15":    true,
	"F16":    true,
	"F17":    true,
	"F18":    true,
	"F19":    true,
	"F20":    true,
	"A":      true,
	"B":      true,
	"C":      true,
	"D":      true,
	"E":      true,
	"F":      true,
	"G":      true,
	"H":      true,
	"I":      true,
	"J":      true,
	"K":      true,
	"L":      true,
	"M":      true,
	"N":      true,
	"O":      true,
	"P":      true,
	"Q":      true,
	"R":      true,
	"S":      true,
	"T":      true,
	"U":      true,
	"V":      true,
	"W":      true,
	"X":      true,
	"Y":      true,
	"Z":      true,
	"0":      true,
	"1":      true,
	"2":      true,
	"3":      true,
	"4":      true,
	"5":      true,
	"6":      true,
	"7":      true,
	"8":      true,
	"9":      true,
}

var keyAliases = map[string]string{
	"RETURN":     "ENTER",
	"ESCAPE":     "ESC",
	"DEL":        "DELETE",
	"ARROWUP":    "UP",
	"ARROWDOWN":  "DOWN",
	"ARROWLEFT":  "LEFT",
	"ARROWRIGHT": "RIGHT",
}

// normalizeKey folds a key token to its canonical upper-case name.
func normalizeKey(t string) (string, bool) {
	k := strings.ToUpper(t)
	if a, ok := keyAliases[k]; ok {
		k = a
	}
	switch {
	case len(k) == 4 && strings.HasPrefix(k, "KEY"):
		k = k[3:]
	case len(k) == 6 && strings.HasPrefix(k, "DIGIT"):
		k = k[5:]
	}
	return k, keyNames[k]
}

// KeyBinding is a parsed keyboard accelerator such as "Ctrl+Shift+V".
type KeyBinding struct {
	Modifiers
	Key string
}

func (b KeyBinding) String() string {
	return b.Modifiers.join(b.Key)
}

// ParseKeyBinding parses modifiers plus exactly one key token.
func ParseKeyBinding(accelerator string) (KeyBinding, error) {
	var b KeyBinding
	for _, t := range tokens(accelerator) {
		if applyModifier(&b.Modifiers, strings.ToLower(t)) {
			continue
		}
		if b.Key != "" {
			return KeyBinding{}, common.Errorf(common.KindHotkey, "more than one key in %q", accelerator)
		}
		k, ok := normalizeKey(t)
		if !ok {
			return KeyBinding{}, common.Errorf(common.KindHotkey, "unsupported key %q", t)
		}
		b.Key = k
	}
	if b.Key == "" {
		return KeyBinding{}, common.Errorf(common.KindHotkey, "missing key in %q", accelerator)
	}
	return b, nil
}
