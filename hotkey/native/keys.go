package native

import "golang.design/x/hotkey"

// keyNameToKey maps a canonical key name to its platform key code.
func keyNameToKey(key string) (hotkey.Key, bool) {
	switch key {
	case "SPACE":
		return hotkey.KeySpace, true
	case "TAB":
		return hotkey.KeyTab, true
	case "ENTER":
		return hotkey.KeyReturn, true
	case "ESC":
		return hotkey.KeyEscape, true
	case "DELETE":
		return hotkey.KeyDelete, true
	case "UP":
		return hotkey.KeyUp, true
	case "DOWN":
		return hotkey.KeyDown, true
	case "LEFT":
		return hotkey.KeyLeft, true
	case "RIGHT":
		return hotkey.KeyRight, true
	case "F1":
		return hotkey.KeyF1, true
	case "F2":
		return hotkey.KeyF2, true
	case "F3":
		return hotkey.KeyF3, true
	case "F4":
		return hotkey.KeyF4, true
	case "F5":
		return hotkey.KeyF5, true
	case "F6":
		return hotkey.KeyF6, true
	case "F7":
		return hotkey.KeyF7, true
	case "F8":
		return hotkey.KeyF8, true
	case "F9":
		return hotkey.KeyF9, true
	case "F10":
		return hotkey.KeyF10, true
	case "F11":
		return hotkey.KeyF11, true
	case "F12":
		return hotkey.KeyF12, true
	case "F13":
		return hotkey.KeyF13, true
	case "F14":
		return hotkey.KeyF14, true
	case "F15":
		return hotkey.KeyF15, true
	case "F16":
		return hotkey.KeyF16, true
	case "F17":
		return hotkey.KeyF17, true
	case "F18":
		return hotkey.KeyF18, true
	case "F19":
		return hotkey.KeyF19, true
	case "F20":
		return hotkey.KeyF20, true
	case "A":
		return hotkey.KeyA, true
	case "B":
		return hotkey.KeyB, true
	case "C":
		return hotkey.KeyC, true
	case "D":
		return hotkey.KeyD, true
	case "E":
		return hotkey.KeyE, true
	case "F":
		return hotkey.KeyF, true
	case "G":
		return hotkey.KeyG, true
	case "H":
		return hotkey.KeyH, true
	case "I":
		return hotkey.KeyI, true
	case "J":
		return hotkey.KeyJ, true
	case "K":
		return hotkey.KeyK, true
	case "L":
		return hotkey.KeyL, true
	case "M":
		return hotkey.KeyM, true
	case "N":
		return hotkey.KeyN, true
	case "O":
		return hotkey.KeyO, true
	case "P":
		return hotkey.KeyP, true
	case "Q":
		return hotkey.KeyQ, true
	case "R":
		return hotkey.KeyR, true
	case "S":
		return hotkey.KeyS, true
	case "T":
		return hotkey.KeyT, true
	case "U":
		return hotkey.KeyU, true
	case "V":
		return hotkey.KeyV, true
	case "W":
		return hotkey.KeyW, true
	case "X":
		return hotkey.KeyX, true
	case "Y":
		return hotkey.KeyY, true
	case "Z":
		return hotkey.KeyZ, true
	case "0":
		return hotkey.Key0, true
	case "1":
		return hotkey.Key1, true
	case "2":
		return hotkey.Key2, true
	case "3":
		return hotkey.Key3, true
	case "4":
		return hotkey.Key4, true
	case "5":
		return hotkey.Key5, true
	case "6":
		return hotkey.Key6, true
	case "7":
		return hotkey.Key7, true
	case "8":
		return hotkey.Key8, true
	case "9":
		return hotkey.Key9, true
	default:
		return 0, false
	}
}
