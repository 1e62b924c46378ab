package hotkey

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"micctl/common"
)

func TestParseMouseBinding(t *testing.T) {
	is := is.New(t)

	b, err := ParseMouseBinding("Ctrl+MouseRight")
	is.NoErr(err)
	is.Equal(b, MouseBinding{Modifiers: Modifiers{Ctrl: true}, Button: ButtonRight})

	b, err = ParseMouseBinding("MouseLeft")
	is.NoErr(err)
	is.Equal(b, MouseBinding{Button: ButtonLeft})

	b, err = ParseMouseBinding(" control + ALT + shift + win + mouseforward ")
	is.NoErr(err)
	is.Equal(b, MouseBinding{Modifiers: Modifiers{Ctrl: true, Alt: true, Shift: true, Meta: true}, Button: ButtonForward})
	is.Equal(b.String(), "Ctrl+Alt+Shift+Meta+MouseForward")
}

func TestParseMouseBindingErrors(t *testing.T) {
	is := is.New(t)

	_, err := ParseMouseBinding("MouseFoo")
	is.True(errors.Is(err, common.ErrHotkey))
	is.True(strings.Contains(err.Error(), "MouseFoo")) // names the token

	_, err = ParseMouseBinding("Ctrl+Shift")
	is.True(errors.Is(err, common.ErrHotkey))
	is.True(strings.Contains(err.Error(), "missing Mouse* key"))

	_, err = ParseMouseBinding("Ctrl+Q+MouseLeft")
	is.True(errors.Is(err, common.ErrHotkey))
	is.True(strings.Contains(err.Error(), `"Q"`))

	_, err = ParseMouseBinding("MouseLeft+MouseRight")
	is.True(errors.Is(err, common.ErrHotkey))
}

func TestIsMouseAccelerator(t *testing.T) {
	is := is.New(t)

	is.True(IsMouseAccelerator("Ctrl+MouseBack"))
	is.True(IsMouseAccelerator("mousefoo"))
	is.True(!IsMouseAccelerator("Ctrl+Shift+V"))
}

func TestParseKeyBinding(t *testing.T) {
	is := is.New(t)

	b, err := ParseKeyBinding("Ctrl+Shift+V")
	is.NoErr(err)
	is.Equal(b, KeyBinding{Modifiers: Modifiers{Ctrl: true, Shift: true}, Key: "V"})
	is.Equal(b.String(), "Ctrl+Shift+V")

	b, err = ParseKeyBinding("CommandOrControl+Escape")
	is.NoErr(err)
	is.Equal(b.Key, "ESC")
	is.True(b.Ctrl)

	b, err = ParseKeyBinding("Alt+KeyQ")
	is.NoErr(err)
	is.Equal(b.Key, "Q")

	b, err = ParseKeyBinding("f13")
	is.NoErr(err)
	is.Equal(b.Key, "F13")

	_, err = ParseKeyBinding("Ctrl+Shift")
	is.True(errors.Is(err, common.ErrHotkey))

	_, err = ParseKeyBinding("Ctrl+A+B")
	is.True(errors.Is(err, common.ErrHotkey))

	_, err = ParseKeyBinding("Ctrl+PrintScreen")
	is.True(errors.Is(err, common.ErrHotkey))
}
