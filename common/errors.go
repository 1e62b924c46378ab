package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the wire.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindDeviceNotFound
	KindAudio
	KindConfig
	KindHotkey
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindAudio:
		return "audio"
	case KindConfig:
		return "config"
	case KindHotkey:
		return "hotkey"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every exposed operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrDeviceNotFound  = &Error{Kind: KindDeviceNotFound}
	ErrAudio           = &Error{Kind: KindAudio}
	ErrConfig          = &Error{Kind: KindConfig}
	ErrHotkey          = &Error{Kind: KindHotkey}
	ErrSystem          = &Error{Kind: KindSystem}
)

func (e *Error) Error() string {
	prefix := e.Kind.String() + " error"
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	case e.Msg != "":
		return prefix + ": " + e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Errorf builds a typed error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindSystem for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}
