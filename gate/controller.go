// Package gate holds the authoritative open/closed microphone gate and the
// gain envelope applied across its transitions.
package gate

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"micctl/common"
)

// Mode selects how trigger presses map onto the gate.
type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
	ModeHybrid Mode = "hybrid"
)

// ParseMode accepts the wire names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePTT:
		return ModePTT, nil
	case ModeToggle:
		return ModeToggle, nil
	case ModeHybrid:
		return ModeHybrid, nil
	default:
		return "", common.Errorf(common.KindInvalidArgument, "unknown gate mode %q", s)
	}
}

// State is an immutable snapshot of the gate.
type State struct {
	IsOpen     bool      `json:"is_open"`
	Mode       Mode      `json:"mode"`
	LastSource string    `json:"last_source"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Controller is the process-wide gate.
//
// Writers are serialized by mu and publish a fresh State through an atomic
// pointer, so IsOpen and Snapshot never block and always observe the same
// write.
type Controller struct {
	mu    sync.Mutex
	state atomic.Pointer[State]
	now   func() time.Time
}

// NewController creates a closed gate in the given mode.
func NewController(mode Mode) *Controller {
	c := &Controller{now: time.Now}
	c.state.Store(&State{
		IsOpen:     false,
		Mode:       mode,
		LastSource: "system",
		ChangedAt:  c.now().UTC(),
	})
	return c
}

// SetMode replaces the mode and stamps the change with source "mode".
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.state.Load()
	next.Mode = mode
	next.LastSource = "mode"
	next.ChangedAt = c.now().UTC()
	c.state.Store(&next)
}

// SetOpen opens or closes the gate on behalf of source.
func (c *Controller) SetOpen(open bool, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setOpenLocked(open, source)
}

// Toggle inverts the gate and returns the new value.
func (c *Controller) Toggle(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	open := !c.state.Load().IsOpen
	c.setOpenLocked(open, source)
	return open
}

func (c *Controller) setOpenLocked(open bool, source string) {
	next := *c.state.Load()
	next.IsOpen = open
	next.LastSource = source
	next.ChangedAt = c.now().UTC()
	c.state.Store(&next)
}

// IsOpen is safe to call from a real-time audio callback.
func (c *Controller) IsOpen() bool {
	return c.state.Load().IsOpen
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.state.Load().Mode
}

// Snapshot returns a copy of the full state.
func (c *Controller) Snapshot() State {
	return *c.state.Load()
}
