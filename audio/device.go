package audio

import (
	"fmt"
	"strconv"
	"strings"

	"micctl/common"
)

type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

func (d Direction) prefix() string {
	if d == Output {
		return "out"
	}
	return "in"
}

// DeviceInfo describes one endpoint as shown to the user.
type DeviceInfo struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Direction          Direction `json:"direction"`
	IsDefault          bool      `json:"is_default"`
	IsVirtualCandidate bool      `json:"is_virtual_candidate"`
}

type DeviceList struct {
	Inputs  []DeviceInfo `json:"inputs"`
	Outputs []DeviceInfo `json:"outputs"`
}

// Route pairs the physical microphone with the output that feeds the
// virtual microphone.
type Route struct {
	InputDeviceID  string `json:"input_device_id" yaml:"input_device_id"`
	OutputDeviceID string `json:"bridge_output_device_id" yaml:"bridge_output_device_id"`
}

// Validate checks that both ends are set and well formed.
func (r Route) Validate() error {
	if r.InputDeviceID == "" {
		return common.Errorf(common.KindInvalidArgument, "input device is not set")
	}
	if r.OutputDeviceID == "" {
		return common.Errorf(common.KindInvalidArgument, "bridge output device is not set")
	}
	if _, _, err := ParseDeviceID(r.InputDeviceID); err != nil {
		return err
	}
	if _, _, err := ParseDeviceID(r.OutputDeviceID); err != nil {
		return err
	}
	return nil
}

// Stream is an opened device stream driven by its callback.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Device is a resolved endpoint able to report its float32 formats and to
// open callback streams in one direction.
type Device interface {
	Info() DeviceInfo
	Formats() ([]Format, error)
	// Open creates a stream in the given format. process receives the
	// interleaved buffer of each cycle; fault reports stream-level
	// problems and must not block. fault(nil) means the stream recovered.
	Open(f Format, process func([]float32), fault func(error)) (Stream, error)
}

// Directory enumerates and resolves devices.
type Directory interface {
	List() (DeviceList, error)
	Resolve(id string, dir Direction) (Device, error)
}

var virtualHints = []string{"cable", "vb-audio", "virtual", "voicemeeter"}

// IsVirtualCandidate reports whether a device name looks like a virtual
// audio cable.
func IsVirtualCandidate(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range virtualHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// MakeDeviceID builds "in#<index>#<name>" or "out#<index>#<name>".
func MakeDeviceID(dir Direction, index int, name string) string {
	return fmt.Sprintf("%s#%d#%s", dir.prefix(), index, name)
}

// ParseDeviceID splits an id into its enumeration index and device name.
// Names may themselves contain '#'.
func ParseDeviceID(id string) (int, string, error) {
	parts := strings.SplitN(id, "#", 3)
	if len(parts) < 3 {
		return 0, "", common.Errorf(common.KindInvalidArgument, "malformed device id %q", id)
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return 0, "", common.Errorf(common.KindInvalidArgument, "malformed device index in %q", id)
	}
	return idx, parts[2], nil
}

// ResolveIn picks the entry matching id from an enumeration in order: the
// index if its name still matches, else the first entry with that name.
func ResolveIn[T any](id string, items []T, name func(T) string) (T, error) {
	var zero T
	idx, want, err := ParseDeviceID(id)
	if err != nil {
		return zero, err
	}
	if idx < len(items) && name(items[idx]) == want {
		return items[idx], nil
	}
	for _, it := range items {
		if name(it) == want {
			return it, nil
		}
	}
	return zero, common.Errorf(common.KindDeviceNotFound, "%s", want)
}

// VirtualMicStatus reports whether the virtual microphone endpoint exists.
type VirtualMicStatus struct {
	Backend string `json:"backend"`
	Ready   bool   `json:"ready"`
	Detail  string `json:"detail"`
}

var virtualMicHints = []string{
	"windows mic ctrl virtual mic",
	"windowsmicctrl virtual mic",
	"wmc virtual mic",
	"cable output",
}

// DetectVirtualMic looks for a capture endpoint published by a virtual
// microphone driver.
func DetectVirtualMic(dir Directory) VirtualMicStatus {
	list, err := dir.List()
	if err != nil {
		return VirtualMicStatus{
			Backend: "portaudio",
			Detail:  fmt.Sprintf("failed to enumerate capture devices: %v", err),
		}
	}
	for _, in := range list.Inputs {
		lower := strings.ToLower(in.Name)
		for _, h := range virtualMicHints {
			if strings.Contains(lower, h) {
				return VirtualMicStatus{
					Backend: "portaudio",
					Ready:   true,
					Detail:  fmt.Sprintf("virtual microphone endpoint found: %s", in.Name),
				}
			}
		}
	}
	return VirtualMicStatus{
		Backend: "portaudio",
		Detail:  "no virtual microphone endpoint found; install a virtual audio cable driver",
	}
}
