package audio

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"micctl/common"
)

func TestDeviceIDRoundTrip(t *testing.T) {
	is := is.New(t)

	id := MakeDeviceID(Output, 4, "Speakers #2")
	is.Equal(id, "out#4#Speakers #2")

	idx, name, err := ParseDeviceID(id)
	is.NoErr(err)
	is.Equal(idx, 4)
	is.Equal(name, "Speakers #2")

	_, _, err = ParseDeviceID("in#x#Mic")
	is.True(errors.Is(err, common.ErrInvalidArgument))
}

func TestVirtualCandidate(t *testing.T) {
	is := is.New(t)

	is.True(IsVirtualCandidate("CABLE Input (VB-Audio Virtual Cable)"))
	is.True(IsVirtualCandidate("VoiceMeeter Aux Input"))
	is.True(!IsVirtualCandidate("Realtek High Definition Audio"))
}

func TestRouteValidate(t *testing.T) {
	is := is.New(t)

	r := Route{InputDeviceID: "in#0#Mic"}
	is.True(errors.Is(r.Validate(), common.ErrInvalidArgument))

	r.OutputDeviceID = "out#1#Cable"
	is.NoErr(r.Validate())
}

func TestDetectVirtualMic(t *testing.T) {
	is := is.New(t)

	dir := &fakeDirectory{inputs: []*fakeDevice{newFakeDevice(Input, 0, "Mic")}}
	is.True(!DetectVirtualMic(dir).Ready)

	dir.inputs = append(dir.inputs, newFakeDevice(Input, 1, "CABLE Output (VB-Audio Virtual Cable)"))
	st := DetectVirtualMic(dir)
	is.True(st.Ready)
	is.Equal(st.Backend, "portaudio")
}

func TestChooseOutputFallsBackToHighestRate(t *testing.T) {
	is := is.New(t)

	in := f32(44100, 2)
	out, err := chooseOutput([]Format{f32(48000, 2), f32(96000, 2), f32(48000, 1)}, in)
	is.NoErr(err)
	is.Equal(out, f32(96000, 2))

	out, err = chooseOutput([]Format{f32(96000, 2), f32(44100, 2)}, in)
	is.NoErr(err)
	is.Equal(out, in) // exact match wins over rate
}
