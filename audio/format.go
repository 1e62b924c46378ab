package audio

import (
	"cmp"
	"slices"

	"micctl/common"
)

type SampleFormat string

const (
	Float32 SampleFormat = "f32"
	Int16   SampleFormat = "i16"
)

// Format is one stream configuration a device accepts.
type Format struct {
	SampleRate   int          `json:"sample_rate"`
	Channels     int          `json:"channels"`
	SampleFormat SampleFormat `json:"sample_format"`
}

func byRateThenChannels(a, b Format) int {
	if c := cmp.Compare(a.SampleRate, b.SampleRate); c != 0 {
		return c
	}
	return cmp.Compare(a.Channels, b.Channels)
}

func floatFormats(formats []Format) []Format {
	var out []Format
	for _, f := range formats {
		if f.SampleFormat == Float32 && f.SampleRate > 0 && f.Channels > 0 {
			out = append(out, f)
		}
	}
	return out
}

// chooseInput returns the highest sample rate float32 format.
func chooseInput(formats []Format) (Format, error) {
	ff := floatFormats(formats)
	if len(ff) == 0 {
		return Format{}, common.Errorf(common.KindAudio, "input device has no float32 format")
	}
	return slices.MaxFunc(ff, byRateThenChannels), nil
}

// chooseOutput prefers the input's exact rate and channel count, then the
// highest sample rate float32 format. Channel counts must end up equal.
func chooseOutput(formats []Format, in Format) (Format, error) {
	ff := floatFormats(formats)
	if len(ff) == 0 {
		return Format{}, common.Errorf(common.KindAudio, "output device has no float32 format")
	}
	out, ok := Format{}, false
	for _, f := range ff {
		if f.SampleRate == in.SampleRate && f.Channels == in.Channels {
			out, ok = f, true
			break
		}
	}
	if !ok {
		out = slices.MaxFunc(ff, byRateThenChannels)
	}
	if out.Channels != in.Channels {
		return Format{}, common.Errorf(common.KindAudio,
			"channel count mismatch: input %d, output %d", in.Channels, out.Channels)
	}
	return out, nil
}
