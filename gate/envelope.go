package gate

import "time"

// RampTime is the attack and release time of the gain envelope.
const RampTime = 8 * time.Millisecond

// Gains within rampEpsilon of a bound snap to it, absorbing float32 drift
// when the envelope is advanced one frame at a time.
const rampEpsilon = 1e-4

// Step is the per-frame gain increment for a sample rate.
func Step(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 1
	}
	return 1 / (RampTime.Seconds() * float64(sampleRate))
}

// Ramp advances gain linearly toward 1 (open) or 0 (closed) by frames
// frames and returns the new gain, clamped to [0, 1].
func Ramp(gain float32, open bool, frames int, sampleRate int) float32 {
	return Advance(gain, open, frames, Step(sampleRate))
}

// Advance is Ramp with a precomputed step.
func Advance(gain float32, open bool, frames int, step float64) float32 {
	if frames <= 0 {
		return gain
	}
	g := float64(gain)
	delta := float64(frames) * step
	if open {
		g += delta
		if g >= 1-rampEpsilon {
			g = 1
		}
	} else {
		g -= delta
		if g <= rampEpsilon {
			g = 0
		}
	}
	return float32(g)
}
