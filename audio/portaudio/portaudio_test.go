package portaudio

import (
	"testing"

	"github.com/matryer/is"
)

func TestXrunReporterClearsAfterCleanCycle(t *testing.T) {
	is := is.New(t)

	var got []error
	x := xrunReporter{fault: func(err error) { got = append(got, err) }, err: errOutputUnderflow}

	x.report(false)
	is.Equal(len(got), 0) // clean stream reports nothing

	x.report(true)
	x.report(true)
	is.Equal(len(got), 1) // one report per glitch burst
	is.Equal(got[0], errOutputUnderflow)

	x.report(false)
	x.report(false)
	is.Equal(len(got), 2)
	is.Equal(got[1], nil) // recovery clears the fault

	x.report(true)
	is.Equal(len(got), 3)
	is.Equal(got[2], errOutputUnderflow)
}
