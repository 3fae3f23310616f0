// Package sim defines the simulator boundary: a backend runs the AC sweep
// of a testbench and returns the complex probe voltage per frequency.
package sim

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/testbench"
)

var (
	// ErrNoProbe means the backend produced no samples for the probe node.
	ErrNoProbe = errors.New("probe vector missing from simulation output")
	// ErrMalformed means the backend output does not line up.
	ErrMalformed = errors.New("malformed simulation output")
)

// Waveform holds V(probe) at each swept frequency.
type Waveform struct {
	Freq []float64
	V    []complex128
}

func (w *Waveform) Len() int { return len(w.Freq) }

func (w *Waveform) Validate() error {
	if w == nil || len(w.Freq) == 0 {
		return ErrNoProbe
	}
	if len(w.Freq) != len(w.V) {
		return errors.Wrapf(ErrMalformed, "%d frequencies, %d samples", len(w.Freq), len(w.V))
	}
	for i := 1; i < len(w.Freq); i++ {
		if !(w.Freq[i] > w.Freq[i-1]) {
			return errors.Wrapf(ErrMalformed, "frequency %d (%g) not increasing", i, w.Freq[i])
		}
	}
	return nil
}

// Simulator runs one testbench. workDir is private to the call; backends
// may leave decks and logs there.
type Simulator interface {
	Simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*Waveform, error)
}

// Error is a backend failure with the location of its artifacts.
type Error struct {
	Backend string
	WorkDir string
	Err     error
}

func (e *Error) Error() string {
	if e.WorkDir == "" {
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Backend, e.WorkDir, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Func adapts a function to Simulator.
type Func func(ctx context.Context, tb *testbench.Testbench, workDir string) (*Waveform, error)

func (f Func) Simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*Waveform, error) {
	return f(ctx, tb, workDir)
}
