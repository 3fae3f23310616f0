// Package extract turns an output impedance sweep into the apparent output
// resistance of a driver: R(f) = 1 / Re(1/Z(f)).
package extract

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/precond"
)

// Sample is the resistance at one frequency.
type Sample struct {
	Freq       float64 `json:"freq"`
	Resistance float64 `json:"resistance"`
}

// Curve is a resistance sweep in ascending frequency.
type Curve []Sample

// Resistance extracts the parallel-equivalent resistance of each impedance
// sample. A zero impedance gives zero resistance and a purely reactive one
// gives +Inf.
func Resistance(freq []float64, z []complex128) (Curve, error) {
	if len(freq) != len(z) {
		return nil, precond.Errorf("%d frequencies for %d impedance samples", len(freq), len(z))
	}
	curve := make(Curve, len(z))
	for i, zi := range z {
		if cmplx.IsNaN(zi) {
			return nil, errors.Errorf("impedance at %g Hz is NaN", freq[i])
		}
		curve[i] = Sample{Freq: freq[i], Resistance: resistance(zi)}
	}
	return curve, nil
}

func resistance(z complex128) float64 {
	if z == 0 {
		return 0
	}
	g := real(1 / z)
	if g == 0 {
		return math.Inf(1)
	}
	return 1 / g
}

func (c Curve) Freqs() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.Freq
	}
	return out
}

func (c Curve) Values() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.Resistance
	}
	return out
}

// At returns the resistance at the sample nearest to f on a log scale.
func (c Curve) At(f float64) (float64, bool) {
	if len(c) == 0 || f <= 0 {
		return 0, false
	}
	best, dist := 0, math.Inf(1)
	for i, s := range c {
		if d := math.Abs(math.Log(s.Freq / f)); d < dist {
			best, dist = i, d
		}
	}
	return c[best].Resistance, true
}

// SameFrequencies reports whether a and b were sampled at the same points,
// to a relative tolerance.
func SameFrequencies(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol*math.Max(math.Abs(a[i]), math.Abs(b[i])) {
			return false
		}
	}
	return true
}
