// Package thermo converts leg counts into thermometer-coded enable masks.
package thermo

import "github.com/edp1096/drvchar/pkg/precond"

// CodeToThermometer returns a mask of length bits whose first code entries
// are true. code must lie in [0, bits].
func CodeToThermometer(code, bits int) ([]bool, error) {
	if bits < 0 {
		return nil, precond.Errorf("thermometer width %d is negative", bits)
	}
	if code < 0 || code > bits {
		return nil, precond.Errorf("thermometer code %d out of range [0, %d]", code, bits)
	}

	mask := make([]bool, bits)
	for i := 0; i < code; i++ {
		mask[i] = true
	}
	return mask, nil
}

// AllOn is the mask with every leg enabled.
func AllOn(bits int) []bool {
	mask := make([]bool, bits)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// Count returns the number of enabled legs in mask.
func Count(mask []bool) int {
	n := 0
	for _, on := range mask {
		if on {
			n++
		}
	}
	return n
}
