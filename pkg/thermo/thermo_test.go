package thermo

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/precond"
)

func TestCodeToThermometer(t *testing.T) {
	const (
		T = true
		F = false
	)
	for _, tc := range []struct {
		code, bits int
		want       []bool
	}{
		{0, 4, []bool{F, F, F, F}},
		{2, 4, []bool{T, T, F, F}},
		{4, 4, []bool{T, T, T, T}},
		{1, 1, []bool{T}},
		{0, 0, []bool{}},
	} {
		got, err := CodeToThermometer(tc.code, tc.bits)
		if err != nil {
			t.Fatalf("CodeToThermometer(%d, %d): %v", tc.code, tc.bits, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("CodeToThermometer(%d, %d) = %v, want %v", tc.code, tc.bits, got, tc.want)
		}
	}
}

func TestCodeToThermometerMonotonic(t *testing.T) {
	for bits := 1; bits <= 16; bits++ {
		for c := 0; c < bits; c++ {
			lo, err := CodeToThermometer(c, bits)
			if err != nil {
				t.Fatal(err)
			}
			hi, err := CodeToThermometer(c+1, bits)
			if err != nil {
				t.Fatal(err)
			}
			for i := range lo {
				switch {
				case i == c:
					if lo[i] || !hi[i] {
						t.Fatalf("bits=%d code=%d: position %d did not flip false->true", bits, c, i)
					}
				case lo[i] != hi[i]:
					t.Fatalf("bits=%d code=%d: unexpected change at position %d", bits, c, i)
				}
			}
			if Count(hi) != c+1 {
				t.Fatalf("bits=%d code=%d: %d legs enabled", bits, c+1, Count(hi))
			}
		}
	}
}

func TestCodeToThermometerOutOfRange(t *testing.T) {
	for _, tc := range []struct{ code, bits int }{
		{5, 4},
		{1, 0},
		{-1, 4},
	} {
		_, err := CodeToThermometer(tc.code, tc.bits)
		if err == nil {
			t.Fatalf("CodeToThermometer(%d, %d): expected error", tc.code, tc.bits)
		}
		if !errors.Is(err, precond.ErrViolation) {
			t.Errorf("CodeToThermometer(%d, %d): error %v does not wrap ErrViolation", tc.code, tc.bits, err)
		}
	}
}

func TestAllOn(t *testing.T) {
	m := AllOn(3)
	if len(m) != 3 || Count(m) != 3 {
		t.Fatalf("AllOn(3) = %v", m)
	}
}
