package util

import (
	"math"
	"testing"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{42.5, "ohm", "42.500 ohm"},
		{1500, "ohm", "1.500 kohm"},
		{2.2e6, "ohm", "2.200 Mohm"},
		{1e9, "ohm", "1.000 Gohm"},
		{0.0025, "V", "2.500 mV"},
		{-3e-6, "A", "-3.000 uA"},
		{0, "V", "0.000 V"},
	}
	for _, tt := range tests {
		if got := FormatValueFactor(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatValueFactor(%g, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := map[float64]string{
		50e9: " 50.000 GHz",
		1e6:  "  1.000 MHz",
		1e3:  "  1.000 kHz",
		10:   " 10.000 Hz ",
	}
	for f, want := range tests {
		if got := FormatFrequency(f); got != want {
			t.Errorf("FormatFrequency(%g) = %q, want %q", f, got, want)
		}
	}
}

func TestFormatResistance(t *testing.T) {
	if got := FormatResistance(math.Inf(1)); got != "open" {
		t.Errorf("FormatResistance(+Inf) = %q", got)
	}
	if got := FormatResistance(170); got != "170.000 ohm" {
		t.Errorf("FormatResistance(170) = %q", got)
	}
}
