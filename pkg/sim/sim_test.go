package sim

import (
	"errors"
	"strings"
	"testing"
)

func TestWaveformValidate(t *testing.T) {
	var nilWave *Waveform
	if err := nilWave.Validate(); !errors.Is(err, ErrNoProbe) {
		t.Errorf("nil waveform: %v", err)
	}
	if err := (&Waveform{}).Validate(); !errors.Is(err, ErrNoProbe) {
		t.Errorf("empty waveform: %v", err)
	}
	w := &Waveform{Freq: []float64{1, 2}, V: []complex128{1}}
	if err := w.Validate(); !errors.Is(err, ErrMalformed) {
		t.Errorf("length mismatch: %v", err)
	}
	w = &Waveform{Freq: []float64{2, 1}, V: []complex128{1, 1}}
	if err := w.Validate(); !errors.Is(err, ErrMalformed) {
		t.Errorf("decreasing frequency: %v", err)
	}
	w = &Waveform{Freq: []float64{1, 2}, V: []complex128{1, 1}}
	if err := w.Validate(); err != nil {
		t.Error(err)
	}
}

func TestError(t *testing.T) {
	err := &Error{Backend: "ngspice", WorkDir: "/tmp/x", Err: ErrNoProbe}
	if !errors.Is(err, ErrNoProbe) {
		t.Error("Error does not unwrap")
	}
	if !strings.Contains(err.Error(), "/tmp/x") {
		t.Errorf("message %q lacks work dir", err.Error())
	}
}
