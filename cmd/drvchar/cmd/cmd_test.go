package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestThermoCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"thermo", "3", "5"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "11100" {
		t.Errorf("thermo 3 5 = %q, want 11100", got)
	}
}

func TestThermoCommandRange(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"thermo", "6", "5"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for code above width")
	}
}

func TestPrintResultsOP(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, map[string][]float64{
		"V(out)": {7.5},
		"V(in)":  {10},
		"I(V1)":  {-2.5e-3},
	})

	s := out.String()
	for _, want := range []string{"V(in)", "V(out)", "I(V1)", "Branch currents:"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "V(in)") > strings.Index(s, "V(out)") {
		t.Error("node voltages not sorted")
	}
}

func TestPrintResultsAC(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, map[string][]float64{
		"FREQ":         {1e3, 1e6},
		"V(out)_MAG":   {1, 0.5},
		"V(out)_PHASE": {0, -45},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[2], "V(out)=") {
		t.Errorf("row missing probe: %q", lines[2])
	}
}
