package ngspice

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/testbench"
	"github.com/edp1096/drvchar/pkg/thermo"
)

func TestParseWrdata(t *testing.T) {
	in := ` frequency        v(dout)
 1.000000e+03  3.400000e+02 -1.000000e-03
 1.000000e+04  3.399000e+02 -1.000000e-02
`
	wave, err := ParseWrdata(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if wave.Len() != 2 || wave.Freq[1] != 1e4 || wave.V[0] != complex(340, -1e-3) {
		t.Errorf("wave = %+v", wave)
	}

	wave, err = ParseWrdata(strings.NewReader("1e3 0 5 -1\n2e3 0 4 -2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if wave.V[1] != complex(4, -2) {
		t.Errorf("complex scale row parsed as %v", wave.V[1])
	}
}

func TestParseWrdataErrors(t *testing.T) {
	if _, err := ParseWrdata(strings.NewReader("frequency v(dout)\n")); !errors.Is(err, sim.ErrNoProbe) {
		t.Errorf("header only: %v", err)
	}
	if _, err := ParseWrdata(strings.NewReader("1 2\n")); !errors.Is(err, sim.ErrMalformed) {
		t.Errorf("two columns: %v", err)
	}
	if _, err := ParseWrdata(strings.NewReader("1 2 3\nnan? x y\n")); !errors.Is(err, sim.ErrMalformed) {
		t.Errorf("trailing garbage: %v", err)
	}
}

func bench(t *testing.T) *testbench.Testbench {
	t.Helper()
	proc, err := pdk.New(pdk.Pvt{Corner: pdk.TT, Voltage: 1.8, TempC: 27})
	if err != nil {
		t.Fatal(err)
	}
	p := dut.DefaultSegmentedParams()
	p.PullUpSegments, p.PullDownSegments = 2, 2
	d, err := dut.NewSegmented(p)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := dut.Instantiate(d, proc)
	if err != nil {
		t.Fatal(err)
	}
	tb, err := testbench.Assemble(inst, proc, 0, thermo.AllOn(2), []bool{true, false}, testbench.DefaultACConfig())
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func TestWriteDeck(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDeck(&buf, bench(t)); err != nil {
		t.Fatal(err)
	}
	deck := buf.String()
	for _, want := range []string{"pu_ctl_0", ".control", "wrdata ac.dat v(dout)", ".ac dec 40 1000 5e+10", ".endc\n.end\n"} {
		if !strings.Contains(deck, want) {
			t.Errorf("deck lacks %q", want)
		}
	}
	if strings.Contains(deck, "[") {
		t.Error("deck still has bus brackets")
	}
}

func TestSimulate(t *testing.T) {
	s := New("")
	if !s.Available() {
		t.Skip("ngspice not installed")
	}
	wave, err := s.Simulate(context.Background(), bench(t), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := 1 / real(1/wave.V[0])
	if math.IsNaN(r) || r <= 0 {
		t.Errorf("R = %g", r)
	}
}

func TestSimulateMissingBinary(t *testing.T) {
	s := New("/nonexistent/ngspice")
	_, err := s.Simulate(context.Background(), bench(t), t.TempDir())
	var simErr *sim.Error
	if !errors.As(err, &simErr) || simErr.Backend != Name {
		t.Errorf("err = %v, want *sim.Error", err)
	}
}
