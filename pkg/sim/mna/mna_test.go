package mna

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/testbench"
	"github.com/edp1096/drvchar/pkg/thermo"
)

func relErr(got, want float64) float64 {
	return math.Abs(got-want) / math.Abs(want)
}

func TestRunOperatingPoint(t *testing.T) {
	deck, err := netlist.Parse(`* divider
V1 in 0 DC 10
R1 in out 1k
R2 out 0 3k
.op
.end
`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), deck, analysis.Default)
	if err != nil {
		t.Fatal(err)
	}
	if v := res["V(out)"]; len(v) != 1 || relErr(v[0], 7.5) > 1e-9 {
		t.Errorf("V(out) = %v, want 7.5", v)
	}
	if i := res["I(V1)"]; len(i) != 1 || relErr(math.Abs(i[0]), 2.5e-3) > 1e-9 {
		t.Errorf("I(V1) = %v, want 2.5mA", i)
	}
}

func TestRunParallelRC(t *testing.T) {
	deck, err := netlist.Parse(`* parallel rc
Iac 0 out AC 1 0
R1 out 0 1k
C1 out 0 1n
.ac dec 10 1k 1meg
.end
`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), deck, analysis.Conservative)
	if err != nil {
		t.Fatal(err)
	}

	freqs := res["FREQ"]
	if len(freqs) != 31 {
		t.Fatalf("got %d frequency points, want 31", len(freqs))
	}
	for i, f := range freqs {
		z := 1 / complex(1e-3, 2*math.Pi*f*1e-9)
		if e := relErr(res["V(out)_MAG"][i], cmplx.Abs(z)); e > 1e-6 {
			t.Errorf("f=%g: |Z| = %g, want %g", f, res["V(out)_MAG"][i], cmplx.Abs(z))
		}
		phase := cmplx.Phase(z) * 180 / math.Pi
		if math.Abs(res["V(out)_PHASE"][i]-phase) > 1e-4 {
			t.Errorf("f=%g: phase = %g, want %g", f, res["V(out)_PHASE"][i], phase)
		}
	}
}

func TestRunNeedsAnalysis(t *testing.T) {
	deck, err := netlist.Parse("* none\nR1 a 0 1\n.end\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), deck, analysis.Default); err == nil {
		t.Error("deck without analysis accepted")
	}
}

func driverBench(t *testing.T, pdCode int) (*testbench.Testbench, *pdk.Process, dut.SegmentedParams) {
	t.Helper()
	proc, err := pdk.New(pdk.Pvt{Corner: pdk.TT, Voltage: 1.8, TempC: 27})
	if err != nil {
		t.Fatal(err)
	}
	p := dut.DefaultSegmentedParams()
	p.PullUpSegments, p.PullDownSegments = 2, 2
	p.LegCap = 0
	d, err := dut.NewSegmented(p)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := dut.Instantiate(d, proc)
	if err != nil {
		t.Fatal(err)
	}
	pd, err := thermo.CodeToThermometer(pdCode, 2)
	if err != nil {
		t.Fatal(err)
	}
	ac := testbench.ACConfig{FStart: 1e3, FStop: 1e6, PointsPerDecade: 5, Tolerance: analysis.Conservative}
	tb, err := testbench.Assemble(inst, proc, 0, thermo.AllOn(2), pd, ac)
	if err != nil {
		t.Fatal(err)
	}
	return tb, proc, p
}

func TestSimulateSwitchLevelDriver(t *testing.T) {
	for _, code := range []int{1, 2} {
		tb, proc, p := driverBench(t, code)
		wave, err := New().Simulate(context.Background(), tb, "")
		if err != nil {
			t.Fatal(err)
		}
		if wave.Len() != 16 {
			t.Fatalf("got %d points, want 16", wave.Len())
		}

		// With din low each enabled pull-down leg is its resistor in series
		// with two closed switches; everything else is open.
		leg := p.PullDownRes + 2*proc.SwitchOnResistance('n')
		want := leg / float64(code)
		for i, z := range wave.V {
			r := 1 / real(1/z)
			if relErr(r, want) > 1e-5 {
				t.Errorf("code %d f=%g: R = %g, want %g", code, wave.Freq[i], r, want)
			}
		}
		if last := wave.V[len(wave.V)-1]; imag(last) >= 0 {
			t.Errorf("code %d: pad capacitance should give a capacitive output, got %v", code, last)
		}
	}
}

func TestSimulateKeepDeck(t *testing.T) {
	tb, _, _ := driverBench(t, 1)
	dir := filepath.Join(t.TempDir(), "pd_code1_bias0")
	s := &Simulator{KeepDeck: true}
	if _, err := s.Simulate(context.Background(), tb, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, DeckFile)); err != nil {
		t.Error(err)
	}
}

func TestSimulateCanceled(t *testing.T) {
	tb, _, _ := driverBench(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Simulate(ctx, tb, "/tmp/never")
	var simErr *sim.Error
	if !errors.As(err, &simErr) || simErr.Backend != Name {
		t.Fatalf("err = %v, want *sim.Error", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
