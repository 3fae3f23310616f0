package testbench

import (
	"bytes"
	"errors"
	"testing"

	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/precond"
)

func setup(t *testing.T, activeLow bool) (*dut.Instance, *pdk.Process) {
	t.Helper()
	proc, err := pdk.New(pdk.Pvt{Corner: pdk.TT, Voltage: 1.2, TempC: 85})
	if err != nil {
		t.Fatal(err)
	}
	p := dut.DefaultSegmentedParams()
	p.PullUpSegments, p.PullDownSegments = 2, 3
	p.PullDownActiveLow = activeLow
	d, err := dut.NewSegmented(p)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := dut.Instantiate(d, proc)
	if err != nil {
		t.Fatal(err)
	}
	return inst, proc
}

func element(t *testing.T, tb *Testbench, name string) netlist.Element {
	t.Helper()
	for _, e := range tb.Deck.Elements {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("no element %s", name)
	return netlist.Element{}
}

func TestAssembleTerminations(t *testing.T) {
	inst, proc := setup(t, true)
	tb, err := Assemble(inst, proc, 0, []bool{true, false}, []bool{true, true, false}, DefaultACConfig())
	if err != nil {
		t.Fatal(err)
	}

	rails := map[string]string{
		"Rpu_ctl0": NodeVdd, // enabled pull-up
		"Rpu_ctl1": NodeGnd,
		"Rpd_ctl0": NodeGnd, // enabled, active low
		"Rpd_ctl1": NodeGnd,
		"Rpd_ctl2": NodeVdd,
	}
	for name, rail := range rails {
		e := element(t, tb, name)
		if e.Nodes[1] != rail || e.Value != TerminationRes {
			t.Errorf("%s = %v %g, want rail %s", name, e.Nodes, e.Value, rail)
		}
	}
	if got := element(t, tb, "Rpd_ctl2").Nodes[0]; got != "pd_ctlb[2]" {
		t.Errorf("Rpd_ctl2 terminates %s", got)
	}

	iac := element(t, tb, "Iac")
	if iac.Nodes[0] != NodeGnd || iac.Nodes[1] != Probe || iac.Params["acmag"] != "1" {
		t.Errorf("Iac = %+v", iac)
	}
	if v := element(t, tb, "Vvdd").Value; v != 1.2 {
		t.Errorf("Vvdd = %g", v)
	}
	if tb.Deck.Temp != 85 {
		t.Errorf("deck temp = %g", tb.Deck.Temp)
	}
	if tb.Deck.ACParam.Points != 40 || tb.Deck.ACParam.Sweep != "DEC" {
		t.Errorf("ac card = %+v", tb.Deck.ACParam)
	}
	if _, ok := tb.Deck.Models[pdk.NMOS]; !ok {
		t.Error("process models missing from deck")
	}

	x := element(t, tb, "Xdut")
	if x.Nodes[0] != NodeDin || x.Nodes[1] != Probe || x.Nodes[3] != NodeGnd {
		t.Errorf("Xdut nodes = %v", x.Nodes)
	}
}

func TestAssembleActiveHigh(t *testing.T) {
	inst, proc := setup(t, false)
	tb, err := Assemble(inst, proc, 1.2, []bool{false, false}, []bool{true, false, false}, DefaultACConfig())
	if err != nil {
		t.Fatal(err)
	}
	if e := element(t, tb, "Rpd_ctl0"); e.Nodes[0] != "pd_ctl[0]" || e.Nodes[1] != NodeVdd {
		t.Errorf("Rpd_ctl0 = %v", e.Nodes)
	}
	if e := element(t, tb, "Rpd_ctl1"); e.Nodes[1] != NodeGnd {
		t.Errorf("Rpd_ctl1 = %v", e.Nodes)
	}
	if v := element(t, tb, "Vdin").Value; v != 1.2 {
		t.Errorf("Vdin = %g", v)
	}
}

func TestAssemblePreconditions(t *testing.T) {
	inst, proc := setup(t, true)
	ac := DefaultACConfig()

	_, err := Assemble(inst, proc, 0, []bool{true}, []bool{true, true, true}, ac)
	if !errors.Is(err, precond.ErrViolation) {
		t.Errorf("short pull-up mask: err = %v", err)
	}
	_, err = Assemble(inst, proc, 0, []bool{true, true}, []bool{true}, ac)
	if !errors.Is(err, precond.ErrViolation) {
		t.Errorf("short pull-down mask: err = %v", err)
	}

	ac.FStop = ac.FStart
	_, err = Assemble(inst, proc, 0, []bool{true, true}, []bool{true, true, true}, ac)
	if !errors.Is(err, precond.ErrViolation) {
		t.Errorf("empty frequency range: err = %v", err)
	}
}

func TestAssembleWritesParsableDeck(t *testing.T) {
	inst, proc := setup(t, true)
	tb, err := Assemble(inst, proc, 0.6, []bool{true, true}, []bool{false, false, false}, DefaultACConfig())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := netlist.Write(&buf, tb.Deck, netlist.WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	back, err := netlist.Parse(buf.String())
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, buf.String())
	}
	if len(back.Elements) != len(tb.Deck.Elements) {
		t.Errorf("re-parsed %d elements, wrote %d", len(back.Elements), len(tb.Deck.Elements))
	}
	flat, err := back.Flatten()
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) <= len(back.Elements) {
		t.Error("driver subckt was not expanded")
	}
}

func TestFrequencies(t *testing.T) {
	ac := ACConfig{FStart: 1e3, FStop: 1e5, PointsPerDecade: 10}
	f, err := ac.Frequencies()
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != 21 || f[0] != 1e3 {
		t.Errorf("got %d points starting at %g", len(f), f[0])
	}
}
