// Package testbench wraps an elaborated driver in the small-signal output
// impedance bench: supply and input sources, resistive terminations on
// every control bit and a unit AC current injected into the output.
package testbench

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/precond"
)

const (
	// Probe is the node whose voltage, under 1 A of injected current, is
	// the output impedance.
	Probe = "dout"
	// TerminationRes ties each control bit to its selected rail.
	TerminationRes = 100.0

	NodeVdd = "vdd"
	NodeDin = "din"
	NodeGnd = "0"

	instanceName = "Xdut"
)

// ACConfig is the frequency sweep and solver accuracy of a bench.
type ACConfig struct {
	FStart          float64
	FStop           float64
	PointsPerDecade int
	Tolerance       analysis.Tolerance
}

// DefaultACConfig sweeps 1 kHz to 50 GHz at 40 points per decade.
func DefaultACConfig() ACConfig {
	return ACConfig{
		FStart:          1e3,
		FStop:           50e9,
		PointsPerDecade: 40,
		Tolerance:       analysis.Conservative,
	}
}

func (c ACConfig) Validate() error {
	if !(c.FStart > 0) || math.IsInf(c.FStart, 0) || !(c.FStop > c.FStart) || math.IsInf(c.FStop, 0) {
		return precond.Errorf("frequency range %g..%g: need 0 < fstart < fstop", c.FStart, c.FStop)
	}
	if c.PointsPerDecade < 1 {
		return precond.Errorf("points per decade %d must be at least 1", c.PointsPerDecade)
	}
	return nil
}

// Frequencies lists the points the bench sweeps.
func (c ACConfig) Frequencies() ([]float64, error) {
	return analysis.FrequencyPoints("DEC", c.PointsPerDecade, c.FStart, c.FStop)
}

// Testbench is a complete deck for one control setting and input bias.
type Testbench struct {
	Deck         *netlist.NetlistData
	Probe        string
	Vin          float64
	Pvt          pdk.Pvt
	AC           ACConfig
	PullUpMask   []bool
	PullDownMask []bool
}

// Assemble builds the bench around inst. Each pull-up bit is tied high when
// its mask entry is set and low otherwise. Pull-down bits follow the same
// rule when active high; active-low bits are tied low when set.
func Assemble(inst *dut.Instance, proc *pdk.Process, vin float64, puMask, pdMask []bool, ac ACConfig) (*Testbench, error) {
	if inst == nil || proc == nil {
		return nil, errors.New("testbench needs a driver instance and a process")
	}
	ports := inst.Ports
	if len(puMask) != ports.NumPullUp() {
		return nil, precond.Errorf("pull-up mask has %d bits, driver has %d", len(puMask), ports.NumPullUp())
	}
	if len(pdMask) != ports.NumPullDown() {
		return nil, precond.Errorf("pull-down mask has %d bits, driver has %d", len(pdMask), ports.NumPullDown())
	}
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	vdd := proc.Pvt.Voltage
	if math.IsNaN(vin) {
		return nil, precond.Errorf("input bias is NaN")
	}

	deck := netlist.New(fmt.Sprintf("%s output impedance, vin=%s", inst.Top.Name, formatFloat(vin)))
	deck.Merge(inst.Library)
	for k, m := range proc.Models {
		if _, ok := deck.Models[k]; !ok {
			deck.Models[k] = m
		}
	}
	deck.Temp = proc.Pvt.TempC

	conn := make([]string, len(ports.Order))
	for i, port := range ports.Order {
		switch port {
		case dut.PortDin:
			conn[i] = NodeDin
		case dut.PortDout:
			conn[i] = Probe
		case dut.PortVdd:
			conn[i] = NodeVdd
		case dut.PortVss:
			conn[i] = NodeGnd
		default:
			conn[i] = port
		}
	}
	deck.Elements = append(deck.Elements,
		netlist.Element{Type: "X", Name: instanceName, Nodes: conn, Params: map[string]string{"subckt": inst.Top.Name}},
		source("V", "Vvdd", NodeVdd, NodeGnd, vdd, false),
		source("V", "Vdin", NodeDin, NodeGnd, vin, false),
	)

	for i, bit := range ports.PullUp {
		deck.Elements = append(deck.Elements, termination(fmt.Sprintf("Rpu_ctl%d", i), bit, puMask[i]))
	}
	for i, bit := range ports.PullDown {
		high := pdMask[i]
		if ports.PullDownActiveLow {
			high = !high
		}
		deck.Elements = append(deck.Elements, termination(fmt.Sprintf("Rpd_ctl%d", i), bit, high))
	}

	// SPICE current sources push current from n+ through the source to
	// n-, so this one injects into the probe.
	deck.Elements = append(deck.Elements, source("I", "Iac", NodeGnd, Probe, 0, true))

	reltol, abstol, vntol, _ := ac.Tolerance.Settings()
	deck.Options["reltol"] = formatFloat(reltol)
	deck.Options["abstol"] = formatFloat(abstol)
	deck.Options["vntol"] = formatFloat(vntol)

	deck.Analysis = netlist.AnalysisAC
	deck.ACParam = netlist.ACParam{Sweep: "DEC", Points: ac.PointsPerDecade, FStart: ac.FStart, FStop: ac.FStop}

	return &Testbench{
		Deck:         deck,
		Probe:        Probe,
		Vin:          vin,
		Pvt:          proc.Pvt,
		AC:           ac,
		PullUpMask:   append([]bool(nil), puMask...),
		PullDownMask: append([]bool(nil), pdMask...),
	}, nil
}

func termination(name, bit string, high bool) netlist.Element {
	rail := NodeGnd
	if high {
		rail = NodeVdd
	}
	return netlist.Element{Type: "R", Name: name, Nodes: []string{bit, rail}, Value: TerminationRes, Params: map[string]string{}}
}

func source(typ, name, n1, n2 string, dc float64, ac bool) netlist.Element {
	e := netlist.Element{Type: typ, Name: name, Nodes: []string{n1, n2}, Value: dc, Params: map[string]string{}}
	if ac {
		e.Params["acmag"] = "1"
		e.Params["acphase"] = "0"
	}
	return e
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
