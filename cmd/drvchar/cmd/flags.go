package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/testbench"
)

// driverFlags selects the driver under test: a generated segmented driver
// or a subckt from a SPICE library.
type driverFlags struct {
	netlist string
	subckt  string

	seg        dut.SegmentedParams
	segments   int
	level      string
	activeHigh bool
}

func (f *driverFlags) register(cmd *cobra.Command) {
	def := dut.DefaultSegmentedParams()
	f.seg = def
	fs := cmd.Flags()

	fs.StringVar(&f.netlist, "netlist", "", "SPICE library holding the driver subckt")
	fs.StringVar(&f.subckt, "subckt", "", "driver subckt name (with --netlist)")

	fs.IntVar(&f.segments, "segments", 0, "pull-up and pull-down segment count (overrides --pu-segments/--pd-segments)")
	fs.IntVar(&f.seg.PullUpSegments, "pu-segments", def.PullUpSegments, "pull-up segments")
	fs.IntVar(&f.seg.PullDownSegments, "pd-segments", def.PullDownSegments, "pull-down segments")
	fs.StringVar(&f.level, "level", def.Level.String(), "generated driver level: switch or mos")
	fs.BoolVar(&f.activeHigh, "active-high", false, "generate an active-high pd_ctl bus instead of pd_ctlb")
	fs.Float64Var(&f.seg.PullUpRes, "pu-res", def.PullUpRes, "pull-up leg resistor (ohm)")
	fs.Float64Var(&f.seg.PullDownRes, "pd-res", def.PullDownRes, "pull-down leg resistor (ohm)")
	fs.Float64Var(&f.seg.LegCap, "leg-cap", def.LegCap, "leg parasitic capacitance (F)")
	fs.Float64Var(&f.seg.PadCap, "pad-cap", def.PadCap, "pad capacitance (F)")
	fs.BoolVar(&f.seg.ESD, "esd", def.ESD, "add ESD clamp diodes")
}

func (f *driverFlags) driver() (dut.Driver, error) {
	if f.netlist != "" {
		if f.subckt == "" {
			return nil, errors.New("--netlist needs --subckt")
		}
		return dut.FromNetlistFile(f.netlist, f.subckt)
	}

	p := f.seg
	if f.segments > 0 {
		p.PullUpSegments, p.PullDownSegments = f.segments, f.segments
	}
	level, err := dut.ParseLevel(f.level)
	if err != nil {
		return nil, err
	}
	p.Level = level
	p.PullDownActiveLow = !f.activeHigh
	return dut.NewSegmented(p)
}

// pvtFlags selects the operating corner and AC sweep.
type pvtFlags struct {
	corner    string
	vdd       float64
	temp      float64
	fstart    float64
	fstop     float64
	ppd       int
	tolerance string
}

func (f *pvtFlags) register(cmd *cobra.Command) {
	ac := testbench.DefaultACConfig()
	fs := cmd.Flags()
	fs.StringVar(&f.corner, "corner", pdk.TT.String(), "process corner: tt, ss, ff, sf, fs")
	fs.Float64Var(&f.vdd, "vdd", 1.8, "supply voltage (V)")
	fs.Float64Var(&f.temp, "temp", 27, "temperature (degC)")
	fs.Float64Var(&f.fstart, "fstart", ac.FStart, "sweep start frequency (Hz)")
	fs.Float64Var(&f.fstop, "fstop", ac.FStop, "sweep stop frequency (Hz)")
	fs.IntVar(&f.ppd, "ppd", ac.PointsPerDecade, "points per decade")
	fs.StringVar(&f.tolerance, "tolerance", ac.Tolerance.String(), "solver tolerance: default, moderate, conservative")
}

func (f *pvtFlags) pvt() (pdk.Pvt, error) {
	corner, err := pdk.ParseCorner(f.corner)
	if err != nil {
		return pdk.Pvt{}, err
	}
	return pdk.Pvt{Corner: corner, Voltage: f.vdd, TempC: f.temp}, nil
}

func (f *pvtFlags) ac() (testbench.ACConfig, error) {
	tol, err := analysis.ParseTolerance(f.tolerance)
	if err != nil {
		return testbench.ACConfig{}, err
	}
	return testbench.ACConfig{FStart: f.fstart, FStop: f.fstop, PointsPerDecade: f.ppd, Tolerance: tol}, nil
}
