package dut

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
)

type Level int

const (
	// SwitchLevel models each segment as ideal switches in series with the
	// leg resistor.
	SwitchLevel Level = iota
	// MOSLevel drives level-1 output transistors from switch-level NAND
	// and NOR pre-drivers.
	MOSLevel
)

func (l Level) String() string {
	if l == MOSLevel {
		return "mos"
	}
	return "switch"
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "switch", "sw":
		return SwitchLevel, nil
	case "mos":
		return MOSLevel, nil
	}
	return SwitchLevel, errors.Errorf("unknown driver level %q", s)
}

// SegmentedParams sizes a segmented push-pull driver.
type SegmentedParams struct {
	Name              string
	Level             Level
	PullUpSegments    int
	PullDownSegments  int
	PullDownActiveLow bool

	PullUpRes   float64 // series resistor per pull-up leg (ohm)
	PullDownRes float64 // series resistor per pull-down leg (ohm)
	LegCap      float64 // parasitic at each leg's inner node (F)
	PadCap      float64 // dout to vss (F)
	ESD         bool    // diode clamps from dout to both rails

	NMOSWidth float64 // per segment, MOS level only
	PMOSWidth float64
	Length    float64
}

func DefaultSegmentedParams() SegmentedParams {
	return SegmentedParams{
		Name:              "seg_driver",
		Level:             SwitchLevel,
		PullUpSegments:    8,
		PullDownSegments:  8,
		PullDownActiveLow: true,
		PullUpRes:         300,
		PullDownRes:       300,
		LegCap:            2e-15,
		PadCap:            200e-15,
		NMOSWidth:         4e-6,
		PMOSWidth:         10e-6,
		Length:            150e-9,
	}
}

func (p SegmentedParams) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("driver name is empty")
	case p.PullUpSegments < 1 || p.PullDownSegments < 1:
		return errors.Errorf("segment counts %d/%d must be at least 1", p.PullUpSegments, p.PullDownSegments)
	case p.PullUpRes <= 0 || p.PullDownRes <= 0:
		return errors.New("leg resistors must be positive")
	case p.LegCap < 0 || p.PadCap < 0:
		return errors.New("capacitances must not be negative")
	case p.Level == MOSLevel && (p.NMOSWidth <= 0 || p.PMOSWidth <= 0 || p.Length <= 0):
		return errors.New("mos level needs positive device geometry")
	}
	return nil
}

// Segmented generates a segmented driver netlist.
type Segmented struct {
	Params SegmentedParams
}

func NewSegmented(p SegmentedParams) (*Segmented, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "segmented driver")
	}
	return &Segmented{Params: p}, nil
}

func (s *Segmented) Subckt() string { return s.Params.Name }

func (s *Segmented) Elaborate(proc *pdk.Process) (*netlist.NetlistData, error) {
	p := s.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if proc == nil {
		return nil, errors.New("no process")
	}

	pdBus := BusPullDownLow
	if !p.PullDownActiveLow {
		pdBus = BusPullDownHigh
	}

	ports := []string{PortDin, PortDout, PortVdd, PortVss}
	for i := 0; i < p.PullUpSegments; i++ {
		ports = append(ports, netlist.BusBit(BusPullUp, i))
	}
	for i := 0; i < p.PullDownSegments; i++ {
		ports = append(ports, netlist.BusBit(pdBus, i))
	}

	b := &builder{}
	for i := 0; i < p.PullUpSegments; i++ {
		ctl := netlist.BusBit(BusPullUp, i)
		if p.Level == MOSLevel {
			b.mosPullUp(i, ctl, p)
		} else {
			b.switchPullUp(i, ctl, p)
		}
	}
	for i := 0; i < p.PullDownSegments; i++ {
		ctl := netlist.BusBit(pdBus, i)
		if p.Level == MOSLevel {
			b.mosPullDown(i, ctl, p)
		} else {
			b.switchPullDown(i, ctl, p)
		}
	}

	if p.PadCap > 0 {
		b.capacitor("Cpad", PortDout, PortVss, p.PadCap)
	}
	if p.ESD {
		b.diode("Desd_p", PortDout, PortVdd, pdk.ESD)
		b.diode("Desd_n", PortVss, PortDout, pdk.ESD)
	}

	lib := netlist.New(p.Name)
	lib.Subckts[lowerName(p.Name)] = &netlist.Subckt{Name: p.Name, Ports: ports, Elements: b.elems}
	return lib, nil
}

// Switch level. A segment conducts only when both its enable and the data
// input select it; active-low controls swap the control nodes.

func (b *builder) switchPullUp(i int, ctl string, p SegmentedParams) {
	a, m := fmt.Sprintf("pu_a%d", i), fmt.Sprintf("pu_b%d", i)
	b.sw(fmt.Sprintf("Spu_en%d", i), PortVdd, a, ctl, PortVss, pdk.SwitchModel('p', true))
	b.sw(fmt.Sprintf("Spu_d%d", i), a, m, PortDin, PortVss, pdk.SwitchModel('p', true))
	b.resistor(fmt.Sprintf("Rpu%d", i), m, PortDout, p.PullUpRes)
	if p.LegCap > 0 {
		b.capacitor(fmt.Sprintf("Cpu%d", i), m, PortVss, p.LegCap)
	}
}

func (b *builder) switchPullDown(i int, ctl string, p SegmentedParams) {
	m, a := fmt.Sprintf("pd_b%d", i), fmt.Sprintf("pd_a%d", i)
	b.resistor(fmt.Sprintf("Rpd%d", i), PortDout, m, p.PullDownRes)
	if p.LegCap > 0 {
		b.capacitor(fmt.Sprintf("Cpd%d", i), m, PortVss, p.LegCap)
	}
	b.sw(fmt.Sprintf("Spd_d%d", i), m, a, PortVss, PortDin, pdk.SwitchModel('n', false))
	if p.PullDownActiveLow {
		b.sw(fmt.Sprintf("Spd_en%d", i), a, PortVss, PortVss, ctl, pdk.SwitchModel('n', false))
	} else {
		b.sw(fmt.Sprintf("Spd_en%d", i), a, PortVss, ctl, PortVss, pdk.SwitchModel('n', true))
	}
}

// MOS level. The pull-up PMOS gate is NAND(din, pu_ctl); the pull-down
// NMOS gate is NOR(din, enable_b).

func (b *builder) mosPullUp(i int, ctl string, p SegmentedParams) {
	g, n, d := fmt.Sprintf("pu_g%d", i), fmt.Sprintf("pu_n%d", i), fmt.Sprintf("pu_b%d", i)

	b.sw(fmt.Sprintf("Spu_na%d", i), g, n, PortDin, PortVss, pdk.SwitchModel('n', true))
	b.sw(fmt.Sprintf("Spu_nb%d", i), n, PortVss, ctl, PortVss, pdk.SwitchModel('n', true))
	b.sw(fmt.Sprintf("Spu_pa%d", i), PortVdd, g, PortVss, PortDin, pdk.SwitchModel('p', false))
	b.sw(fmt.Sprintf("Spu_pb%d", i), PortVdd, g, PortVss, ctl, pdk.SwitchModel('p', false))

	b.mos(fmt.Sprintf("Mpu%d", i), d, g, PortVdd, PortVdd, pdk.PMOS, p.PMOSWidth, p.Length)
	b.resistor(fmt.Sprintf("Rpu%d", i), d, PortDout, p.PullUpRes)
	if p.LegCap > 0 {
		b.capacitor(fmt.Sprintf("Cpu%d", i), d, PortVss, p.LegCap)
	}
}

func (b *builder) mosPullDown(i int, ctl string, p SegmentedParams) {
	g, n, d := fmt.Sprintf("pd_g%d", i), fmt.Sprintf("pd_n%d", i), fmt.Sprintf("pd_b%d", i)

	// Enabled means pd_ctlb low, or pd_ctl high.
	enP, enN := [2]string{PortVss, ctl}, [2]string{ctl, PortVss}
	enPModel, enNModel := pdk.SwitchModel('p', false), pdk.SwitchModel('n', true)
	if !p.PullDownActiveLow {
		enP, enN = [2]string{ctl, PortVss}, [2]string{PortVss, ctl}
		enPModel, enNModel = pdk.SwitchModel('p', true), pdk.SwitchModel('n', false)
	}

	b.sw(fmt.Sprintf("Spd_pa%d", i), PortVdd, n, PortVss, PortDin, pdk.SwitchModel('p', false))
	b.sw(fmt.Sprintf("Spd_pb%d", i), n, g, enP[0], enP[1], enPModel)
	b.sw(fmt.Sprintf("Spd_na%d", i), g, PortVss, PortDin, PortVss, pdk.SwitchModel('n', true))
	b.sw(fmt.Sprintf("Spd_nb%d", i), g, PortVss, enN[0], enN[1], enNModel)

	b.mos(fmt.Sprintf("Mpd%d", i), d, g, PortVss, PortVss, pdk.NMOS, p.NMOSWidth, p.Length)
	b.resistor(fmt.Sprintf("Rpd%d", i), PortDout, d, p.PullDownRes)
	if p.LegCap > 0 {
		b.capacitor(fmt.Sprintf("Cpd%d", i), d, PortVss, p.LegCap)
	}
}

type builder struct {
	elems []netlist.Element
}

func (b *builder) add(typ, name string, nodes []string, value float64, params map[string]string) {
	if params == nil {
		params = map[string]string{}
	}
	b.elems = append(b.elems, netlist.Element{Type: typ, Name: name, Nodes: nodes, Value: value, Params: params})
}

func (b *builder) resistor(name, n1, n2 string, r float64) {
	b.add("R", name, []string{n1, n2}, r, nil)
}

func (b *builder) capacitor(name, n1, n2 string, c float64) {
	b.add("C", name, []string{n1, n2}, c, nil)
}

func (b *builder) diode(name, anode, cathode, model string) {
	b.add("D", name, []string{anode, cathode}, 0, map[string]string{"model": model})
}

func (b *builder) sw(name, n1, n2, cp, cn, model string) {
	b.add("S", name, []string{n1, n2, cp, cn}, 0, map[string]string{"model": model})
}

func (b *builder) mos(name, d, g, s, bulk, model string, w, l float64) {
	b.add("M", name, []string{d, g, s, bulk}, 0, map[string]string{
		"model": model,
		"w":     strconv.FormatFloat(w, 'g', -1, 64),
		"l":     strconv.FormatFloat(l, 'g', -1, 64),
	})
}
