package device

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/matrix"
)

const (
	CUTOFF     = 0 // Cutoff region
	LINEAR     = 1 // Linear/Triode region
	SATURATION = 2 // Saturation region
)

const epsOx = 3.9 * 8.854214871e-12 // SiO2 permittivity (F/m)

// Mosfet is a Shichman-Hodges (level 1) MOSFET. Nodes are drain, gate,
// source, bulk. PMOS devices are evaluated in the NMOS frame with every
// terminal voltage negated.
type Mosfet struct {
	BaseDevice
	Type string // "NMOS" or "PMOS"

	L float64 // Channel length (m)
	W float64 // Channel width (m)

	VTO    float64 // Zero-bias threshold voltage
	KP     float64 // Transconductance parameter (A/V²)
	GAMMA  float64 // Body effect parameter (V^0.5)
	PHI    float64 // Surface potential (V)
	LAMBDA float64 // Channel length modulation (1/V)
	TOX    float64 // Oxide thickness (m)
	CGSO   float64 // Gate-Source overlap capacitance per unit width (F/m)
	CGDO   float64 // Gate-Drain overlap capacitance per unit width (F/m)
	CGBO   float64 // Gate-Bulk overlap capacitance per unit length (F/m)

	vd, vg, vs, vb float64

	id       float64
	gm       float64
	gds      float64
	gmbs     float64
	region   int
	reversed bool
}

var _ NonLinear = (*Mosfet)(nil)

func NewMosfet(name string, nodeNames []string) *Mosfet {
	return &Mosfet{
		BaseDevice: newBaseDevice(name, nodeNames, 0),
		Type:       "NMOS",
		L:          1e-6,
		W:          1e-6,
		VTO:        0.0,
		KP:         2e-5,
		PHI:        0.6,
	}
}

func (m *Mosfet) GetType() string { return "M" }

func (m *Mosfet) SetModel(model ModelParam) {
	if strings.EqualFold(model.Type, "PMOS") {
		m.Type = "PMOS"
	} else {
		m.Type = "NMOS"
	}

	p := model.Params
	set := func(dst *float64, key string) {
		if v, ok := p[key]; ok {
			*dst = v
		}
	}
	set(&m.VTO, "vto")
	set(&m.KP, "kp")
	set(&m.GAMMA, "gamma")
	set(&m.PHI, "phi")
	set(&m.LAMBDA, "lambda")
	set(&m.TOX, "tox")
	set(&m.CGSO, "cgso")
	set(&m.CGDO, "cgdo")
	set(&m.CGBO, "cgbo")
}

func (m *Mosfet) SetGeometry(w, l float64) {
	if w > 0 {
		m.W = w
	}
	if l > 0 {
		m.L = l
	}
}

func (m *Mosfet) polarity() float64 {
	if m.Type == "PMOS" {
		return -1
	}
	return 1
}

func (m *Mosfet) Region() int { return m.region }

func (m *Mosfet) Current() float64 { return m.polarity() * m.id }

// evaluate computes the drain current and small-signal conductances at the
// stored terminal voltages.
func (m *Mosfet) evaluate() (vgs, vds, vbs float64) {
	p := m.polarity()

	vds = p * (m.vd - m.vs)
	m.reversed = vds < 0
	if m.reversed {
		vds = -vds
		vgs = p * (m.vg - m.vd)
		vbs = p * (m.vb - m.vd)
	} else {
		vgs = p * (m.vg - m.vs)
		vbs = p * (m.vb - m.vs)
	}

	vth := p * m.VTO
	dvthdvbs := 0.0
	if m.GAMMA != 0 {
		sarg := math.Sqrt(math.Max(m.PHI-vbs, 1e-3))
		vth += m.GAMMA * (sarg - math.Sqrt(m.PHI))
		dvthdvbs = -m.GAMMA / (2 * sarg)
	}

	beta := m.KP * m.W / m.L
	vov := vgs - vth
	clm := 1 + m.LAMBDA*vds

	switch {
	case vov <= 0:
		m.region = CUTOFF
		m.id, m.gm, m.gds = 0, 0, 0
	case vds < vov:
		m.region = LINEAR
		m.id = beta * (vov - vds/2) * vds * clm
		m.gm = beta * vds * clm
		m.gds = beta*(vov-vds)*clm + beta*(vov-vds/2)*vds*m.LAMBDA
	default:
		m.region = SATURATION
		m.id = beta / 2 * vov * vov * clm
		m.gm = beta * vov * clm
		m.gds = beta / 2 * vov * vov * m.LAMBDA
	}
	m.gmbs = -m.gm * dvthdvbs

	return vgs, vds, vbs
}

// terminals returns the effective drain and source after orientation.
func (m *Mosfet) terminals() (d, g, s, b int) {
	d, g, s, b = m.Nodes[0], m.Nodes[1], m.Nodes[2], m.Nodes[3]
	if m.reversed {
		d, s = s, d
	}
	return d, g, s, b
}

func (m *Mosfet) Stamp(mat matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(m.Nodes) != 4 {
		return errors.Errorf("mosfet %s: requires exactly 4 nodes (drain, gate, source, bulk)", m.Name)
	}
	if m.L <= 0 || m.W <= 0 {
		return errors.Errorf("mosfet %s: invalid geometry W=%g L=%g", m.Name, m.W, m.L)
	}

	if status.Mode == ACAnalysis {
		return m.stampAC(mat, status)
	}

	vgs, vds, vbs := m.evaluate()
	d, g, s, b := m.terminals()
	gmin := math.Max(status.Gmin, 1e-12)

	m.stampTransconductance(mat, status.Mode, d, g, s, b, m.gds+gmin)

	ieq := m.polarity() * (m.id - m.gm*vgs - m.gds*vds - m.gmbs*vbs)
	if d != 0 {
		mat.AddRHS(d, -ieq)
	}
	if s != 0 {
		mat.AddRHS(s, ieq)
	}
	return nil
}

// stampTransconductance loads gds, gm and gmbs between the effective
// drain and source.
func (m *Mosfet) stampTransconductance(mat matrix.DeviceMatrix, mode AnalysisMode, d, g, s, b int, gds float64) {
	add := func(i, j int, v float64) {
		if i == 0 || j == 0 || v == 0 {
			return
		}
		if mode == ACAnalysis {
			mat.AddComplexElement(i, j, v, 0)
			return
		}
		mat.AddElement(i, j, v)
	}

	add(d, d, gds)
	add(d, s, -gds-m.gm-m.gmbs)
	add(d, g, m.gm)
	add(d, b, m.gmbs)

	add(s, d, -gds)
	add(s, s, gds+m.gm+m.gmbs)
	add(s, g, -m.gm)
	add(s, b, -m.gmbs)
}

// capacitances returns Meyer gate capacitances at the operating point, in
// the effective orientation.
func (m *Mosfet) capacitances() (cgs, cgd, cgb float64) {
	cox := 0.0
	if m.TOX > 0 {
		cox = epsOx / m.TOX * m.W * m.L
	}
	cgs = m.CGSO * m.W
	cgd = m.CGDO * m.W
	cgb = m.CGBO * m.L

	switch m.region {
	case CUTOFF:
		cgb += cox
	case LINEAR:
		cgs += cox / 2
		cgd += cox / 2
	case SATURATION:
		cgs += cox * 2 / 3
	}
	return cgs, cgd, cgb
}

func (m *Mosfet) stampAC(mat matrix.DeviceMatrix, status *CircuitStatus) error {
	d, g, s, b := m.terminals()
	m.stampTransconductance(mat, status.Mode, d, g, s, b, m.gds)

	omega := 2 * math.Pi * status.Frequency
	cgs, cgd, cgb := m.capacitances()
	stampConductance(mat, status.Mode, g, s, 0, omega*cgs)
	stampConductance(mat, status.Mode, g, d, 0, omega*cgd)
	stampConductance(mat, status.Mode, g, b, 0, omega*cgb)
	return nil
}

func (m *Mosfet) UpdateVoltages(voltages []float64) error {
	if len(m.Nodes) != 4 {
		return errors.Errorf("mosfet %s: requires exactly 4 nodes (drain, gate, source, bulk)", m.Name)
	}
	m.vd = nodeVoltage(voltages, m.Nodes[0])
	m.vg = nodeVoltage(voltages, m.Nodes[1])
	m.vs = nodeVoltage(voltages, m.Nodes[2])
	m.vb = nodeVoltage(voltages, m.Nodes[3])
	return nil
}
