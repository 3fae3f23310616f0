package device

import (
	"math"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/internal/consts"
	"github.com/edp1096/drvchar/pkg/matrix"
)

// Diode is a junction diode, used as an ESD clamp on driver pads. Series
// resistance and breakdown are not modeled.
type Diode struct {
	BaseDevice
	Is   float64 // Saturation current
	N    float64 // Emission coefficient
	Cj0  float64 // Zero-bias junction capacitance
	M    float64 // Grading coefficient
	Vj   float64 // Junction potential
	Fc   float64 // Forward-bias depletion capacitance coefficient
	Eg   float64 // Energy gap (eV)
	Xti  float64 // Saturation current temperature exponent
	Gmin float64

	vd float64
	id float64
	gd float64
}

var _ NonLinear = (*Diode)(nil)

func NewDiode(name string, nodeNames []string) *Diode {
	return &Diode{
		BaseDevice: newBaseDevice(name, nodeNames, 0),
		Is:         1e-14,
		N:          1.0,
		M:          0.5,
		Vj:         1.0,
		Fc:         0.5,
		Eg:         1.11,
		Xti:        3.0,
		Gmin:       1e-12,
	}
}

func (d *Diode) GetType() string { return "D" }

func (d *Diode) SetModelParameters(params map[string]float64) {
	set := func(dst *float64, keys ...string) {
		for _, k := range keys {
			if v, ok := params[k]; ok {
				*dst = v
				return
			}
		}
	}
	set(&d.Is, "is")
	set(&d.N, "n")
	set(&d.Cj0, "cjo", "cj0")
	set(&d.M, "m")
	set(&d.Vj, "vj")
	set(&d.Fc, "fc")
	set(&d.Eg, "eg")
	set(&d.Xti, "xti")
}

func thermalVoltage(temp float64) float64 {
	if temp <= 0 {
		temp = consts.TNOM
	}
	return consts.BOLTZMANN * temp / consts.CHARGE
}

// saturationCurrent scales Is from TNOM to temp.
func (d *Diode) saturationCurrent(temp float64) float64 {
	if temp <= 0 {
		return d.Is
	}
	ratio := temp / consts.TNOM
	arg := (ratio - 1.0) * d.Eg / (d.N * thermalVoltage(temp))
	return d.Is * math.Pow(ratio, d.Xti/d.N) * math.Exp(arg)
}

func (d *Diode) evaluate(temp float64) {
	nvt := d.N * thermalVoltage(temp)
	is := d.saturationCurrent(temp)

	if d.vd > -3.0*nvt {
		arg := math.Min(d.vd/nvt, 40.0)
		evd := math.Exp(arg)
		d.id = is * (evd - 1.0)
		d.gd = is*evd/nvt + d.Gmin
		return
	}

	d.id = -is
	d.gd = d.Gmin
}

func (d *Diode) junctionCap() float64 {
	if d.Cj0 == 0 {
		return 0
	}
	if d.vd < d.Fc*d.Vj {
		return d.Cj0 / math.Pow(1-d.vd/d.Vj, d.M)
	}
	// Linear extension above Fc*Vj
	f2 := math.Pow(1-d.Fc, 1+d.M)
	f3 := 1 - d.Fc*(1+d.M)
	return d.Cj0 / f2 * (f3 + d.M*d.vd/d.Vj)
}

func (d *Diode) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(d.Nodes) != 2 {
		return errors.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}
	n1, n2 := d.Nodes[0], d.Nodes[1]

	if status.Mode == ACAnalysis {
		omega := 2 * math.Pi * status.Frequency
		stampConductance(matrix, status.Mode, n1, n2, d.gd, omega*d.junctionCap())
		return nil
	}

	d.evaluate(status.Temp)
	stampConductance(matrix, status.Mode, n1, n2, d.gd, 0)

	ieq := d.id - d.gd*d.vd
	if n1 != 0 {
		matrix.AddRHS(n1, -ieq)
	}
	if n2 != 0 {
		matrix.AddRHS(n2, ieq)
	}
	return nil
}

func (d *Diode) UpdateVoltages(voltages []float64) error {
	if len(d.Nodes) != 2 {
		return errors.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}
	d.vd = nodeVoltage(voltages, d.Nodes[0]) - nodeVoltage(voltages, d.Nodes[1])
	return nil
}

// Current is the DC current at the last evaluated operating point.
func (d *Diode) Current() float64 { return d.id }
