// Package pdk supplies the process models a driver is elaborated against:
// level-1 MOSFET cards, switch models for switch-level netlists and an ESD
// diode, all derived from a PVT corner.
package pdk

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/internal/consts"
	"github.com/edp1096/drvchar/pkg/device"
)

type Corner int

const (
	TT Corner = iota
	SS
	FF
	SF // slow NMOS, fast PMOS
	FS // fast NMOS, slow PMOS
)

var cornerNames = [...]string{"tt", "ss", "ff", "sf", "fs"}

func (c Corner) String() string {
	if c < 0 || int(c) >= len(cornerNames) {
		return fmt.Sprintf("Corner(%d)", int(c))
	}
	return cornerNames[c]
}

func ParseCorner(s string) (Corner, error) {
	for i, name := range cornerNames {
		if strings.EqualFold(s, name) {
			return Corner(i), nil
		}
	}
	return TT, errors.Errorf("unknown process corner %q", s)
}

// speed returns the NMOS and PMOS skew of a corner: -1 slow, 0 typical,
// +1 fast.
func (c Corner) speed() (n, p float64) {
	switch c {
	case SS:
		return -1, -1
	case FF:
		return 1, 1
	case SF:
		return -1, 1
	case FS:
		return 1, -1
	}
	return 0, 0
}

// Pvt is a process/voltage/temperature operating condition.
type Pvt struct {
	Corner  Corner
	Voltage float64 // supply (V)
	TempC   float64 // junction temperature (degC)
}

func (p Pvt) String() string {
	return fmt.Sprintf("%s_%.2fV_%gC", p.Corner, p.Voltage, p.TempC)
}

func (p Pvt) Validate() error {
	if p.Voltage <= 0 || math.IsNaN(p.Voltage) || math.IsInf(p.Voltage, 0) {
		return errors.Errorf("supply voltage %g must be positive", p.Voltage)
	}
	if p.TempC < -consts.KELVIN || math.IsNaN(p.TempC) {
		return errors.Errorf("temperature %g degC below absolute zero", p.TempC)
	}
	if p.Corner < TT || p.Corner > FS {
		return errors.Errorf("invalid corner %d", int(p.Corner))
	}
	return nil
}

// Model names defined by every Process.
const (
	NMOS = "nch"
	PMOS = "pch"
	ESD  = "esd"
)

// SwitchModel names the switch model of a device flavor ('n' or 'p') whose
// control is active-high or active-low. Active-high switches close when
// v(nc+)-v(nc-) exceeds half the supply; active-low ones are wired with the
// control nodes swapped and close when the control falls below it.
func SwitchModel(flavor byte, activeHigh bool) string {
	pol := "lo"
	if activeHigh {
		pol = "hi"
	}
	return fmt.Sprintf("sw%c_%s", flavor, pol)
}

// Nominal device parameters at TT, 27 degC.
const (
	nmosVto    = 0.40
	pmosVto    = -0.40
	nmosKp     = 280e-6
	pmosKp     = 90e-6
	vtoSkew    = 0.04  // V per corner step
	kpSkew     = 0.12  // fraction per corner step
	vtoTempCo  = -1e-3 // V/K, magnitude shrinks as temperature rises
	mobilityEx = -1.5

	ronN     = 20.0 // unit switch on-resistance (ohm)
	ronP     = 30.0
	roffUnit = 1e9

	esdIs  = 1e-16
	esdCjo = 30e-15
)

// Process is the set of device models for one PVT corner.
type Process struct {
	Pvt    Pvt
	Models map[string]device.ModelParam
}

func New(pvt Pvt) (*Process, error) {
	if err := pvt.Validate(); err != nil {
		return nil, errors.Wrap(err, "pdk")
	}

	tempK := pvt.TempC + consts.KELVIN
	mobility := math.Pow(tempK/consts.TNOM, mobilityEx)
	dT := tempK - consts.TNOM
	sn, sp := pvt.Corner.speed()

	nKp := nmosKp * (1 + kpSkew*sn) * mobility
	pKp := pmosKp * (1 + kpSkew*sp) * mobility
	nVto := nmosVto - vtoSkew*sn + vtoTempCo*dT
	pVto := pmosVto + vtoSkew*sp - vtoTempCo*dT

	mos := func(name, typ string, vto, kp float64) device.ModelParam {
		return device.ModelParam{
			Type: typ,
			Name: name,
			Params: map[string]float64{
				"level":  1,
				"vto":    vto,
				"kp":     kp,
				"lambda": 0.08,
				"tox":    4e-9,
				"cgso":   3e-10,
				"cgdo":   3e-10,
			},
		}
	}

	models := map[string]device.ModelParam{
		NMOS: mos(NMOS, "NMOS", nVto, nKp),
		PMOS: mos(PMOS, "PMOS", pVto, pKp),
		ESD: {
			Type:   "D",
			Name:   ESD,
			Params: map[string]float64{"is": esdIs, "n": 1, "cjo": esdCjo},
		},
	}

	// Switch on-resistance tracks drive strength.
	half := pvt.Voltage / 2
	for _, flavor := range []byte{'n', 'p'} {
		ron := ronN * nmosKp / (nmosKp * (1 + kpSkew*sn) * mobility)
		if flavor == 'p' {
			ron = ronP * pmosKp / (pmosKp * (1 + kpSkew*sp) * mobility)
		}
		for _, hi := range []bool{true, false} {
			vt := half
			if !hi {
				vt = -half
			}
			name := SwitchModel(flavor, hi)
			models[name] = device.ModelParam{
				Type:   "SW",
				Name:   name,
				Params: map[string]float64{"vt": vt, "vh": 0, "ron": ron, "roff": roffUnit},
			}
		}
	}

	return &Process{Pvt: pvt, Models: models}, nil
}

// Clone returns a deep copy for use by one job.
func (p *Process) Clone() *Process {
	models := make(map[string]device.ModelParam, len(p.Models))
	for k, m := range p.Models {
		models[k] = m.Clone()
	}
	return &Process{Pvt: p.Pvt, Models: models}
}

// SwitchOnResistance reports the ron of a switch model.
func (p *Process) SwitchOnResistance(flavor byte) float64 {
	return p.Models[SwitchModel(flavor, true)].Params["ron"]
}
