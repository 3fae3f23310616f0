package device

import (
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/internal/consts"
	"github.com/edp1096/drvchar/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1  float64
	Tc2  float64
	Tnom float64
}

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{
		BaseDevice: newBaseDevice(name, nodeNames, value),
		Tnom:       consts.TNOM,
	}
}

func (r *Resistor) GetType() string { return "R" }

// SetTempCoefficients applies tc1/tc2 instance parameters.
func (r *Resistor) SetTempCoefficients(tc1, tc2 float64) {
	r.Tc1, r.Tc2 = tc1, tc2
}

func (r *Resistor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(r.Nodes) != 2 {
		return errors.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}

	value := r.temperatureAdjustedValue(status.Temp)
	if value == 0 {
		return errors.Errorf("resistor %s: zero resistance", r.Name)
	}

	stampConductance(matrix, status.Mode, r.Nodes[0], r.Nodes[1], 1.0/value, 0)
	return nil
}

func (r *Resistor) temperatureAdjustedValue(temp float64) float64 {
	if temp <= 0 {
		return r.Value
	}
	dt := temp - r.Tnom
	return r.Value * (1.0 + r.Tc1*dt + r.Tc2*dt*dt)
}
