package device

import (
	"math"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/matrix"
)

type Capacitor struct {
	BaseDevice
}

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: newBaseDevice(name, nodeNames, value)}
}

func (c *Capacitor) GetType() string { return "C" }

func (c *Capacitor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(c.Nodes) != 2 {
		return errors.Errorf("capacitor %s: requires exactly 2 nodes", c.Name)
	}
	n1, n2 := c.Nodes[0], c.Nodes[1]

	switch status.Mode {
	case ACAnalysis:
		omega := 2 * math.Pi * status.Frequency
		stampConductance(matrix, status.Mode, n1, n2, 0, omega*c.Value) // jωC

	default:
		// Open at DC; gmin keeps otherwise floating nodes solvable.
		gmin := status.Gmin
		if gmin < 1e-12 {
			gmin = 1e-12
		}
		stampConductance(matrix, status.Mode, n1, n2, gmin, 0)
	}

	return nil
}
