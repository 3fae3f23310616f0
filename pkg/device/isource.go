package device

import (
	"math"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/matrix"
)

// CurrentSource drives current from its first node, through the source, out
// of its second node: "I1 0 out AC 1" pushes a unit current into out.
type CurrentSource struct {
	BaseDevice
	dcValue float64
	acMag   float64
	acPhase float64 // degrees
}

func NewACCurrentSource(name string, nodeNames []string, dcValue, acMag, acPhase float64) *CurrentSource {
	return &CurrentSource{
		BaseDevice: newBaseDevice(name, nodeNames, dcValue),
		dcValue:    dcValue,
		acMag:      acMag,
		acPhase:    acPhase,
	}
}

func (i *CurrentSource) GetType() string { return "I" }

func (i *CurrentSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(i.Nodes) != 2 {
		return errors.Errorf("current source %s: requires exactly 2 nodes", i.Name)
	}
	n1, n2 := i.Nodes[0], i.Nodes[1]

	if status.Mode == ACAnalysis {
		phaseRad := i.acPhase * math.Pi / 180.0
		re := i.acMag * math.Cos(phaseRad)
		im := i.acMag * math.Sin(phaseRad)
		if n1 != 0 {
			matrix.AddComplexRHS(n1, -re, -im)
		}
		if n2 != 0 {
			matrix.AddComplexRHS(n2, re, im)
		}
		return nil
	}

	if n1 != 0 {
		matrix.AddRHS(n1, -i.dcValue)
	}
	if n2 != 0 {
		matrix.AddRHS(n2, i.dcValue)
	}
	return nil
}
