package device

import (
	"math"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/matrix"
)

// VoltageSource is an independent source with a DC value and an optional AC
// small-signal phasor. It owns one MNA branch row.
type VoltageSource struct {
	BaseDevice
	dcValue   float64
	acMag     float64
	acPhase   float64 // degrees
	branchIdx int
}

func NewACVoltageSource(name string, nodeNames []string, dcValue, acMag, acPhase float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: newBaseDevice(name, nodeNames, dcValue),
		dcValue:    dcValue,
		acMag:      acMag,
		acPhase:    acPhase,
	}
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(v.Nodes) != 2 {
		return errors.Errorf("voltage source %s: requires exactly 2 nodes", v.Name)
	}
	if v.branchIdx <= 0 {
		return errors.Errorf("voltage source %s: no branch assigned", v.Name)
	}

	n1, n2 := v.Nodes[0], v.Nodes[1]
	bIdx := v.branchIdx

	// v(n1) - v(n2) = V; branch current leaves n1 through the source.
	if status.Mode == ACAnalysis {
		if n1 != 0 {
			matrix.AddComplexElement(bIdx, n1, 1, 0)
			matrix.AddComplexElement(n1, bIdx, 1, 0)
		}
		if n2 != 0 {
			matrix.AddComplexElement(bIdx, n2, -1, 0)
			matrix.AddComplexElement(n2, bIdx, -1, 0)
		}
		phaseRad := v.acPhase * math.Pi / 180.0
		matrix.AddComplexRHS(bIdx, v.acMag*math.Cos(phaseRad), v.acMag*math.Sin(phaseRad))
		return nil
	}

	if n1 != 0 {
		matrix.AddElement(bIdx, n1, 1)
		matrix.AddElement(n1, bIdx, 1)
	}
	if n2 != 0 {
		matrix.AddElement(bIdx, n2, -1)
		matrix.AddElement(n2, bIdx, -1)
	}
	matrix.AddRHS(bIdx, v.dcValue)
	return nil
}

func (v *VoltageSource) BranchIndex() int {
	return v.branchIdx
}

func (v *VoltageSource) SetBranchIndex(idx int) {
	v.branchIdx = idx
}
