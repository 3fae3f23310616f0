package device

import (
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/matrix"
)

// Switch is a voltage-controlled switch (SPICE "S" element, SW model).
// Nodes are n+, n-, nc+, nc-. It closes when v(nc+)-v(nc-) rises above
// vt+vh and opens below vt-vh; between the two it keeps its last state.
type Switch struct {
	BaseDevice
	Vt   float64
	Vh   float64
	Ron  float64
	Roff float64

	vc     float64
	closed bool
}

var _ NonLinear = (*Switch)(nil)

func NewSwitch(name string, nodeNames []string) *Switch {
	return &Switch{
		BaseDevice: newBaseDevice(name, nodeNames, 0),
		Ron:        1.0,
		Roff:       1e12,
	}
}

func (s *Switch) GetType() string { return "S" }

func (s *Switch) SetModelParameters(params map[string]float64) {
	if v, ok := params["vt"]; ok {
		s.Vt = v
	}
	if v, ok := params["vh"]; ok {
		s.Vh = v
	}
	if v, ok := params["ron"]; ok {
		s.Ron = v
	}
	if v, ok := params["roff"]; ok {
		s.Roff = v
	}
}

// SetInitialState forces the state used before the first Newton update.
func (s *Switch) SetInitialState(closed bool) { s.closed = closed }

func (s *Switch) Closed() bool { return s.closed }

func (s *Switch) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(s.Nodes) != 4 {
		return errors.Errorf("switch %s: requires exactly 4 nodes", s.Name)
	}
	if s.Ron <= 0 || s.Roff <= 0 {
		return errors.Errorf("switch %s: ron and roff must be positive", s.Name)
	}

	r := s.Roff
	if s.closed {
		r = s.Ron
	}
	// AC reuses the state settled at the operating point.
	stampConductance(matrix, status.Mode, s.Nodes[0], s.Nodes[1], 1.0/r, 0)
	return nil
}

func (s *Switch) UpdateVoltages(voltages []float64) error {
	if len(s.Nodes) != 4 {
		return errors.Errorf("switch %s: requires exactly 4 nodes", s.Name)
	}

	s.vc = nodeVoltage(voltages, s.Nodes[2]) - nodeVoltage(voltages, s.Nodes[3])
	switch {
	case s.vc > s.Vt+s.Vh:
		s.closed = true
	case s.vc < s.Vt-s.Vh:
		s.closed = false
	}
	return nil
}
