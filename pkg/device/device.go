package device

import (
	"github.com/edp1096/drvchar/pkg/matrix"
)

type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error
	GetValue() float64
	SetNodes(nodes []int)
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

type ModelParam struct {
	Type   string
	Name   string
	Params map[string]float64
}

// Clone returns a deep copy so a process can hand models to concurrent jobs.
func (m ModelParam) Clone() ModelParam {
	params := make(map[string]float64, len(m.Params))
	for k, v := range m.Params {
		params[k] = v
	}
	return ModelParam{Type: m.Type, Name: m.Name, Params: params}
}

// NonLinear devices are relinearized around the latest Newton iterate.
type NonLinear interface {
	UpdateVoltages(voltages []float64) error
}

type AnalysisMode int

const (
	OperatingPointAnalysis AnalysisMode = iota
	ACAnalysis
)

type CircuitStatus struct {
	Gmin      float64
	Mode      AnalysisMode
	Temp      float64 // Kelvin
	Frequency float64 // AC frequency
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func newBaseDevice(name string, nodeNames []string, value float64) BaseDevice {
	return BaseDevice{
		Name:      name,
		Nodes:     make([]int, len(nodeNames)),
		NodeNames: nodeNames,
		Value:     value,
	}
}

// nodeVoltage reads a node voltage from a real solution vector; ground is 0.
func nodeVoltage(voltages []float64, n int) float64 {
	if n <= 0 || n >= len(voltages) {
		return 0
	}
	return voltages[n]
}

// stampConductance adds a two-terminal admittance g+jb between n1 and n2.
// Real matrices ignore b.
func stampConductance(m matrix.DeviceMatrix, mode AnalysisMode, n1, n2 int, g, b float64) {
	add := func(i, j int, sign float64) {
		if mode == ACAnalysis {
			m.AddComplexElement(i, j, sign*g, sign*b)
			return
		}
		m.AddElement(i, j, sign*g)
	}

	if n1 != 0 {
		add(n1, n1, 1)
		if n2 != 0 {
			add(n1, n2, -1)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			add(n2, n1, -1)
		}
		add(n2, n2, 1)
	}
}
