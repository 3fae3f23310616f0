package circuit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/device"
	"github.com/edp1096/drvchar/pkg/matrix"
	"github.com/edp1096/drvchar/pkg/netlist"
)

// Circuit is a flattened netlist bound to MNA matrices. The operating point
// is solved on a real matrix; the AC sweep, when enabled, on a separate
// complex one.
type Circuit struct {
	name             string
	nodeMap          map[string]int
	branchMap        map[string]int
	devices          []device.Device
	numNodes         int
	matrix           *matrix.CircuitMatrix
	acMatrix         *matrix.CircuitMatrix
	Status           *device.CircuitStatus
	isComplex        bool
	nonlinearDevices []device.NonLinear
	Models           map[string]device.ModelParam
}

func New(name string) *Circuit {
	return NewWithComplex(name, false)
}

func NewWithComplex(name string, isComplex bool) *Circuit {
	return &Circuit{
		name:      name,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		devices:   make([]device.Device, 0),
		Status:    &device.CircuitStatus{},
		isComplex: isComplex,
		Models:    make(map[string]device.ModelParam),
	}
}

// Build assembles a circuit from a flattened element list in one call.
func Build(name string, elements []netlist.Element, models map[string]device.ModelParam, isComplex bool) (*Circuit, error) {
	ckt := NewWithComplex(name, isComplex)
	ckt.SetModels(models)

	if err := ckt.AssignNodeBranchMaps(elements); err != nil {
		return nil, err
	}
	if err := ckt.CreateMatrix(); err != nil {
		return nil, err
	}
	if err := ckt.SetupDevices(elements); err != nil {
		ckt.Destroy()
		return nil, err
	}
	return ckt, nil
}

func (c *Circuit) SetModels(models map[string]device.ModelParam) {
	if models == nil {
		models = make(map[string]device.ModelParam)
	}
	c.Models = models
}

func IsGround(node string) bool {
	return node == "0" || strings.EqualFold(node, "gnd")
}

func (c *Circuit) AssignNodeBranchMaps(elements []netlist.Element) error {
	for _, elem := range elements {
		if elem.Type == "X" {
			return errors.Errorf("element %s: subcircuit instances must be flattened first", elem.Name)
		}
		for _, nodeName := range elem.Nodes {
			if IsGround(nodeName) {
				continue
			}
			if _, exists := c.nodeMap[nodeName]; !exists {
				c.nodeMap[nodeName] = len(c.nodeMap) + 1
			}
		}
	}
	if len(c.nodeMap) == 0 {
		return errors.New("circuit has no non-ground nodes")
	}

	branchStart := len(c.nodeMap) + 1
	for _, elem := range elements {
		if elem.Type == "V" {
			if _, dup := c.branchMap[elem.Name]; dup {
				return errors.Errorf("duplicate voltage source %s", elem.Name)
			}
			c.branchMap[elem.Name] = branchStart
			branchStart++
		}
	}

	c.numNodes = len(c.nodeMap)
	return nil
}

func (c *Circuit) CreateMatrix() error {
	var err error

	size := len(c.nodeMap) + len(c.branchMap)
	c.matrix, err = matrix.NewMatrix(size, false)
	if err != nil {
		return errors.Wrap(err, "operating point matrix")
	}
	if c.isComplex {
		c.acMatrix, err = matrix.NewMatrix(size, true)
		if err != nil {
			return errors.Wrap(err, "ac matrix")
		}
	}
	return nil
}

func (c *Circuit) SetupDevices(elements []netlist.Element) error {
	for _, elem := range elements {
		dev, err := netlist.CreateDevice(elem, c.Models)
		if err != nil {
			return errors.Wrapf(err, "creating device %s", elem.Name)
		}

		nodeIndices := make([]int, len(elem.Nodes))
		for i, nodeName := range elem.Nodes {
			if IsGround(nodeName) {
				continue
			}
			nodeIndices[i] = c.nodeMap[nodeName]
		}
		dev.SetNodes(nodeIndices)

		if v, ok := dev.(*device.VoltageSource); ok {
			v.SetBranchIndex(c.branchMap[elem.Name])
		}
		if nl, ok := dev.(device.NonLinear); ok {
			c.nonlinearDevices = append(c.nonlinearDevices, nl)
		}

		c.devices = append(c.devices, dev)
	}

	// Initial stamp validates every device before any analysis runs.
	if err := c.Stamp(&device.CircuitStatus{Mode: device.OperatingPointAnalysis}); err != nil {
		return errors.Wrap(err, "initial stamping failed")
	}
	c.matrix.SetupElements()
	c.matrix.Clear()
	if c.acMatrix != nil {
		c.acMatrix.SetupElements()
	}

	return nil
}

// Stamp loads every device into the matrix selected by status.Mode.
func (c *Circuit) Stamp(status *device.CircuitStatus) error {
	mat := c.matrix
	if status.Mode == device.ACAnalysis {
		if c.acMatrix == nil {
			return errors.New("circuit was built without an ac matrix")
		}
		mat = c.acMatrix
	}

	for _, dev := range c.devices {
		if err := dev.Stamp(mat, status); err != nil {
			return errors.Wrapf(err, "stamping device %s", dev.GetName())
		}
	}
	return nil
}

func (c *Circuit) GetMatrix() *matrix.CircuitMatrix {
	return c.matrix
}

func (c *Circuit) GetACMatrix() *matrix.CircuitMatrix {
	return c.acMatrix
}

func (c *Circuit) GetNodeMap() map[string]int {
	return c.nodeMap
}

func (c *Circuit) GetBranchMap() map[string]int {
	return c.branchMap
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

// NodeIndex returns the matrix row of a node; ground and unknown nodes
// report false.
func (c *Circuit) NodeIndex(name string) (int, bool) {
	idx, ok := c.nodeMap[name]
	return idx, ok
}

// GetSolution maps the last operating point onto V(node) and I(source)
// names. Resistor currents are derived from their terminal voltages.
func (c *Circuit) GetSolution() map[string]float64 {
	solution := make(map[string]float64)
	x := c.matrix.Solution()

	for name, idx := range c.nodeMap {
		solution[fmt.Sprintf("V(%s)", name)] = x[idx]
	}
	for name, idx := range c.branchMap {
		solution[fmt.Sprintf("I(%s)", name)] = -x[idx]
	}
	for _, dev := range c.devices {
		if r, ok := dev.(*device.Resistor); ok {
			nodes := r.GetNodes()
			v1 := c.GetNodeVoltage(nodes[0])
			v2 := c.GetNodeVoltage(nodes[1])
			solution[fmt.Sprintf("I(%s)", r.GetName())] = (v1 - v2) / r.GetValue()
		}
	}

	return solution
}

func (c *Circuit) Destroy() {
	if c.matrix != nil {
		c.matrix.Destroy()
	}
	if c.acMatrix != nil {
		c.acMatrix.Destroy()
	}
}

func (c *Circuit) Name() string {
	return c.name
}

func (c *Circuit) GetNumNodes() int {
	return c.numNodes
}

func (c *Circuit) GetNodeVoltage(nodeIdx int) float64 {
	solution := c.matrix.Solution()
	if nodeIdx <= 0 || nodeIdx >= len(solution) {
		return 0
	}
	return solution[nodeIdx]
}

func (c *Circuit) UpdateNonlinearVoltages(solution []float64) error {
	for _, dev := range c.nonlinearDevices {
		if err := dev.UpdateVoltages(solution); err != nil {
			return errors.Wrap(err, "updating voltages")
		}
	}
	return nil
}
