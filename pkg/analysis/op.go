package analysis

import (
	"fmt"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/circuit"
	"github.com/edp1096/drvchar/pkg/device"
)

type OperatingPoint struct{ BaseAnalysis }

func NewOP() *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(),
	}
}

func (op *OperatingPoint) Setup(ckt *circuit.Circuit) error {
	if ckt == nil {
		return errors.New("circuit not set")
	}
	op.Circuit = ckt
	return nil
}

func (op *OperatingPoint) doNRiter(gmin float64, maxIter int) error {
	ckt := op.Circuit
	mat := ckt.GetMatrix()
	status := &device.CircuitStatus{
		Mode: device.OperatingPointAnalysis,
		Temp: op.temp,
		Gmin: gmin,
	}

	var oldSolution []float64
	for iter := 0; iter < maxIter; iter++ {
		mat.Clear()

		// The first iteration linearizes around the devices' stored state.
		if iter > 0 {
			if err := ckt.UpdateNonlinearVoltages(oldSolution); err != nil {
				return errors.Wrap(err, "updating nonlinear voltages")
			}
		}

		if err := ckt.Stamp(status); err != nil {
			return errors.Wrap(err, "stamping")
		}
		mat.LoadGmin(gmin)

		if iter == 0 && log.V(3) {
			var sb strings.Builder
			mat.Dump(&sb)
			log.Info(sb.String())
		}

		if err := mat.Solve(); err != nil {
			return errors.Wrap(err, "matrix solve")
		}

		solution := mat.Solution()
		if iter > 0 && op.converged(oldSolution, solution, ckt.GetNumNodes()) {
			log.V(2).Infof("op: converged in %d iterations (gmin=%g)", iter+1, gmin)
			return nil
		}

		if oldSolution == nil {
			oldSolution = make([]float64, len(solution))
		}
		copy(oldSolution, solution)
	}

	return errors.Errorf("failed to converge in %d iterations", maxIter)
}

func (op *OperatingPoint) Execute() error {
	ckt := op.Circuit
	if ckt == nil {
		return errors.New("circuit not set")
	}

	err := op.doNRiter(0, op.convergence.maxIter)
	if err == nil {
		op.storeResults(ckt.GetMatrix().Solution())
		return nil
	}
	log.V(1).Infof("op: direct newton failed (%v), stepping gmin", err)

	numGminSteps := 10
	gmin := float64(ckt.GetMatrix().Size) * 0.001

	for i := 0; i <= numGminSteps; i++ {
		if err := op.doNRiter(gmin, op.convergence.maxIter); err != nil {
			return errors.Wrapf(err, "gmin stepping failed at %g", gmin)
		}
		gmin /= 10
	}

	if err := op.doNRiter(0, op.convergence.maxIter); err != nil {
		return errors.Wrap(err, "final solution failed with zero gmin")
	}

	op.storeResults(ckt.GetMatrix().Solution())
	return nil
}

func (op *OperatingPoint) storeResults(solution []float64) {
	for nodeName, nodeIdx := range op.Circuit.GetNodeMap() {
		op.results[fmt.Sprintf("V(%s)", nodeName)] = []float64{solution[nodeIdx]}
	}
	for devName, branchIdx := range op.Circuit.GetBranchMap() {
		op.results[fmt.Sprintf("I(%s)", devName)] = []float64{-solution[branchIdx]}
	}
}

// Voltage returns the converged operating point of a node by name.
func (op *OperatingPoint) Voltage(node string) (float64, bool) {
	v, ok := op.results[fmt.Sprintf("V(%s)", node)]
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}
