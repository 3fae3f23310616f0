package analysis

import (
	"math"
	"math/cmplx"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/internal/consts"
	"github.com/edp1096/drvchar/pkg/circuit"
)

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute() error
	GetResults() map[string][]float64
}

// Tolerance is a named preset of Newton convergence settings.
type Tolerance int

const (
	Default Tolerance = iota
	Moderate
	Conservative
)

func (t Tolerance) String() string {
	switch t {
	case Moderate:
		return "moderate"
	case Conservative:
		return "conservative"
	default:
		return "default"
	}
}

func ParseTolerance(s string) (Tolerance, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return Default, nil
	case "moderate":
		return Moderate, nil
	case "conservative":
		return Conservative, nil
	}
	return Default, errors.Errorf("unknown tolerance preset %q", s)
}

// Settings returns reltol, abstol, vntol and the iteration limit.
func (t Tolerance) Settings() (reltol, abstol, vntol float64, maxIter int) {
	switch t {
	case Moderate:
		return 1e-4, 1e-12, 1e-6, 200
	case Conservative:
		return 1e-5, 1e-14, 1e-7, 400
	default:
		return 1e-3, 1e-12, 1e-6, 100
	}
}

type BaseAnalysis struct {
	Circuit     *circuit.Circuit
	results     map[string][]float64 // key: variable name
	phasors     map[string][]complex128
	temp        float64 // Kelvin
	convergence struct {
		maxIter int
		abstol  float64
		reltol  float64
		vntol   float64
		gmin    float64
	}
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{
		results: make(map[string][]float64),
		phasors: make(map[string][]complex128),
		temp:    consts.TNOM,
	}
	ba.SetTolerance(Default)
	ba.convergence.gmin = 1e-12
	return ba
}

func (a *BaseAnalysis) SetTolerance(t Tolerance) {
	c := &a.convergence
	c.reltol, c.abstol, c.vntol, c.maxIter = t.Settings()
}

// SetTemperature sets the simulation temperature in degrees Celsius.
func (a *BaseAnalysis) SetTemperature(celsius float64) {
	a.temp = celsius + consts.KELVIN
}

func (a *BaseAnalysis) converged(oldSol, newSol []float64, numNodes int) bool {
	if len(oldSol) != len(newSol) {
		return false
	}
	for i := 1; i < len(newSol); i++ {
		tol := a.convergence.abstol
		if i <= numNodes {
			tol = a.convergence.vntol
		}
		diff := math.Abs(newSol[i] - oldSol[i])
		if diff > a.convergence.reltol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i]))+tol {
			return false
		}
	}
	return true
}

func (a *BaseAnalysis) StoreACResult(freq float64, solution map[string]complex128) {
	a.results["FREQ"] = append(a.results["FREQ"], freq)

	for name, value := range solution {
		a.phasors[name] = append(a.phasors[name], value)
		a.results[name+"_MAG"] = append(a.results[name+"_MAG"], cmplx.Abs(value))
		a.results[name+"_PHASE"] = append(a.results[name+"_PHASE"], cmplx.Phase(value)*180.0/math.Pi)
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

// Phasor returns the complex samples of a stored AC quantity such as "V(out)".
func (a *BaseAnalysis) Phasor(name string) ([]complex128, bool) {
	v, ok := a.phasors[name]
	return v, ok
}
