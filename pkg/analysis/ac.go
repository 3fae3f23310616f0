package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/circuit"
	"github.com/edp1096/drvchar/pkg/device"
)

type ACAnalysis struct {
	BaseAnalysis
	op          *OperatingPoint
	startFreq   float64
	stopFreq    float64
	numPoints   int
	pointsType  string // "DEC", "OCT", "LIN"
	probes      []string
	frequencies []float64
}

// NewAC creates a small-signal sweep. For DEC and OCT sweeps nPoints is the
// number of points per decade or octave; for LIN it is the total.
func NewAC(fStart, fStop float64, nPoints int, pType string) *ACAnalysis {
	return &ACAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		op:           NewOP(),
		startFreq:    fStart,
		stopFreq:     fStop,
		numPoints:    nPoints,
		pointsType:   strings.ToUpper(pType),
	}
}

func (ac *ACAnalysis) SetTolerance(t Tolerance) {
	ac.BaseAnalysis.SetTolerance(t)
	ac.op.SetTolerance(t)
}

func (ac *ACAnalysis) SetTemperature(celsius float64) {
	ac.BaseAnalysis.SetTemperature(celsius)
	ac.op.SetTemperature(celsius)
}

// SetProbes limits the stored results to the named nodes. Without probes
// every node voltage and source current is stored.
func (ac *ACAnalysis) SetProbes(nodes ...string) {
	ac.probes = nodes
}

func (ac *ACAnalysis) OperatingPoint() *OperatingPoint {
	return ac.op
}

func (ac *ACAnalysis) Setup(ckt *circuit.Circuit) error {
	var err error

	if ckt == nil {
		return errors.New("circuit not set")
	}
	if ckt.GetACMatrix() == nil {
		return errors.New("circuit was built without an ac matrix")
	}
	ac.Circuit = ckt

	for _, p := range ac.probes {
		if _, ok := ckt.NodeIndex(p); !ok {
			return errors.Errorf("probe node %q not in circuit", p)
		}
	}

	ac.frequencies, err = FrequencyPoints(ac.pointsType, ac.numPoints, ac.startFreq, ac.stopFreq)
	if err != nil {
		return err
	}

	if err = ac.op.Setup(ckt); err != nil {
		return errors.Wrap(err, "operating point setup")
	}
	if err = ac.op.Execute(); err != nil {
		return errors.Wrap(err, "operating point analysis")
	}

	return nil
}

func (ac *ACAnalysis) Execute() error {
	return ac.ExecuteContext(context.Background())
}

// ExecuteContext runs the sweep, giving up between frequency points once
// ctx is done.
func (ac *ACAnalysis) ExecuteContext(ctx context.Context) error {
	if ac.Circuit == nil {
		return errors.New("circuit not set")
	}
	mat := ac.Circuit.GetACMatrix()

	for i, freq := range ac.frequencies {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "ac sweep stopped after %d of %d points", i, len(ac.frequencies))
		}
		ac.Circuit.Status = &device.CircuitStatus{
			Frequency: freq,
			Mode:      device.ACAnalysis,
			Temp:      ac.temp,
		}

		mat.Clear()
		if err := ac.Circuit.Stamp(ac.Circuit.Status); err != nil {
			return errors.Wrapf(err, "stamping at f=%g", freq)
		}
		if err := mat.Solve(); err != nil {
			return errors.Wrapf(err, "matrix solve at f=%g", freq)
		}

		solution := make(map[string]complex128)
		if len(ac.probes) > 0 {
			for _, name := range ac.probes {
				idx, _ := ac.Circuit.NodeIndex(name)
				solution[fmt.Sprintf("V(%s)", name)] = mat.ComplexSolution(idx)
			}
		} else {
			for name, nodeIdx := range ac.Circuit.GetNodeMap() {
				solution[fmt.Sprintf("V(%s)", name)] = mat.ComplexSolution(nodeIdx)
			}
			for _, dev := range ac.Circuit.GetDevices() {
				if v, ok := dev.(*device.VoltageSource); ok {
					solution[fmt.Sprintf("I(%s)", dev.GetName())] = -mat.ComplexSolution(v.BranchIndex())
				}
			}
		}

		ac.StoreACResult(freq, solution)
	}
	log.V(2).Infof("ac: %d frequency points solved", len(ac.frequencies))

	return nil
}

// Frequencies returns the sweep points.
func (ac *ACAnalysis) Frequencies() []float64 {
	return ac.frequencies
}

// FrequencyPoints generates the points of a SPICE-style .ac sweep.
func FrequencyPoints(sweep string, points int, fstart, fstop float64) ([]float64, error) {
	if points < 1 {
		return nil, errors.Errorf("ac sweep needs at least one point, got %d", points)
	}
	if fstart <= 0 || fstop < fstart {
		return nil, errors.Errorf("invalid ac range %g..%g", fstart, fstop)
	}

	var base float64
	switch strings.ToUpper(sweep) {
	case "DEC":
		base = 10
	case "OCT":
		base = 2
	case "LIN":
		if points == 1 {
			return []float64{fstart}, nil
		}
		freqs := make([]float64, points)
		step := (fstop - fstart) / float64(points-1)
		for i := range freqs {
			freqs[i] = fstart + float64(i)*step
		}
		return freqs, nil
	default:
		return nil, errors.Errorf("invalid sweep type %q", sweep)
	}

	span := math.Log(fstop/fstart) / math.Log(base)
	count := int(math.Floor(span*float64(points)+1e-9)) + 1
	freqs := make([]float64, count)
	for i := range freqs {
		freqs[i] = fstart * math.Pow(base, float64(i)/float64(points))
	}
	return freqs, nil
}
