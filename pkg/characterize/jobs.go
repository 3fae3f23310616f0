package characterize

import (
	"fmt"
	"path/filepath"

	"github.com/edp1096/drvchar/pkg/precond"
	"github.com/edp1096/drvchar/pkg/thermo"
)

type LegKind int

const (
	PullUp LegKind = iota
	PullDown
)

func (k LegKind) String() string {
	if k == PullDown {
		return "pull-down"
	}
	return "pull-up"
}

// Prefix is the short tag used in job names.
func (k LegKind) Prefix() string {
	if k == PullDown {
		return "pd"
	}
	return "pu"
}

// JobKey locates a job and its result cell.
type JobKey struct {
	Kind      LegKind
	Code      int // enabled legs, from 1
	BiasIndex int
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s_code%d_bias%d", k.Kind.Prefix(), k.Code, k.BiasIndex)
}

// Dir is the job's private work directory under root, or "" without root.
func (k JobKey) Dir(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Join(root, k.String())
}

// Job is one testbench to simulate.
type Job struct {
	Key          JobKey
	Vin          float64
	PullUpMask   []bool
	PullDownMask []bool
	WorkDir      string
}

// BiasVector spaces points input voltages evenly from 0 to vdd inclusive.
func BiasVector(vdd float64, points int) ([]float64, error) {
	if points < 2 {
		return nil, precond.Errorf("sweep points %d: need at least 2", points)
	}
	vin := make([]float64, points)
	for i := range vin {
		vin[i] = vdd * float64(i) / float64(points-1)
	}
	return vin, nil
}

// PlanJobs enumerates pull-up then pull-down codes, each over every bias
// point. The leg family not being swept is fully enabled.
func PlanJobs(npu, npd int, vin []float64, workDir string) ([]Job, error) {
	if npu < 1 || npd < 1 {
		return nil, precond.Errorf("driver needs at least one leg of each kind, has %d/%d", npu, npd)
	}
	if len(vin) < 2 {
		return nil, precond.Errorf("sweep points %d: need at least 2", len(vin))
	}

	jobs := make([]Job, 0, (npu+npd)*len(vin))
	for _, kind := range []LegKind{PullUp, PullDown} {
		bits := npu
		if kind == PullDown {
			bits = npd
		}
		for code := 1; code <= bits; code++ {
			mask, err := thermo.CodeToThermometer(code, bits)
			if err != nil {
				return nil, err
			}
			for b, v := range vin {
				key := JobKey{Kind: kind, Code: code, BiasIndex: b}
				job := Job{Key: key, Vin: v, WorkDir: key.Dir(workDir)}
				swept := append([]bool(nil), mask...)
				if kind == PullUp {
					job.PullUpMask, job.PullDownMask = swept, thermo.AllOn(npd)
				} else {
					job.PullUpMask, job.PullDownMask = thermo.AllOn(npu), swept
				}
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}
