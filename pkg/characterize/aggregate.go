package characterize

import (
	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/extract"
	"github.com/edp1096/drvchar/pkg/pdk"
)

// freqTol is the relative tolerance for two jobs' frequency points to count
// as the same grid.
const freqTol = 1e-9

// Result is the characterization table. RPullUp[code-1][bias] is the curve
// with code pull-up legs enabled at input Vin[bias]; RPullDown likewise.
// Cells of failed jobs are nil.
type Result struct {
	Driver string
	Pvt    pdk.Pvt

	RPullUp       [][]extract.Curve
	RPullDown     [][]extract.Curve
	Freq          []float64
	Vin           []float64
	PullUpCodes   []int
	PullDownCodes []int

	Failures []*JobError
}

func newResult(npu, npd int, vin []float64) *Result {
	r := &Result{
		RPullUp:       make([][]extract.Curve, npu),
		RPullDown:     make([][]extract.Curve, npd),
		Vin:           append([]float64(nil), vin...),
		PullUpCodes:   make([]int, npu),
		PullDownCodes: make([]int, npd),
	}
	for i := range r.RPullUp {
		r.RPullUp[i] = make([]extract.Curve, len(vin))
		r.PullUpCodes[i] = i + 1
	}
	for i := range r.RPullDown {
		r.RPullDown[i] = make([]extract.Curve, len(vin))
		r.PullDownCodes[i] = i + 1
	}
	return r
}

// Table returns the rows of one leg family.
func (r *Result) Table(kind LegKind) [][]extract.Curve {
	if kind == PullDown {
		return r.RPullDown
	}
	return r.RPullUp
}

// Curve returns the cell for key, or false if it is out of range or empty.
func (r *Result) Curve(key JobKey) (extract.Curve, bool) {
	t := r.Table(key.Kind)
	if key.Code < 1 || key.Code > len(t) || key.BiasIndex < 0 || key.BiasIndex >= len(r.Vin) {
		return nil, false
	}
	c := t[key.Code-1][key.BiasIndex]
	return c, c != nil
}

// aggregate folds outcomes, indexed like jobs, into a Result. It runs after
// every job has finished.
func aggregate(jobs []Job, outcomes []outcome, vin []float64, npu, npd int) (*Result, error) {
	if len(jobs) != len(outcomes) {
		return nil, errors.Errorf("%d outcomes for %d jobs", len(outcomes), len(jobs))
	}
	res := newResult(npu, npd, vin)

	var freqFrom JobKey
	for i, job := range jobs {
		out := outcomes[i]
		if out.err != nil {
			jerr, ok := out.err.(*JobError)
			if !ok {
				jerr = &JobError{Key: job.Key, Err: out.err}
			}
			log.Warningf("characterize: %v", jerr)
			res.Failures = append(res.Failures, jerr)
			continue
		}

		if res.Freq == nil {
			res.Freq = append([]float64(nil), out.freq...)
			freqFrom = job.Key
		} else if !extract.SameFrequencies(res.Freq, out.freq, freqTol) {
			return nil, errors.Wrapf(ErrFrequencyMismatch, "%s has %d points, %s has %d",
				job.Key, len(out.freq), freqFrom, len(res.Freq))
		}

		row := res.Table(job.Key.Kind)
		code, bias := job.Key.Code, job.Key.BiasIndex
		if code < 1 || code > len(row) || bias < 0 || bias >= len(vin) {
			return nil, errors.Errorf("job %s outside the %dx%d table", job.Key, len(row), len(vin))
		}
		if row[code-1][bias] != nil {
			return nil, errors.Errorf("job %s written twice", job.Key)
		}
		row[code-1][bias] = out.curve
	}

	return res, nil
}
