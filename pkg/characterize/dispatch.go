package characterize

import (
	"context"
	"sync/atomic"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/extract"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/testbench"
)

// SimulateDriver characterizes p.Driver: for every code of each leg family
// and every bias point it simulates one testbench and extracts R(f). Jobs
// run on a pool of opts.Workers; workDir, if set, receives one
// subdirectory per job. A nil opts means DefaultOptions.
func SimulateDriver(ctx context.Context, p Params, s sim.Simulator, workDir string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("no simulator")
	}

	proc, err := pdk.New(p.Pvt)
	if err != nil {
		return nil, err
	}
	inst, err := dut.Instantiate(p.Driver, proc)
	if err != nil {
		return nil, err
	}
	npu, npd := inst.Ports.NumPullUp(), inst.Ports.NumPullDown()

	vin, err := BiasVector(p.Pvt.Voltage, p.SweepPoints)
	if err != nil {
		return nil, err
	}
	jobs, err := PlanJobs(npu, npd, vin, workDir)
	if err != nil {
		return nil, err
	}

	log.Infof("characterize: %s at %s, %d pull-up x %d pull-down legs, %d bias points, %d jobs on %d workers",
		p.Driver.Subckt(), p.Pvt, npu, npd, len(vin), len(jobs), opts.Workers)

	outcomes := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var done atomic.Int64
	for i := range jobs {
		g.Go(func() error {
			job := jobs[i]
			log.V(1).Infof("characterize: start %s (vin=%g)", job.Key, job.Vin)

			out := runJob(gctx, p, proc, s, job)
			outcomes[i] = out

			n := int(done.Add(1))
			if out.err != nil {
				log.V(1).Infof("characterize: %s failed: %v", job.Key, out.err)
			} else {
				log.V(1).Infof("characterize: done %s (%d/%d)", job.Key, n, len(jobs))
			}
			if opts.Progress != nil {
				ev := Progress{Key: job.Key, Done: n, Total: len(jobs), Err: out.err}
				select {
				case opts.Progress <- ev:
				case <-gctx.Done():
				}
			}

			if out.err != nil && opts.FailFast {
				return out.err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "characterization cancelled")
	}

	res, err := aggregate(jobs, outcomes, vin, npu, npd)
	if err != nil {
		return nil, err
	}
	res.Pvt = p.Pvt
	res.Driver = p.Driver.Subckt()

	log.Infof("characterize: %s finished, %d/%d jobs ok", res.Driver, len(jobs)-len(res.Failures), len(jobs))
	return res, nil
}

type outcome struct {
	freq  []float64
	curve extract.Curve
	err   error
}

// runJob owns everything it touches except the simulator: a private process
// copy, a fresh elaboration and its own testbench.
func runJob(ctx context.Context, p Params, base *pdk.Process, s sim.Simulator, job Job) (out outcome) {
	fail := func(err error) outcome {
		return outcome{err: &JobError{Key: job.Key, Err: err}}
	}
	defer func() {
		if r := recover(); r != nil {
			out = fail(errors.Wrapf(ErrJobPanicked, "%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	proc := base.Clone()
	inst, err := dut.Instantiate(p.Driver, proc)
	if err != nil {
		return fail(err)
	}
	tb, err := testbench.Assemble(inst, proc, job.Vin, job.PullUpMask, job.PullDownMask, p.ACConfig())
	if err != nil {
		return fail(err)
	}

	wave, err := s.Simulate(ctx, tb, job.WorkDir)
	if err != nil {
		return fail(err)
	}
	if err := wave.Validate(); err != nil {
		return fail(err)
	}
	curve, err := extract.Resistance(wave.Freq, wave.V)
	if err != nil {
		return fail(err)
	}
	return outcome{freq: wave.Freq, curve: curve}
}
