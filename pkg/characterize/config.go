// Package characterize sweeps a segmented driver over every enabled-leg
// count and input bias, extracts the output resistance of each setting and
// assembles the results into a dense table.
package characterize

import (
	"math"
	"runtime"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/precond"
	"github.com/edp1096/drvchar/pkg/testbench"
)

// Params describes one characterization run.
type Params struct {
	// Driver is elaborated once per job; Elaborate must be safe for
	// concurrent use.
	Driver dut.Driver
	Pvt    pdk.Pvt

	FStart          float64
	FStop           float64
	PointsPerDecade int
	Tolerance       analysis.Tolerance

	// SweepPoints input bias points from 0 to the supply, inclusive.
	SweepPoints int
}

func DefaultParams() Params {
	ac := testbench.DefaultACConfig()
	return Params{
		Pvt:             pdk.Pvt{Corner: pdk.TT, Voltage: 1.8, TempC: 27},
		FStart:          ac.FStart,
		FStop:           ac.FStop,
		PointsPerDecade: ac.PointsPerDecade,
		Tolerance:       ac.Tolerance,
		SweepPoints:     5,
	}
}

func (p Params) Validate() error {
	if p.Driver == nil {
		return precond.Errorf("no driver to characterize")
	}
	if p.SweepPoints < 2 {
		return precond.Errorf("sweep points %d: need at least 2", p.SweepPoints)
	}
	if !(p.Pvt.Voltage > 0) || math.IsInf(p.Pvt.Voltage, 0) {
		return precond.Errorf("supply voltage %g must be positive", p.Pvt.Voltage)
	}
	if err := p.Pvt.Validate(); err != nil {
		return precond.Errorf("%v", err)
	}
	return p.ACConfig().Validate()
}

func (p Params) ACConfig() testbench.ACConfig {
	return testbench.ACConfig{
		FStart:          p.FStart,
		FStop:           p.FStop,
		PointsPerDecade: p.PointsPerDecade,
		Tolerance:       p.Tolerance,
	}
}

// Options control execution, not results.
type Options struct {
	// Workers bounds concurrent simulations.
	Workers int
	// FailFast cancels the run at the first job failure. Otherwise every
	// job runs and failures are listed in Result.Failures.
	FailFast bool
	// Progress, if set, receives one event per finished job. The channel
	// must be drained or buffered.
	Progress chan<- Progress
}

func DefaultOptions() *Options {
	return &Options{
		Workers:  runtime.NumCPU(),
		FailFast: true,
	}
}

func (o *Options) Validate() error {
	if o.Workers < 1 {
		return precond.Errorf("workers %d must be at least 1", o.Workers)
	}
	return nil
}

// Progress reports a finished job.
type Progress struct {
	Key   JobKey
	Done  int
	Total int
	Err   error
}
