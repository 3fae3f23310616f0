// Package mna is the built-in simulator backend: the deck is flattened and
// solved with the sparse modified-nodal-analysis engine in this module.
package mna

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/circuit"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/testbench"
)

const Name = "mna"

// DeckFile is written to the work directory when KeepDeck is set.
const DeckFile = "tb.cir"

type Simulator struct {
	KeepDeck bool
}

func New() *Simulator { return &Simulator{} }

func (s *Simulator) Simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*sim.Waveform, error) {
	wave, err := s.simulate(ctx, tb, workDir)
	if err != nil {
		return nil, &sim.Error{Backend: Name, WorkDir: workDir, Err: err}
	}
	return wave, nil
}

func (s *Simulator) simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*sim.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.KeepDeck && workDir != "" {
		if err := writeDeck(tb.Deck, filepath.Join(workDir, DeckFile)); err != nil {
			return nil, err
		}
	}

	ckt, err := Build(tb.Deck, true)
	if err != nil {
		return nil, err
	}
	defer ckt.Destroy()

	if _, ok := ckt.NodeIndex(tb.Probe); !ok {
		return nil, errors.Wrapf(sim.ErrNoProbe, "node %s", tb.Probe)
	}

	ac := analysis.NewAC(tb.AC.FStart, tb.AC.FStop, tb.AC.PointsPerDecade, "DEC")
	ac.SetTolerance(tb.AC.Tolerance)
	ac.SetTemperature(tb.Deck.Temp)
	ac.SetProbes(tb.Probe)

	if err := ac.Setup(ckt); err != nil {
		return nil, err
	}
	if err := ac.ExecuteContext(ctx); err != nil {
		return nil, err
	}

	v, ok := ac.Phasor("V(" + tb.Probe + ")")
	if !ok {
		return nil, errors.Wrapf(sim.ErrNoProbe, "node %s", tb.Probe)
	}
	wave := &sim.Waveform{
		Freq: append([]float64(nil), ac.Frequencies()...),
		V:    append([]complex128(nil), v...),
	}
	if err := wave.Validate(); err != nil {
		return nil, err
	}
	log.V(2).Infof("mna: %s solved, %d points", tb.Deck.Title, wave.Len())
	return wave, nil
}

// Build flattens deck and constructs its circuit. The caller destroys it.
func Build(deck *netlist.NetlistData, isComplex bool) (*circuit.Circuit, error) {
	elements, err := deck.Flatten()
	if err != nil {
		return nil, errors.Wrap(err, "flattening deck")
	}
	ckt, err := circuit.Build(deck.Title, elements, deck.Models, isComplex)
	if err != nil {
		return nil, errors.Wrap(err, "building circuit")
	}
	return ckt, nil
}

// Run solves a stand-alone deck with the analysis its control card selects
// and returns the analysis results keyed like "V(out)_MAG".
func Run(ctx context.Context, deck *netlist.NetlistData, tol analysis.Tolerance) (map[string][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		analyzer  analysis.Analysis
		isComplex bool
	)
	switch deck.Analysis {
	case netlist.AnalysisOP:
		op := analysis.NewOP()
		op.SetTolerance(tol)
		op.SetTemperature(deck.Temp)
		analyzer = op
	case netlist.AnalysisAC:
		p := deck.ACParam
		ac := analysis.NewAC(p.FStart, p.FStop, p.Points, p.Sweep)
		ac.SetTolerance(tol)
		ac.SetTemperature(deck.Temp)
		analyzer, isComplex = ac, true
	default:
		return nil, errors.New("deck has no .op or .ac card")
	}

	ckt, err := Build(deck, isComplex)
	if err != nil {
		return nil, err
	}
	defer ckt.Destroy()

	if err := analyzer.Setup(ckt); err != nil {
		return nil, errors.Wrap(err, "analysis setup")
	}
	if ac, ok := analyzer.(*analysis.ACAnalysis); ok {
		err = ac.ExecuteContext(ctx)
	} else {
		err = analyzer.Execute()
	}
	if err != nil {
		return nil, errors.Wrap(err, "analysis")
	}
	return analyzer.GetResults(), nil
}

func writeDeck(deck *netlist.NetlistData, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating work directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating deck")
	}
	if err := netlist.Write(f, deck, netlist.WriteOptions{}); err != nil {
		f.Close()
		return errors.Wrap(err, "writing deck")
	}
	return f.Close()
}
