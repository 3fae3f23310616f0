// Package ngspice runs testbenches through an external ngspice binary in
// batch mode.
package ngspice

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/testbench"
)

const (
	Name       = "ngspice"
	DeckFile   = "tb.cir"
	DataFile   = "ac.dat"
	LogFile    = "ngspice.log"
	DefaultBin = "ngspice"
)

type Simulator struct {
	Binary string
}

func New(binary string) *Simulator {
	if binary == "" {
		binary = DefaultBin
	}
	return &Simulator{Binary: binary}
}

// Available reports whether the binary can be found.
func (s *Simulator) Available() bool {
	_, err := exec.LookPath(s.Binary)
	return err == nil
}

func (s *Simulator) Simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*sim.Waveform, error) {
	wave, err := s.simulate(ctx, tb, workDir)
	if err != nil {
		return nil, &sim.Error{Backend: Name, WorkDir: workDir, Err: err}
	}
	return wave, nil
}

func (s *Simulator) simulate(ctx context.Context, tb *testbench.Testbench, workDir string) (*sim.Waveform, error) {
	if workDir == "" {
		return nil, errors.New("ngspice needs a work directory")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating work directory")
	}

	var deck bytes.Buffer
	if err := WriteDeck(&deck, tb); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(workDir, DeckFile), deck.Bytes(), 0o644); err != nil {
		return nil, errors.Wrap(err, "writing deck")
	}

	cmd := exec.CommandContext(ctx, s.Binary, "-b", DeckFile)
	cmd.Dir = workDir
	out, runErr := cmd.CombinedOutput()
	if err := os.WriteFile(filepath.Join(workDir, LogFile), out, 0o644); err != nil {
		log.Warningf("ngspice: saving log in %s: %v", workDir, err)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(runErr, "running %s (see %s)", s.Binary, LogFile)
	}

	f, err := os.Open(filepath.Join(workDir, DataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(sim.ErrNoProbe, "%s not written", DataFile)
		}
		return nil, errors.Wrap(err, "opening results")
	}
	defer f.Close()

	wave, err := ParseWrdata(f)
	if err != nil {
		return nil, err
	}
	log.V(2).Infof("ngspice: %s, %d points", workDir, wave.Len())
	return wave, nil
}

// WriteDeck renders tb with a control block that saves the probe voltage.
// Bus brackets become underscores since ngspice reads them as vector
// indices.
func WriteDeck(w io.Writer, tb *testbench.Testbench) error {
	probe := strings.NewReplacer("[", "_", "]", "").Replace(tb.Probe)
	return netlist.Write(w, tb.Deck, netlist.WriteOptions{
		Sanitize: true,
		Control: []string{
			".control",
			"set wr_singlescale",
			"set wr_vecnames",
			"run",
			"wrdata " + DataFile + " v(" + probe + ")",
			".endc",
		},
	})
}

// ParseWrdata reads wrdata output of one complex vector over frequency.
// Rows are "freq re im", or "freq freq_im re im" when the scale is
// written as a complex vector. Non-numeric header rows are skipped.
func ParseWrdata(r io.Reader) (*sim.Waveform, error) {
	wave := &sim.Waveform{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		vals := make([]float64, len(fields))
		numeric := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				numeric = false
				break
			}
			vals[i] = v
		}
		if !numeric {
			if len(wave.Freq) > 0 {
				return nil, errors.Wrapf(sim.ErrMalformed, "line %d: %q", line, scanner.Text())
			}
			continue
		}

		switch len(vals) {
		case 3:
			wave.Freq = append(wave.Freq, vals[0])
			wave.V = append(wave.V, complex(vals[1], vals[2]))
		case 4:
			wave.Freq = append(wave.Freq, vals[0])
			wave.V = append(wave.V, complex(vals[2], vals[3]))
		default:
			return nil, errors.Wrapf(sim.ErrMalformed, "line %d: %d columns", line, len(vals))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading results")
	}
	if err := wave.Validate(); err != nil {
		return nil, err
	}
	return wave, nil
}
