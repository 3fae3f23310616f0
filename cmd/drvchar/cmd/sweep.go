package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/drvchar/pkg/characterize"
	"github.com/edp1096/drvchar/pkg/sim"
	"github.com/edp1096/drvchar/pkg/sim/mna"
	"github.com/edp1096/drvchar/pkg/sim/ngspice"
)

var (
	sweepDriver driverFlags
	sweepPvt    pvtFlags

	sweepPoints  int
	sweepWorkers int
	collectAll   bool
	backend      string
	ngspiceBin   string
	workDir      string
	keepDecks    bool
	sweepFormat  string
	sweepOutput  string
	showProgress bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Characterize a driver over every leg count and input bias",
	Long: `Runs one AC simulation per (leg family, enabled legs, bias point) and
reports the extracted output resistance.

Examples:
  drvchar sweep --segments 4 --points 3
  drvchar sweep --level mos --corner ss --vdd 1.62 --temp 125 --format csv -o ss.csv
  drvchar sweep --backend ngspice --workdir runs/ --collect-all`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepDriver.register(sweepCmd)
	sweepPvt.register(sweepCmd)

	def := characterize.DefaultOptions()
	fs := sweepCmd.Flags()
	fs.IntVar(&sweepPoints, "points", characterize.DefaultParams().SweepPoints, "input bias points from 0 to vdd")
	fs.IntVar(&sweepWorkers, "workers", def.Workers, "concurrent simulations")
	fs.BoolVar(&collectAll, "collect-all", false, "keep going after a job fails and report failures")
	fs.StringVar(&backend, "backend", mna.Name, "simulator backend: mna or ngspice")
	fs.StringVar(&ngspiceBin, "ngspice", ngspice.DefaultBin, "ngspice binary")
	fs.StringVar(&workDir, "workdir", "", "directory for per-job decks and logs (default: temporary)")
	fs.BoolVar(&keepDecks, "keep", false, "keep the work directory; the mna backend also writes its decks")
	fs.StringVar(&sweepFormat, "format", "text", "report format: text, json or csv")
	fs.StringVarP(&sweepOutput, "output", "o", "", "write the report to a file")
	fs.BoolVar(&showProgress, "progress", false, "print job progress to stderr")
}

func newSimulator() (sim.Simulator, error) {
	switch backend {
	case mna.Name:
		return &mna.Simulator{KeepDeck: keepDecks}, nil
	case ngspice.Name:
		s := ngspice.New(ngspiceBin)
		if !s.Available() {
			return nil, errors.Errorf("%s not found", ngspiceBin)
		}
		return s, nil
	}
	return nil, errors.Errorf("unknown backend %q", backend)
}

func runSweep(cmd *cobra.Command, args []string) error {
	d, err := sweepDriver.driver()
	if err != nil {
		return err
	}
	pvt, err := sweepPvt.pvt()
	if err != nil {
		return err
	}
	ac, err := sweepPvt.ac()
	if err != nil {
		return err
	}

	p := characterize.Params{
		Driver:          d,
		Pvt:             pvt,
		FStart:          ac.FStart,
		FStop:           ac.FStop,
		PointsPerDecade: ac.PointsPerDecade,
		Tolerance:       ac.Tolerance,
		SweepPoints:     sweepPoints,
	}
	opts := characterize.DefaultOptions()
	opts.Workers = sweepWorkers
	opts.FailFast = !collectAll

	s, err := newSimulator()
	if err != nil {
		return err
	}

	dir := workDir
	if dir == "" && (backend == ngspice.Name || keepDecks) {
		if dir, err = os.MkdirTemp("", "drvchar-"); err != nil {
			return errors.Wrap(err, "creating work directory")
		}
		if keepDecks {
			fmt.Fprintf(os.Stderr, "work directory: %s\n", dir)
		} else {
			defer os.RemoveAll(dir)
		}
	}

	if showProgress {
		ch := make(chan characterize.Progress)
		opts.Progress = ch
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range ch {
				status := "ok"
				if ev.Err != nil {
					status = "FAILED"
				}
				fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", ev.Done, ev.Total, ev.Key, status)
			}
		}()
		defer func() {
			close(ch)
			<-done
		}()
	}

	res, err := characterize.SimulateDriver(cmd.Context(), p, s, dir, opts)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if sweepOutput != "" {
		f, err := os.Create(sweepOutput)
		if err != nil {
			return errors.Wrap(err, "creating report")
		}
		defer f.Close()
		out = f
	}

	switch sweepFormat {
	case "json":
		err = characterize.WriteJSON(out, res)
	case "csv":
		err = characterize.WriteCSV(out, res)
	case "text":
		err = characterize.WriteSummary(out, res)
	default:
		return errors.Errorf("unknown format %q", sweepFormat)
	}
	if err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		return errors.Errorf("%d of %d jobs failed", len(res.Failures),
			(len(res.PullUpCodes)+len(res.PullDownCodes))*len(res.Vin))
	}
	return nil
}
