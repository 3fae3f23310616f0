package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/edp1096/drvchar/pkg/analysis"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/sim/mna"
	"github.com/edp1096/drvchar/pkg/util"
)

var spiceTolerance string

var spiceCmd = &cobra.Command{
	Use:   "spice <deck>",
	Short: "Solve a stand-alone SPICE deck with the built-in solver",
	Long: `Runs the .op or .ac card of a deck and prints node voltages and branch
currents. Subcircuits and .include files are expanded first.

Examples:
  drvchar spice divider.cir
  drvchar spice rc.cir --tolerance conservative`,
	Args: cobra.ExactArgs(1),
	RunE: runSpice,
}

func init() {
	rootCmd.AddCommand(spiceCmd)
	spiceCmd.Flags().StringVar(&spiceTolerance, "tolerance", analysis.Default.String(), "solver tolerance: default, moderate, conservative")
}

func runSpice(cmd *cobra.Command, args []string) error {
	tol, err := analysis.ParseTolerance(spiceTolerance)
	if err != nil {
		return err
	}
	deck, err := netlist.ParseFile(args[0])
	if err != nil {
		return err
	}
	log.V(1).Infof("%s: %d elements, %d subckts", args[0], len(deck.Elements), len(deck.Subckts))

	results, err := mna.Run(cmd.Context(), deck, tol)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}

// probeNames returns the sorted V(...) and I(...) base names of results.
// With suffix set only names carrying it are kept, with the suffix removed.
func probeNames(results map[string][]float64, suffix string) (voltages, currents []string) {
	for name := range results {
		base := name
		if suffix != "" {
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			base = strings.TrimSuffix(name, suffix)
		}
		switch {
		case strings.HasPrefix(base, "V("):
			voltages = append(voltages, base)
		case strings.HasPrefix(base, "I("):
			currents = append(currents, base)
		}
	}
	sort.Strings(voltages)
	sort.Strings(currents)
	return voltages, currents
}

func printResults(w io.Writer, results map[string][]float64) {
	// AC
	if freqs, isAC := results["FREQ"]; isAC {
		fmt.Fprintf(w, "AC analysis (%d frequency points)\n", len(freqs))
		voltages, currents := probeNames(results, "_MAG")
		names := append(voltages, currents...)

		for i, freq := range freqs {
			fmt.Fprintf(w, "%-13s", util.FormatFrequency(freq))
			for _, name := range names {
				mag, ok := results[name+"_MAG"]
				if !ok {
					continue
				}
				phase, ok := results[name+"_PHASE"]
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s=%s<%sdeg  ", name, util.FormatMagnitude(mag[i]), util.FormatPhase(phase[i]))
			}
			fmt.Fprintln(w)
		}
		return
	}

	// Operating point
	voltages, currents := probeNames(results, "")
	fmt.Fprintln(w, "Node voltages:")
	for _, name := range voltages {
		fmt.Fprintf(w, "  %s = %s\n", name, util.FormatValueFactor(results[name][0], "V"))
	}
	fmt.Fprintln(w, "Branch currents:")
	for _, name := range currents {
		fmt.Fprintf(w, "  %s = %s\n", name, util.FormatValueFactor(results[name][0], "A"))
	}
}
