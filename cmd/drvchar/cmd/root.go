package cmd

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "drvchar",
	Short: "Output driver impedance characterization",
	Long: `Characterizes segmented push-pull output drivers: for every number of
enabled pull-up and pull-down legs and every input bias it runs an AC
small-signal simulation and extracts the output resistance R(f) = 1/Re(1/Z).

Examples:
  drvchar sweep --segments 8 --points 5                        # Built-in switch-level driver
  drvchar sweep --netlist drv.lib --subckt drv --format json    # Driver from a SPICE library
  drvchar tb --kind pd --code 3 --vin 0.9                       # Print one testbench deck
  drvchar spice deck.cir                                        # Run a stand-alone deck`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its flags from the standard flag set.
		return goflag.CommandLine.Parse(nil)
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	log.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
	rootCmd.SilenceErrors = true
}
