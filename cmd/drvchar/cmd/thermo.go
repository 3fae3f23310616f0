package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/drvchar/pkg/thermo"
)

var thermoCmd = &cobra.Command{
	Use:     "thermo <code> <bits>",
	Short:   "Print the thermometer enable mask of a leg count",
	Example: `  drvchar thermo 3 8    # 11100000`,
	Args:    cobra.ExactArgs(2),
	RunE:    runThermo,
}

func init() {
	rootCmd.AddCommand(thermoCmd)
}

func runThermo(cmd *cobra.Command, args []string) error {
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(err, "code %q", args[0])
	}
	bits, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrapf(err, "bits %q", args[1])
	}

	mask, err := thermo.CodeToThermometer(code, bits)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, on := range mask {
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), sb.String())
	return nil
}
