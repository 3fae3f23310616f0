package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/drvchar/pkg/dut"
	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/testbench"
	"github.com/edp1096/drvchar/pkg/thermo"
)

var (
	tbDriver driverFlags
	tbPvt    pvtFlags

	tbKind     string
	tbCode     int
	tbVin      float64
	tbSanitize bool
)

var tbCmd = &cobra.Command{
	Use:   "tb",
	Short: "Print the testbench deck of one sweep job",
	Long: `Assembles the testbench for one leg family, enabled leg count and input
bias and writes it as a SPICE deck. The other leg family is fully enabled.

Examples:
  drvchar tb --kind pd --code 3 --vin 0.9
  drvchar tb --kind pu --code 8 --sanitize > pu8.cir`,
	Args: cobra.NoArgs,
	RunE: runTb,
}

func init() {
	rootCmd.AddCommand(tbCmd)

	tbDriver.register(tbCmd)
	tbPvt.register(tbCmd)

	fs := tbCmd.Flags()
	fs.StringVar(&tbKind, "kind", "pd", "swept leg family: pu or pd")
	fs.IntVar(&tbCode, "code", 1, "enabled legs of the swept family")
	fs.Float64Var(&tbVin, "vin", 0, "input bias (V)")
	fs.BoolVar(&tbSanitize, "sanitize", false, "rewrite bus bits a[3] as a_3")
}

func runTb(cmd *cobra.Command, args []string) error {
	d, err := tbDriver.driver()
	if err != nil {
		return err
	}
	pvt, err := tbPvt.pvt()
	if err != nil {
		return err
	}
	ac, err := tbPvt.ac()
	if err != nil {
		return err
	}

	proc, err := pdk.New(pvt)
	if err != nil {
		return err
	}
	inst, err := dut.Instantiate(d, proc)
	if err != nil {
		return err
	}

	npu, npd := inst.Ports.NumPullUp(), inst.Ports.NumPullDown()
	var puMask, pdMask []bool
	switch tbKind {
	case "pu":
		if puMask, err = thermo.CodeToThermometer(tbCode, npu); err != nil {
			return err
		}
		pdMask = thermo.AllOn(npd)
	case "pd":
		if pdMask, err = thermo.CodeToThermometer(tbCode, npd); err != nil {
			return err
		}
		puMask = thermo.AllOn(npu)
	default:
		return errors.Errorf("unknown leg kind %q, want pu or pd", tbKind)
	}

	tb, err := testbench.Assemble(inst, proc, tbVin, puMask, pdMask, ac)
	if err != nil {
		return err
	}
	return netlist.Write(os.Stdout, tb.Deck, netlist.WriteOptions{Sanitize: tbSanitize})
}
