package dut

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
)

// NetlistDriver is a driver read from a SPICE subcircuit library. Models
// the library does not define resolve against the process.
type NetlistDriver struct {
	name string
	lib  *netlist.NetlistData
}

// FromNetlist parses a library of .subckt and .model cards and selects
// subckt as the driver.
func FromNetlist(src, subckt string) (*NetlistDriver, error) {
	lib, err := netlist.ParseLibrary(src)
	if err != nil {
		return nil, errors.Wrap(err, "driver netlist")
	}
	return newNetlistDriver(lib, subckt)
}

// FromNetlistFile is FromNetlist on a file; .include cards are followed.
func FromNetlistFile(path, subckt string) (*NetlistDriver, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "driver netlist")
	}
	lib, err := netlist.ParseLibraryFile(path)
	if err != nil {
		return nil, err
	}
	return newNetlistDriver(lib, subckt)
}

func newNetlistDriver(lib *netlist.NetlistData, subckt string) (*NetlistDriver, error) {
	if len(lib.Elements) > 0 {
		return nil, errors.Errorf("driver netlist has %d top-level elements; only definitions are allowed", len(lib.Elements))
	}
	sub, ok := lib.Subckts[lowerName(subckt)]
	if !ok {
		return nil, errors.Errorf("driver netlist does not define subckt %s", subckt)
	}
	if _, err := DiscoverPorts(sub); err != nil {
		return nil, errors.Wrapf(err, "subckt %s", sub.Name)
	}
	return &NetlistDriver{name: sub.Name, lib: lib}, nil
}

func (d *NetlistDriver) Subckt() string { return d.name }

func (d *NetlistDriver) Elaborate(proc *pdk.Process) (*netlist.NetlistData, error) {
	if proc == nil {
		return nil, errors.New("no process")
	}
	return d.lib, nil
}

func lowerName(s string) string { return strings.ToLower(s) }
