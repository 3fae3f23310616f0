// Package dut describes the output drivers under characterization and the
// port convention they follow.
//
// A driver is a subcircuit with ports din, dout, vdd and vss, a pull-up
// enable bus pu_ctl[0..n-1] (active high) and a pull-down enable bus,
// either pd_ctlb[0..m-1] (active low) or pd_ctl[0..m-1] (active high).
// Each enable bit turns on one output segment.
package dut

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/precond"
)

// Fixed port names.
const (
	PortDin  = "din"
	PortDout = "dout"
	PortVdd  = "vdd"
	PortVss  = "vss"

	BusPullUp       = "pu_ctl"
	BusPullDownLow  = "pd_ctlb"
	BusPullDownHigh = "pd_ctl"
)

// Driver is a parameterized driver design.
type Driver interface {
	// Subckt is the name of the top-level subcircuit.
	Subckt() string
	// Elaborate instantiates the design against a process. The library
	// returned defines Subckt() and everything it references. Callers must
	// not modify it.
	Elaborate(proc *pdk.Process) (*netlist.NetlistData, error)
}

// Ports is the discovered control interface of an elaborated driver.
type Ports struct {
	Order             []string // subckt port order
	PullUp            []string // pu_ctl[0..n-1]
	PullDown          []string // pd_ctlb[0..m-1] or pd_ctl[0..m-1]
	PullDownActiveLow bool
}

func (p Ports) NumPullUp() int   { return len(p.PullUp) }
func (p Ports) NumPullDown() int { return len(p.PullDown) }

// Instance is a driver elaborated for one process.
type Instance struct {
	Library *netlist.NetlistData
	Top     *netlist.Subckt
	Ports   Ports
}

// Instantiate elaborates d and discovers its control ports.
func Instantiate(d Driver, proc *pdk.Process) (*Instance, error) {
	lib, err := d.Elaborate(proc)
	if err != nil {
		return nil, errors.Wrapf(err, "elaborating %s", d.Subckt())
	}
	top, ok := lib.Subckts[strings.ToLower(d.Subckt())]
	if !ok {
		return nil, errors.Errorf("driver library does not define subckt %s", d.Subckt())
	}
	ports, err := DiscoverPorts(top)
	if err != nil {
		return nil, errors.Wrapf(err, "subckt %s", top.Name)
	}
	return &Instance{Library: lib, Top: top, Ports: ports}, nil
}

// DiscoverPorts classifies the ports of a driver subckt. Both enable buses
// must be contiguous from index 0 and hold at least one bit.
func DiscoverPorts(sub *netlist.Subckt) (Ports, error) {
	ports := Ports{Order: append([]string(nil), sub.Ports...)}
	buses := map[string]map[int]string{}
	fixed := map[string]bool{}

	for _, port := range sub.Ports {
		switch port {
		case PortDin, PortDout, PortVdd, PortVss:
			if fixed[port] {
				return Ports{}, errors.Errorf("duplicate port %s", port)
			}
			fixed[port] = true
			continue
		}

		base, idx, ok := netlist.SplitBusBit(port)
		if !ok {
			return Ports{}, errors.Errorf("unexpected port %s", port)
		}
		switch base {
		case BusPullUp, BusPullDownLow, BusPullDownHigh:
		default:
			return Ports{}, errors.Errorf("unexpected bus %s", base)
		}
		if buses[base] == nil {
			buses[base] = map[int]string{}
		}
		if _, dup := buses[base][idx]; dup {
			return Ports{}, errors.Errorf("duplicate port %s", port)
		}
		buses[base][idx] = port
	}

	for _, name := range []string{PortDin, PortDout, PortVdd, PortVss} {
		if !fixed[name] {
			return Ports{}, errors.Errorf("missing port %s", name)
		}
	}

	var err error
	if ports.PullUp, err = contiguous(BusPullUp, buses[BusPullUp]); err != nil {
		return Ports{}, err
	}

	low, high := buses[BusPullDownLow], buses[BusPullDownHigh]
	switch {
	case len(low) > 0 && len(high) > 0:
		return Ports{}, errors.Errorf("driver has both %s and %s buses", BusPullDownLow, BusPullDownHigh)
	case len(high) > 0:
		ports.PullDown, err = contiguous(BusPullDownHigh, high)
	default:
		ports.PullDownActiveLow = true
		ports.PullDown, err = contiguous(BusPullDownLow, low)
	}
	if err != nil {
		return Ports{}, err
	}

	return ports, nil
}

func contiguous(bus string, bits map[int]string) ([]string, error) {
	if len(bits) == 0 {
		return nil, precond.Errorf("no %s bits: a driver needs at least one leg of each kind", bus)
	}
	idx := make([]int, 0, len(bits))
	for i := range bits {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for i, n := range idx {
		if n != i {
			return nil, errors.Errorf("%s bus is not contiguous: missing bit %d", bus, i)
		}
		out[i] = bits[n]
	}
	return out, nil
}
