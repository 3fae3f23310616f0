package dut

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/edp1096/drvchar/pkg/netlist"
	"github.com/edp1096/drvchar/pkg/pdk"
	"github.com/edp1096/drvchar/pkg/precond"
)

func testProcess(t *testing.T) *pdk.Process {
	t.Helper()
	p, err := pdk.New(pdk.Pvt{Corner: pdk.TT, Voltage: 1.8, TempC: 27})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDiscoverPorts(t *testing.T) {
	sub := &netlist.Subckt{
		Name:  "drv",
		Ports: []string{"din", "dout", "vdd", "vss", "pu_ctl[1]", "pu_ctl[0]", "pd_ctlb[0]", "pd_ctlb[1]", "pd_ctlb[2]"},
	}
	ports, err := DiscoverPorts(sub)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"pu_ctl[0]", "pu_ctl[1]"}; !reflect.DeepEqual(ports.PullUp, want) {
		t.Errorf("PullUp = %v, want %v", ports.PullUp, want)
	}
	if ports.NumPullDown() != 3 || !ports.PullDownActiveLow {
		t.Errorf("PullDown = %v activeLow=%v", ports.PullDown, ports.PullDownActiveLow)
	}

	sub.Ports = []string{"din", "dout", "vdd", "vss", "pu_ctl[0]", "pd_ctl[0]"}
	ports, err = DiscoverPorts(sub)
	if err != nil {
		t.Fatal(err)
	}
	if ports.PullDownActiveLow || ports.NumPullDown() != 1 {
		t.Errorf("active-high bus misclassified: %+v", ports)
	}
}

func TestDiscoverPortsErrors(t *testing.T) {
	base := []string{"din", "dout", "vdd", "vss"}
	tests := []struct {
		name  string
		ports []string
		want  string
	}{
		{"missing din", []string{"dout", "vdd", "vss", "pu_ctl[0]", "pd_ctlb[0]"}, "missing port din"},
		{"gap", append(base, "pu_ctl[0]", "pu_ctl[2]", "pd_ctlb[0]"), "not contiguous"},
		{"no pull-up", append(base, "pd_ctlb[0]"), "no pu_ctl"},
		{"no pull-down", append(base, "pu_ctl[0]"), "no pd_ctlb"},
		{"both polarities", append(base, "pu_ctl[0]", "pd_ctl[0]", "pd_ctlb[0]"), "both"},
		{"stray port", append(base, "pu_ctl[0]", "pd_ctlb[0]", "bias"), "unexpected port bias"},
		{"stray bus", append(base, "pu_ctl[0]", "pd_ctlb[0]", "trim[0]"), "unexpected bus trim"},
		{"duplicate", append(base, "pu_ctl[0]", "pu_ctl[0]", "pd_ctlb[0]"), "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DiscoverPorts(&netlist.Subckt{Name: "x", Ports: tt.ports})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func countTypes(elems []netlist.Element) map[string]int {
	n := map[string]int{}
	for _, e := range elems {
		n[e.Type]++
	}
	return n
}

func TestSegmentedSwitchLevel(t *testing.T) {
	p := DefaultSegmentedParams()
	p.PullUpSegments, p.PullDownSegments = 3, 2
	p.ESD = true
	d, err := NewSegmented(p)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := Instantiate(d, testProcess(t))
	if err != nil {
		t.Fatal(err)
	}
	if inst.Ports.NumPullUp() != 3 || inst.Ports.NumPullDown() != 2 || !inst.Ports.PullDownActiveLow {
		t.Errorf("ports = %+v", inst.Ports)
	}

	got := countTypes(inst.Top.Elements)
	want := map[string]int{"S": 10, "R": 5, "C": 6, "D": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("element counts = %v, want %v", got, want)
	}
}

func TestSegmentedMOSLevel(t *testing.T) {
	p := DefaultSegmentedParams()
	p.Level = MOSLevel
	p.PullUpSegments, p.PullDownSegments = 2, 2
	p.PullDownActiveLow = false
	p.LegCap, p.PadCap = 0, 0
	d, err := NewSegmented(p)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := Instantiate(d, testProcess(t))
	if err != nil {
		t.Fatal(err)
	}
	if inst.Ports.PullDownActiveLow {
		t.Error("expected pd_ctl bus")
	}
	got := countTypes(inst.Top.Elements)
	want := map[string]int{"S": 16, "M": 4, "R": 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("element counts = %v, want %v", got, want)
	}
	for _, e := range inst.Top.Elements {
		if e.Type == "M" && e.Params["w"] == "" {
			t.Errorf("%s has no width", e.Name)
		}
	}
}

func TestSegmentedValidate(t *testing.T) {
	p := DefaultSegmentedParams()
	p.PullDownSegments = 0
	if _, err := NewSegmented(p); err == nil {
		t.Error("zero segments accepted")
	}
	p = DefaultSegmentedParams()
	p.PullUpRes = 0
	if _, err := NewSegmented(p); err == nil {
		t.Error("zero leg resistance accepted")
	}
}

const libText = `* two-segment driver
.subckt drv din dout vdd vss pu_ctl[1:0] pd_ctlb[1:0]
Rpu0 vdd dout 100
Rpu1 vdd dout 100
Rpd0 dout vss 100
Rpd1 dout vss 100
.ends drv
`

func TestFromNetlist(t *testing.T) {
	d, err := FromNetlist(libText, "DRV")
	if err != nil {
		t.Fatal(err)
	}
	if d.Subckt() != "drv" {
		t.Errorf("Subckt() = %q", d.Subckt())
	}
	inst, err := Instantiate(d, testProcess(t))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"pu_ctl[0]", "pu_ctl[1]"}; !reflect.DeepEqual(inst.Ports.PullUp, want) {
		t.Errorf("PullUp = %v", inst.Ports.PullUp)
	}

	if _, err := FromNetlist(libText, "other"); err == nil {
		t.Error("unknown subckt accepted")
	}
	if _, err := FromNetlist(libText+"R1 a b 1\n", "drv"); err == nil {
		t.Error("top-level element accepted")
	}
}

// libDriver hands out a parsed library without checking its ports.
type libDriver struct {
	name string
	lib  *netlist.NetlistData
}

func (d libDriver) Subckt() string { return d.name }
func (d libDriver) Elaborate(*pdk.Process) (*netlist.NetlistData, error) {
	return d.lib, nil
}

func TestInstantiateMissingLegs(t *testing.T) {
	tests := []struct {
		name string
		lib  string
	}{
		{"no pull-down", ".subckt drv din dout vdd vss pu_ctl[0]\nRpu0 vdd dout 100\n.ends drv\n"},
		{"no pull-up", ".subckt drv din dout vdd vss pd_ctl[1:0]\nRpd0 dout vss 100\n.ends drv\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := netlist.ParseLibrary(tt.lib)
			if err != nil {
				t.Fatal(err)
			}
			_, err = Instantiate(libDriver{name: "drv", lib: lib}, testProcess(t))
			if !errors.Is(err, precond.ErrViolation) {
				t.Errorf("Instantiate: err = %v, want a precondition violation", err)
			}
			if _, err := FromNetlist(tt.lib, "drv"); !errors.Is(err, precond.ErrViolation) {
				t.Errorf("FromNetlist: err = %v, want a precondition violation", err)
			}
		})
	}
}

func TestFromNetlistFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "legs.lib"), []byte(libText), 0o644); err != nil {
		t.Fatal(err)
	}
	top := filepath.Join(dir, "top.lib")
	if err := os.WriteFile(top, []byte(".include legs.lib\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromNetlistFile(top, "drv"); err != nil {
		t.Fatal(err)
	}
	if _, err := FromNetlistFile(filepath.Join(dir, "missing.lib"), "drv"); err == nil {
		t.Error("missing file accepted")
	}
}
