package netlist

import (
	"reflect"
	"testing"
)

func TestExpandPorts(t *testing.T) {
	for _, tc := range []struct {
		in   []string
		want []string
	}{
		{[]string{"din", "dout"}, []string{"din", "dout"}},
		{[]string{"pu_ctl[3:0]"}, []string{"pu_ctl[3]", "pu_ctl[2]", "pu_ctl[1]", "pu_ctl[0]"}},
		{[]string{"pd_ctlb[0:1]", "vss"}, []string{"pd_ctlb[0]", "pd_ctlb[1]", "vss"}},
		{[]string{"a[2]"}, []string{"a[2]"}},
		{[]string{"0", "n1"}, []string{"0", "n1"}},
	} {
		got, err := ExpandPorts(tc.in...)
		if err != nil {
			t.Fatalf("ExpandPorts(%v): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ExpandPorts(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"a[", "a[x]", "a[-1:0]"} {
		if _, err := ExpandPorts(bad); err == nil {
			t.Errorf("ExpandPorts(%q): expected error", bad)
		}
	}
}

func TestSplitBusBit(t *testing.T) {
	base, idx, ok := SplitBusBit("pu_ctl[12]")
	if !ok || base != "pu_ctl" || idx != 12 {
		t.Errorf("SplitBusBit(pu_ctl[12]) = %q, %d, %v", base, idx, ok)
	}
	if _, _, ok := SplitBusBit("din"); ok {
		t.Error("SplitBusBit(din) reported a bus bit")
	}
	if _, _, ok := SplitBusBit("a[1:0]"); ok {
		t.Error("SplitBusBit(a[1:0]) reported a single bit")
	}
}
