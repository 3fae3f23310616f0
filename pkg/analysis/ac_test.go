package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/edp1096/drvchar/pkg/circuit"
	"github.com/edp1096/drvchar/pkg/netlist"
)

func parallelRC(t *testing.T) *circuit.Circuit {
	t.Helper()
	deck, err := netlist.Parse(`* parallel rc
Iac 0 out AC 1 0
R1 out 0 1k
C1 out 0 1n
.end
`)
	if err != nil {
		t.Fatal(err)
	}
	elements, err := deck.Flatten()
	if err != nil {
		t.Fatal(err)
	}
	ckt, err := circuit.Build(deck.Title, elements, deck.Models, true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ckt.Destroy)
	return ckt
}

func TestACExecuteContext(t *testing.T) {
	ac := NewAC(1e3, 1e6, 10, "DEC")
	ac.SetProbes("out")
	if err := ac.Setup(parallelRC(t)); err != nil {
		t.Fatal(err)
	}
	if err := ac.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(ac.GetResults()["FREQ"]); n != 31 {
		t.Errorf("got %d points, want 31", n)
	}
	if v, ok := ac.Phasor("V(out)"); !ok || len(v) != 31 {
		t.Errorf("V(out) has %d samples", len(v))
	}
}

func TestACExecuteContextCanceled(t *testing.T) {
	ac := NewAC(1e3, 1e6, 10, "DEC")
	ac.SetProbes("out")
	if err := ac.Setup(parallelRC(t)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ac.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n := len(ac.GetResults()["FREQ"]); n != 0 {
		t.Errorf("%d points solved after cancel", n)
	}
}
