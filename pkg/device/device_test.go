package device

import (
	"math"
	"testing"
)

// recorder is a DeviceMatrix that keeps the sum of every stamp.
type recorder struct {
	a   map[[2]int]complex128
	rhs map[int]complex128
}

func newRecorder() *recorder {
	return &recorder{a: map[[2]int]complex128{}, rhs: map[int]complex128{}}
}

func (r *recorder) AddElement(i, j int, v float64) { r.a[[2]int{i, j}] += complex(v, 0) }
func (r *recorder) AddRHS(i int, v float64)        { r.rhs[i] += complex(v, 0) }
func (r *recorder) AddComplexElement(i, j int, re, im float64) {
	r.a[[2]int{i, j}] += complex(re, im)
}
func (r *recorder) AddComplexRHS(i int, re, im float64) { r.rhs[i] += complex(re, im) }

func TestSwitchHysteresis(t *testing.T) {
	sw := NewSwitch("S1", []string{"a", "0", "c", "0"})
	sw.SetNodes([]int{1, 0, 2, 0})
	sw.SetModelParameters(map[string]float64{"vt": 0.5, "vh": 0.1, "ron": 10, "roff": 1e6})

	steps := []struct {
		vc     float64
		closed bool
	}{
		{0.55, false}, // inside the band, keeps the initial open state
		{0.65, true},
		{0.5, true},
		{0.35, false},
		{0.5, false},
	}
	for _, s := range steps {
		if err := sw.UpdateVoltages([]float64{0, 0, s.vc}); err != nil {
			t.Fatal(err)
		}
		if sw.Closed() != s.closed {
			t.Errorf("vc=%g: closed=%v, want %v", s.vc, sw.Closed(), s.closed)
		}
	}
}

func TestSwitchStamp(t *testing.T) {
	sw := NewSwitch("S1", []string{"a", "b", "c", "0"})
	sw.SetNodes([]int{1, 2, 3, 0})
	sw.SetModelParameters(map[string]float64{"ron": 20, "roff": 1e9})
	sw.SetInitialState(true)

	r := newRecorder()
	if err := sw.Stamp(r, &CircuitStatus{Mode: OperatingPointAnalysis}); err != nil {
		t.Fatal(err)
	}
	if got := real(r.a[[2]int{1, 1}]); math.Abs(got-0.05) > 1e-15 {
		t.Errorf("G(1,1) = %g, want 0.05", got)
	}
	if got := real(r.a[[2]int{1, 2}]); math.Abs(got+0.05) > 1e-15 {
		t.Errorf("G(1,2) = %g, want -0.05", got)
	}
	if _, ok := r.a[[2]int{3, 3}]; ok {
		t.Error("control nodes must not be loaded")
	}
}

func TestCapacitorAC(t *testing.T) {
	c := NewCapacitor("C1", []string{"a", "0"}, 1e-3)
	c.SetNodes([]int{1, 0})

	r := newRecorder()
	if err := c.Stamp(r, &CircuitStatus{Mode: ACAnalysis, Frequency: 1 / (2 * math.Pi)}); err != nil {
		t.Fatal(err)
	}
	if got := r.a[[2]int{1, 1}]; math.Abs(real(got)) > 1e-18 || math.Abs(imag(got)-1e-3) > 1e-15 {
		t.Errorf("Y(1,1) = %v, want 1e-3j", got)
	}
}

func TestCurrentSourceDirection(t *testing.T) {
	// I 0 out: current enters out.
	src := NewACCurrentSource("Iac", []string{"0", "out"}, 2, 1, 90)
	src.SetNodes([]int{0, 1})

	r := newRecorder()
	if err := src.Stamp(r, &CircuitStatus{Mode: OperatingPointAnalysis}); err != nil {
		t.Fatal(err)
	}
	if got := real(r.rhs[1]); got != 2 {
		t.Errorf("dc rhs = %g, want 2", got)
	}

	r = newRecorder()
	if err := src.Stamp(r, &CircuitStatus{Mode: ACAnalysis, Frequency: 1e3}); err != nil {
		t.Fatal(err)
	}
	if got := r.rhs[1]; math.Abs(real(got)) > 1e-12 || math.Abs(imag(got)-1) > 1e-12 {
		t.Errorf("ac rhs = %v, want 1j", got)
	}
}

func TestResistorTemperature(t *testing.T) {
	res := NewResistor("R1", []string{"a", "0"}, 100)
	res.SetNodes([]int{1, 0})
	res.SetTempCoefficients(1e-3, 0)

	r := newRecorder()
	if err := res.Stamp(r, &CircuitStatus{Temp: res.Tnom + 100}); err != nil {
		t.Fatal(err)
	}
	if got := real(r.a[[2]int{1, 1}]); math.Abs(got-1/110.0) > 1e-12 {
		t.Errorf("G = %g, want 1/110", got)
	}
}

func TestMosfetRegions(t *testing.T) {
	m := NewMosfet("M1", []string{"d", "g", "0", "0"})
	m.SetNodes([]int{1, 2, 0, 0})
	m.SetModel(ModelParam{Type: "NMOS", Params: map[string]float64{"vto": 0.5, "kp": 1e-4}})

	tests := []struct {
		vd, vg float64
		region int
	}{
		{1.0, 0.3, CUTOFF},
		{2.0, 1.5, SATURATION},
		{0.2, 1.5, LINEAR},
	}
	for _, tt := range tests {
		if err := m.UpdateVoltages([]float64{0, tt.vd, tt.vg}); err != nil {
			t.Fatal(err)
		}
		if err := m.Stamp(newRecorder(), &CircuitStatus{Mode: OperatingPointAnalysis}); err != nil {
			t.Fatal(err)
		}
		if m.Region() != tt.region {
			t.Errorf("vd=%g vg=%g: region %d, want %d", tt.vd, tt.vg, m.Region(), tt.region)
		}
	}

	// Saturation, W=L: id = kp/2 * vov^2.
	m.UpdateVoltages([]float64{0, 2.0, 1.5})
	m.Stamp(newRecorder(), &CircuitStatus{Mode: OperatingPointAnalysis})
	if got := m.Current(); math.Abs(got-0.5e-4) > 1e-12 {
		t.Errorf("id = %g, want 5e-5", got)
	}
}
