package matrix

import (
	"fmt"
	"io"

	"github.com/edp1096/sparse"
	log "github.com/golang/glog"
	"github.com/pkg/errors"
)

// DeviceMatrix is what a device stamps into. Indices are 1-based; 0 is
// ground and is never passed.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
	AddComplexElement(i, j int, real, imag float64)
	AddComplexRHS(i int, real, imag float64)
}

var _ DeviceMatrix = (*CircuitMatrix)(nil)

// CircuitMatrix is the MNA system of a circuit. Node equations occupy rows
// 1..n, voltage source branch equations follow. A complex matrix keeps its
// RHS and solution interleaved: real part at 2*i, imaginary part at 2*i+1.
type CircuitMatrix struct {
	Size      int
	matrix    *sparse.Matrix
	rhs       []float64
	solution  []float64
	isComplex bool
	config    *sparse.Configuration
}

func NewMatrix(size int, isComplex bool) (*CircuitMatrix, error) {
	if size <= 0 {
		return nil, errors.Errorf("matrix size %d must be positive", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, errors.Wrap(err, "creating sparse matrix")
	}

	vectorSize := size + 1 // 1-based indexing
	if isComplex {
		vectorSize *= 2
	}

	return &CircuitMatrix{
		Size:      size,
		matrix:    mat,
		rhs:       make([]float64, vectorSize),
		solution:  make([]float64, vectorSize),
		isComplex: isComplex,
		config:    config,
	}, nil
}

// SetupElements allocates every element up front so the sparsity pattern
// does not change between factorizations.
func (m *CircuitMatrix) SetupElements() {
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			m.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (m *CircuitMatrix) inBounds(i, j int) bool {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		log.Warningf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size)
		return false
	}
	return true
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if !m.inBounds(i, j) {
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

func (m *CircuitMatrix) AddComplexElement(i, j int, real, imag float64) {
	if !m.inBounds(i, j) {
		return
	}
	element := m.matrix.GetElement(int64(i), int64(j))
	element.Real += real
	element.Imag += imag
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if !m.inBounds(i, 1) {
		return
	}
	if m.isComplex {
		m.rhs[2*i] += value
		return
	}
	m.rhs[i] += value
}

func (m *CircuitMatrix) AddComplexRHS(i int, real, imag float64) {
	if !m.inBounds(i, 1) {
		return
	}
	if !m.isComplex {
		m.rhs[i] += real
		return
	}
	m.rhs[2*i] += real
	m.rhs[2*i+1] += imag
}

func (m *CircuitMatrix) LoadGmin(gmin float64) {
	if gmin == 0 {
		return
	}
	// External indices: after the first factorization the internal
	// diagonal no longer lines up with node i.
	for i := 1; i <= m.Size; i++ {
		m.matrix.GetElement(int64(i), int64(i)).Real += gmin
	}
}

func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *CircuitMatrix) Solve() error {
	var err error

	if err = m.matrix.Factor(); err != nil {
		return errors.Wrap(err, "matrix factorization failed")
	}

	if m.isComplex {
		m.solution, _, err = m.matrix.SolveComplex(m.rhs, nil)
	} else {
		m.solution, err = m.matrix.Solve(m.rhs)
	}
	if err != nil {
		return errors.Wrap(err, "matrix solve failed")
	}

	return nil
}

// Solution is the real solution vector, indexed 1..Size.
func (m *CircuitMatrix) Solution() []float64 {
	return m.solution
}

// ComplexSolution returns unknown i of a complex solve.
func (m *CircuitMatrix) ComplexSolution(i int) complex128 {
	if !m.isComplex || i <= 0 || i > m.Size {
		return 0
	}
	return complex(m.solution[2*i], m.solution[2*i+1])
}

// Dump writes the equations of the last stamped system to w.
func (m *CircuitMatrix) Dump(w io.Writer) {
	fmt.Fprintf(w, "Circuit equations (%dx%d), nodes first then branches:\n", m.Size, m.Size)

	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "  eq %d:", i)
		for j := 1; j <= m.Size; j++ {
			element := m.matrix.GetElement(int64(i), int64(j))
			switch {
			case element.Real == 0 && element.Imag == 0:
			case element.Imag == 0:
				fmt.Fprintf(w, " %+g*x%d", element.Real, j)
			default:
				fmt.Fprintf(w, " (%g%+gj)*x%d", element.Real, element.Imag, j)
			}
		}
		if m.isComplex {
			fmt.Fprintf(w, " = %g%+gj\n", m.rhs[2*i], m.rhs[2*i+1])
		} else {
			fmt.Fprintf(w, " = %g\n", m.rhs[i])
		}
	}
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
