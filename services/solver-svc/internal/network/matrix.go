package network

import "fmt"

// =============================================================================
// Out Of Range Access
// =============================================================================

// OutOfRangeError describes an access with a node index outside [0, N).
//
// It is raised as a panic value by every accessor: an out of range index is an
// encoder or solver bug, not a runtime condition. Solve, Encode and Decode
// recover this panic type only and turn it into a *FatalError.
type OutOfRangeError struct {
	Op   string
	U, V int // V is -1 for per-node accessors
	N    int
}

func (e *OutOfRangeError) Error() string {
	if e.V < 0 {
		return fmt.Sprintf("%s: node %d out of range [0, %d)", e.Op, e.U, e.N)
	}
	return fmt.Sprintf("%s: arc (%d, %d) out of range [0, %d)", e.Op, e.U, e.V, e.N)
}

// =============================================================================
// Matrix
// =============================================================================

// Matrix is a dense N×N int64 container addressed by node pairs.
// All accessors are bounds checked.
type Matrix struct {
	n    int
	data []int64
}

// NewMatrix allocates a zeroed n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]int64, n*n)}
}

// Size returns N.
func (m *Matrix) Size() int {
	return m.n
}

// At returns the value stored for (u, v).
func (m *Matrix) At(u, v int) int64 {
	return m.data[m.index("At", u, v)]
}

// Set stores x for (u, v).
func (m *Matrix) Set(u, v int, x int64) {
	m.data[m.index("Set", u, v)] = x
}

// Add adds d to the value stored for (u, v).
func (m *Matrix) Add(u, v int, d int64) {
	m.data[m.index("Add", u, v)] += d
}

// Values returns a row-major copy of the matrix.
func (m *Matrix) Values() []int64 {
	out := make([]int64, len(m.data))
	copy(out, m.data)
	return out
}

// load replaces the contents with row-major values of the same size.
func (m *Matrix) load(values []int64) {
	copy(m.data, values)
}

func (m *Matrix) index(op string, u, v int) int {
	if u < 0 || u >= m.n || v < 0 || v >= m.n {
		panic(&OutOfRangeError{Op: op, U: u, V: v, N: m.n})
	}
	return u*m.n + v
}
