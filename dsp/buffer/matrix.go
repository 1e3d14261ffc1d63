package buffer

// Matrix is a row-major float64 matrix backed by a single slice. Each row is
// one spectrum; Rows exposes them as slices that alias the backing storage.
type Matrix struct {
	data []float64
	rows [][]float64
	cols int
}

// NewMatrix returns a zero-filled rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{}
	m.Resize(rows, cols)
	return m
}

// Resize reshapes the matrix to rows x cols. Storage is reused when the
// capacity allows; contents are unspecified after a shape change.
func (m *Matrix) Resize(rows, cols int) {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	if m.rows != nil && rows == len(m.rows) && cols == m.cols {
		return
	}

	n := rows * cols
	if n <= cap(m.data) {
		m.data = m.data[:n]
	} else {
		m.data = make([]float64, n)
	}

	if rows <= cap(m.rows) {
		m.rows = m.rows[:rows]
	} else {
		m.rows = make([][]float64, rows)
	}
	for i := range m.rows {
		m.rows[i] = m.data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	m.cols = cols
}

// Dims returns the matrix shape.
func (m *Matrix) Dims() (rows, cols int) {
	return len(m.rows), m.cols
}

// Rows returns the row views. They stay valid until the next Resize that
// changes the shape.
func (m *Matrix) Rows() [][]float64 {
	return m.rows
}

// Row returns row i. It panics if i is out of range.
func (m *Matrix) Row(i int) []float64 {
	return m.rows[i]
}

// CopyFrom copies src into m, resizing m to the shape of src.
func (m *Matrix) CopyFrom(src *Matrix) {
	m.Resize(src.Dims())
	copy(m.data, src.data)
}
