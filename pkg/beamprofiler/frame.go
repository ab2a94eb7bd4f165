package beamprofiler

// Frame is a 2D float64 intensity map in row-major order. Rows index the
// vertical (y) axis and columns the horizontal (x) axis. A Frame may be a
// sub-matrix view of a larger frame, in which case stride differs from cols
// and the view shares the parent's backing array.
type Frame struct {
	data    []float64
	rows    int
	cols    int
	stride  int // elements per row in backing array (differs from cols for views)
	dataOff int // offset into data for views
}

// NewFrame allocates a zeroed rows x cols frame.
func NewFrame(rows, cols int) *Frame {
	return &Frame{
		data:   make([]float64, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
	}
}

// NewFrameFromData wraps a row-major slice. The slice is not copied and must
// have length rows*cols.
func NewFrameFromData(rows, cols int, data []float64) *Frame {
	if len(data) != rows*cols {
		panic("beamprofiler: data length does not match frame dimensions")
	}
	return &Frame{data: data, rows: rows, cols: cols, stride: cols}
}

func (f *Frame) Rows() int   { return f.rows }
func (f *Frame) Cols() int   { return f.cols }
func (f *Frame) Empty() bool { return f == nil || f.data == nil || f.rows == 0 || f.cols == 0 }

// At returns the value at row r, column c.
func (f *Frame) At(r, c int) float64 {
	return f.data[f.dataOff+r*f.stride+c]
}

// Set assigns the value at row r, column c.
func (f *Frame) Set(r, c int, v float64) {
	f.data[f.dataOff+r*f.stride+c] = v
}

// View returns a sub-matrix view with origin (bottom row, left column) and
// the given extents. The view shares the backing array.
func (f *Frame) View(bottom, left, height, width int) *Frame {
	return &Frame{
		data:    f.data,
		rows:    height,
		cols:    width,
		stride:  f.stride,
		dataOff: f.dataOff + bottom*f.stride + left,
	}
}

// Clone returns a contiguous copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.rows, f.cols)
	for r := 0; r < f.rows; r++ {
		srcOff := f.dataOff + r*f.stride
		copy(out.data[r*f.cols:(r+1)*f.cols], f.data[srcOff:srcOff+f.cols])
	}
	return out
}

// Row returns the backing slice for row r of the frame.
func (f *Frame) Row(r int) []float64 {
	off := f.dataOff + r*f.stride
	return f.data[off : off+f.cols]
}
