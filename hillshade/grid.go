package hillshade

// Grid is a dense row-major raster of float64 samples.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Width+col]
}

func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Width+col] = v
}

func (g *Grid) Row(row int) []float64 {
	return g.Data[row*g.Width : (row+1)*g.Width]
}

func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Width, g.Height)
	copy(c.Data, g.Data)
	return c
}

// Crop returns a copy of g without the given margins.
func (g *Grid) Crop(b BufferSpec) *Grid {
	w := g.Width - b.Left - b.Right
	h := g.Height - b.Top - b.Bottom
	c := NewGrid(w, h)
	for r := 0; r < h; r++ {
		copy(c.Row(r), g.Row(r + b.Top)[b.Left:b.Left+w])
	}
	return c
}

// Affine maps pixel (col, row) to projected coordinates:
// x = A*col + B*row + C, y = D*col + E*row + F.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Scale returns the transform of the same origin with pixels 1/r times as large.
func (a Affine) Scale(r float64) Affine {
	a.A /= r
	a.B /= r
	a.D /= r
	a.E /= r
	return a
}

// ElevationGrid is a window of elevation samples with its georeferencing.
type ElevationGrid struct {
	Grid
	Transform Affine
	DX        float64
	DY        float64
	NoData    float64
	HasNoData bool
}

func (e *ElevationGrid) IsNoData(v float64) bool {
	return e.HasNoData && v == e.NoData
}
