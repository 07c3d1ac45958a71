package cube

// Mask is a boolean cube selecting voxels for deconvolution. It shares the
// Grid type and x-fastest data ordering with Cube.
type Mask struct {
	Grid Grid
	Data []bool
}

// NewMask allocates an all-false mask over the given grid.
func NewMask(grid Grid) (*Mask, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &Mask{Grid: grid, Data: make([]bool, grid.Size())}, nil
}

// At reports whether voxel (i, j, k) is included.
func (m *Mask) At(i, j, k int) bool {
	return m.Data[m.index(i, j, k)]
}

// Set marks voxel (i, j, k).
func (m *Mask) Set(i, j, k int, v bool) {
	m.Data[m.index(i, j, k)] = v
}

func (m *Mask) index(i, j, k int) int {
	nx, ny := m.Grid.NX(), m.Grid.NY()
	return k*nx*ny + j*nx + i
}

// Fraction returns the fraction of voxels included in the mask.
func (m *Mask) Fraction() float64 {
	if len(m.Data) == 0 {
		return 0
	}
	var n int
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(m.Data))
}

// AsCube converts the mask to a 0/1 float cube, the representation the
// imaging engine expects for mask images.
func (m *Mask) AsCube() *Cube {
	c := &Cube{Grid: m.Grid, Data: make([]float32, len(m.Data))}
	for i, v := range m.Data {
		if v {
			c.Data[i] = 1
		}
	}
	return c
}

// MaskFromCube interprets a 0/1 float cube as a mask; any pixel above 0.5 is
// included.
func MaskFromCube(c *Cube) *Mask {
	m := &Mask{Grid: c.Grid, Data: make([]bool, len(c.Data))}
	for i, v := range c.Data {
		m.Data[i] = v > 0.5
	}
	return m
}
