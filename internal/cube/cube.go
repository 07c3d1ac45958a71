// Package cube models spectral-line image cubes: a 3-D intensity grid over
// two spatial axes and one velocity axis, with FITS import/export and the
// pixel statistics the cleaning pipeline needs.
package cube

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Cube is a 3-D intensity grid. Data is stored x-fastest (FITS order):
// index = k*nx*ny + j*nx + i for pixel (i, j) in channel k. Units are
// whatever the producing engine wrote, Jy/beam for pipeline products.
type Cube struct {
	Grid Grid
	Data []float32
}

// New allocates a zero-filled cube over the given grid.
func New(grid Grid) (*Cube, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &Cube{Grid: grid, Data: make([]float32, grid.Size())}, nil
}

// At returns the intensity at pixel (i, j) in channel k.
func (c *Cube) At(i, j, k int) float64 {
	return float64(c.Data[c.index(i, j, k)])
}

// Set stores the intensity at pixel (i, j) in channel k.
func (c *Cube) Set(i, j, k int, v float64) {
	c.Data[c.index(i, j, k)] = float32(v)
}

func (c *Cube) index(i, j, k int) int {
	nx, ny := c.Grid.NX(), c.Grid.NY()
	return k*nx*ny + j*nx + i
}

// Channel returns the channel-k plane as float64 values, reusing dst when it
// has sufficient capacity.
func (c *Cube) Channel(k int, dst []float64) []float64 {
	nx, ny := c.Grid.NX(), c.Grid.NY()
	plane := c.Data[k*nx*ny : (k+1)*nx*ny]
	if cap(dst) < len(plane) {
		dst = make([]float64, len(plane))
	}
	dst = dst[:len(plane)]
	for i, v := range plane {
		dst[i] = float64(v)
	}
	return dst
}

// RMS computes the root mean square of all pixels in the inclusive channel
// range [lo, hi]. NaN pixels (blanked by the imaging engine) are skipped.
func (c *Cube) RMS(lo, hi int) (float64, error) {
	if lo < 0 || hi >= c.Grid.NChan() || lo > hi {
		return 0, fmt.Errorf("channel range %d~%d outside cube with %d channels", lo, hi, c.Grid.NChan())
	}

	var sumsq float64
	var n int
	scratch := make([]float64, c.Grid.NX()*c.Grid.NY())
	for k := lo; k <= hi; k++ {
		vals := c.Channel(k, scratch)
		valid := vals[:0]
		for _, v := range vals {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		if len(valid) == 0 {
			continue
		}
		// Second moment about zero is the per-channel mean square.
		sumsq += stat.MomentAbout(2, valid, 0, nil) * float64(len(valid))
		n += len(valid)
	}
	if n == 0 {
		return 0, fmt.Errorf("channel range %d~%d holds no valid pixels", lo, hi)
	}
	return math.Sqrt(sumsq / float64(n)), nil
}

// CollapseVelocity sums the cube along the velocity axis, returning one value
// per spatial pixel in x-fastest order. NaN pixels are skipped.
func (c *Cube) CollapseVelocity() []float64 {
	nx, ny := c.Grid.NX(), c.Grid.NY()
	out := make([]float64, nx*ny)
	for k := 0; k < c.Grid.NChan(); k++ {
		plane := c.Data[k*nx*ny : (k+1)*nx*ny]
		for p, v := range plane {
			if !math.IsNaN(float64(v)) {
				out[p] += float64(v)
			}
		}
	}
	return out
}

// Profile returns the spatially integrated intensity per channel.
func (c *Cube) Profile() []float64 {
	nx, ny := c.Grid.NX(), c.Grid.NY()
	out := make([]float64, c.Grid.NChan())
	for k := range out {
		plane := c.Data[k*nx*ny : (k+1)*nx*ny]
		for _, v := range plane {
			if !math.IsNaN(float64(v)) {
				out[k] += float64(v)
			}
		}
	}
	return out
}
