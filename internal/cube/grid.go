package cube

import (
	"errors"
	"fmt"
	"math"
)

// Grid describes the coordinate system of an image cube: two spatial axes in
// arcsec offsets from the reference pixel (X along RA, positive east; Y along
// Dec, positive north), one velocity axis in m/s (LSRK), and the synthesized
// beam. Axes are uniformly spaced.
type Grid struct {
	X []float64 // RA offsets, arcsec; decreasing when CDELT1 < 0
	Y []float64 // Dec offsets, arcsec
	V []float64 // channel velocities, m/s

	BeamMaj float64 // beam major axis FWHM, arcsec
	BeamMin float64 // beam minor axis FWHM, arcsec
	BeamPA  float64 // beam position angle, degrees
}

// NewGrid builds a centered grid with nx * ny spatial pixels of the given
// pixel scale (arcsec) and nchan velocity channels starting at v0 with step
// dv (m/s). The RA axis follows the FITS convention of decreasing with pixel
// index (east to the left).
func NewGrid(nx, ny int, cell float64, nchan int, v0, dv float64) Grid {
	g := Grid{
		X: make([]float64, nx),
		Y: make([]float64, ny),
		V: make([]float64, nchan),
	}
	for i := range g.X {
		g.X[i] = -cell * (float64(i) - float64(nx-1)/2)
	}
	for j := range g.Y {
		g.Y[j] = cell * (float64(j) - float64(ny-1)/2)
	}
	for k := range g.V {
		g.V[k] = v0 + dv*float64(k)
	}
	return g
}

// NX returns the number of pixels along the RA axis.
func (g Grid) NX() int { return len(g.X) }

// NY returns the number of pixels along the Dec axis.
func (g Grid) NY() int { return len(g.Y) }

// NChan returns the number of velocity channels.
func (g Grid) NChan() int { return len(g.V) }

// Size returns the total number of voxels.
func (g Grid) Size() int { return g.NX() * g.NY() * g.NChan() }

// PixelScale returns the spatial pixel size in arcsec.
func (g Grid) PixelScale() float64 {
	if len(g.X) < 2 {
		return 0
	}
	return math.Abs(g.X[1] - g.X[0])
}

// ChannelWidth returns the velocity channel step in m/s, signed.
func (g Grid) ChannelWidth() float64 {
	if len(g.V) < 2 {
		return 0
	}
	return g.V[1] - g.V[0]
}

// Validate reports whether the grid can address a cube.
func (g Grid) Validate() error {
	if g.NX() == 0 || g.NY() == 0 || g.NChan() == 0 {
		return errors.New("grid has an empty axis")
	}
	if g.NX() > 1 && g.X[1] == g.X[0] {
		return fmt.Errorf("degenerate RA axis step at %g", g.X[0])
	}
	return nil
}

// SameShape reports whether two grids have identical axis lengths.
func (g Grid) SameShape(o Grid) bool {
	return g.NX() == o.NX() && g.NY() == o.NY() && g.NChan() == o.NChan()
}
