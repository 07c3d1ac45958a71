package cube

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
)

const arcsecPerDeg = 3600.0

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// WriteTo writes the cube as a single-HDU float32 FITS image with the WCS
// cards needed to round-trip the grid: offset spatial axes in degrees about
// the reference pixel and an LSRK velocity axis in m/s.
func (c *Cube) WriteTo(w io.Writer) (err error) {
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("invalid grid: %w", err)
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	defer closeWithError(f, &err)

	img := fitsio.NewImage(-32, []int{c.Grid.NX(), c.Grid.NY(), c.Grid.NChan()})
	defer closeWithError(img, &err)

	if err = img.Header().Append(wcsCards(c.Grid)...); err != nil {
		return fmt.Errorf("writing WCS cards: %w", err)
	}
	if err = img.Write(&c.Data); err != nil {
		return fmt.Errorf("writing image data: %w", err)
	}
	if err = f.Write(img); err != nil {
		return fmt.Errorf("writing HDU: %w", err)
	}
	return nil
}

// WriteFile writes the cube to a FITS file at path, replacing any existing
// file.
func (c *Cube) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithError(f, &err)
	return c.WriteTo(f)
}

// WriteTo writes the mask as a 0/1 float32 FITS image, the representation
// the imaging engine accepts as a clean mask.
func (m *Mask) WriteTo(w io.Writer) error {
	return m.AsCube().WriteTo(w)
}

// WriteFile writes the mask to a FITS file at path.
func (m *Mask) WriteFile(path string) error {
	return m.AsCube().WriteFile(path)
}

func wcsCards(g Grid) []fitsio.Card {
	dx, dy := -g.PixelScale(), g.PixelScale()
	if g.NX() > 1 {
		dx = g.X[1] - g.X[0]
	}
	if g.NY() > 1 {
		dy = g.Y[1] - g.Y[0]
	}

	// CRPIX such that offset(p) = (p - CRPIX) * CDELT recovers the stored
	// axes; FITS pixel indices are 1-based.
	crpix1 := 1 - g.X[0]/dx
	crpix2 := 1 - g.Y[0]/dy

	return []fitsio.Card{
		{Name: "CTYPE1", Value: "RA---SIN", Comment: "RA offset axis"},
		{Name: "CRVAL1", Value: 0.0},
		{Name: "CDELT1", Value: dx / arcsecPerDeg},
		{Name: "CRPIX1", Value: crpix1},
		{Name: "CUNIT1", Value: "deg"},
		{Name: "CTYPE2", Value: "DEC--SIN", Comment: "Dec offset axis"},
		{Name: "CRVAL2", Value: 0.0},
		{Name: "CDELT2", Value: dy / arcsecPerDeg},
		{Name: "CRPIX2", Value: crpix2},
		{Name: "CUNIT2", Value: "deg"},
		{Name: "CTYPE3", Value: "VELO-LSR", Comment: "LSRK radio velocity"},
		{Name: "CRVAL3", Value: firstOrZero(g.V)},
		{Name: "CDELT3", Value: g.ChannelWidth()},
		{Name: "CRPIX3", Value: 1.0},
		{Name: "CUNIT3", Value: "m/s"},
		{Name: "SPECSYS", Value: "LSRK"},
		{Name: "BUNIT", Value: "Jy/beam"},
		{Name: "BMAJ", Value: g.BeamMaj / arcsecPerDeg, Comment: "beam major FWHM [deg]"},
		{Name: "BMIN", Value: g.BeamMin / arcsecPerDeg, Comment: "beam minor FWHM [deg]"},
		{Name: "BPA", Value: g.BeamPA, Comment: "beam position angle [deg]"},
	}
}

func firstOrZero(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

// ReadFrom reads a spectral cube from a FITS stream. The primary HDU must be
// a float image with spatial axes 1-2 and a velocity axis 3; a trailing
// degenerate fourth axis (Stokes) is tolerated.
func ReadFrom(r io.ReadSeeker) (c *Cube, err error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer closeWithError(f, &err)

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}
	hdr := img.Header()

	axes := hdr.Axes()
	switch {
	case len(axes) == 3:
	case len(axes) == 4 && axes[3] == 1:
	default:
		return nil, fmt.Errorf("unsupported FITS axes %v, want a 3-D cube", axes)
	}
	nx, ny, nchan := axes[0], axes[1], axes[2]

	grid, err := gridFromHeader(hdr, nx, ny, nchan)
	if err != nil {
		return nil, err
	}

	data, err := readImageData(img, hdr.Bitpix(), nx*ny*nchan)
	if err != nil {
		return nil, err
	}

	return &Cube{Grid: grid, Data: data}, nil
}

// ReadFile reads a spectral cube from a FITS file at path.
func ReadFile(path string) (c *Cube, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithError(f, &err)
	return ReadFrom(f)
}

func readImageData(img fitsio.Image, bitpix, n int) ([]float32, error) {
	switch bitpix {
	case -32:
		data := make([]float32, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("reading float32 image data: %w", err)
		}
		return data, nil

	case -64:
		raw := make([]float64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading float64 image data: %w", err)
		}
		data := make([]float32, n)
		for i, v := range raw {
			data[i] = float32(v)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported BITPIX %d, want -32 or -64", bitpix)
	}
}

func gridFromHeader(hdr *fitsio.Header, nx, ny, nchan int) (Grid, error) {
	crpix1 := cardFloat(hdr, "CRPIX1", 1)
	cdelt1 := cardFloat(hdr, "CDELT1", 0)
	crpix2 := cardFloat(hdr, "CRPIX2", 1)
	cdelt2 := cardFloat(hdr, "CDELT2", 0)
	if cdelt1 == 0 || cdelt2 == 0 {
		return Grid{}, fmt.Errorf("missing spatial pixel scale (CDELT1/CDELT2)")
	}

	ctype3 := cardString(hdr, "CTYPE3")
	if !strings.HasPrefix(ctype3, "VELO") && !strings.HasPrefix(ctype3, "VRAD") {
		return Grid{}, fmt.Errorf("axis 3 is %q, want a velocity axis", ctype3)
	}
	vscale := 1.0
	if unit := cardString(hdr, "CUNIT3"); strings.HasPrefix(unit, "km") {
		vscale = 1e3
	}
	crval3 := cardFloat(hdr, "CRVAL3", 0) * vscale
	cdelt3 := cardFloat(hdr, "CDELT3", 0) * vscale
	crpix3 := cardFloat(hdr, "CRPIX3", 1)
	if cdelt3 == 0 && nchan > 1 {
		return Grid{}, fmt.Errorf("missing velocity channel width (CDELT3)")
	}

	g := Grid{
		X:       make([]float64, nx),
		Y:       make([]float64, ny),
		V:       make([]float64, nchan),
		BeamMaj: cardFloat(hdr, "BMAJ", 0) * arcsecPerDeg,
		BeamMin: cardFloat(hdr, "BMIN", 0) * arcsecPerDeg,
		BeamPA:  cardFloat(hdr, "BPA", 0),
	}
	for i := range g.X {
		g.X[i] = (float64(i+1) - crpix1) * cdelt1 * arcsecPerDeg
	}
	for j := range g.Y {
		g.Y[j] = (float64(j+1) - crpix2) * cdelt2 * arcsecPerDeg
	}
	for k := range g.V {
		g.V[k] = crval3 + (float64(k+1)-crpix3)*cdelt3
	}
	return g, nil
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func cardString(hdr *fitsio.Header, name string) string {
	card := hdr.Get(name)
	if card == nil {
		return ""
	}
	if s, ok := card.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
