package app

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/jea-astro/diskclean/internal/cube"
)

const (
	// Border sizes in pixels, used only when annotations are enabled.
	defaultTopBorder    = 20
	defaultLeftBorder   = 60
	defaultBottomBorder = 50
	defaultRightBorder  = 20
)

// Plane is one 2-D view of a cube prepared for rendering: either a single
// channel or the velocity-integrated map.
type Plane struct {
	Grid   cube.Grid
	Values []float64 // x fastest, Dec row j at offset j*NX
	Bounds IntensityBounds

	Channel  int      // rendered channel, -1 for integrated maps
	Velocity *float64 // channel velocity in m/s, nil for integrated maps
}

// ExtractPlane pulls the requested view out of the cube and derives display
// bounds, honoring manual overrides.
func ExtractPlane(c *cube.Cube, channel int, minOverride, maxOverride *float64) (*Plane, error) {
	p := Plane{Grid: c.Grid, Channel: channel}

	switch {
	case channel < 0:
		p.Values = c.CollapseVelocity()

	case channel < c.Grid.NChan():
		p.Values = c.Channel(channel, nil)
		v := c.Grid.V[channel]
		p.Velocity = &v

	default:
		return nil, fmt.Errorf("channel %d outside cube with %d channels", channel, c.Grid.NChan())
	}

	p.Bounds = BoundsFromPlane(p.Values)
	if minOverride != nil {
		p.Bounds.Min = *minOverride
	}
	if maxOverride != nil {
		p.Bounds.Max = *maxOverride
	}
	if p.Bounds.Max <= p.Bounds.Min {
		return nil, fmt.Errorf("empty intensity range %g..%g", p.Bounds.Min, p.Bounds.Max)
	}
	return &p, nil
}

// PlaneRenderer turns a plane into an RGBA image, optionally framed with
// annotated axes when a font is available.
type PlaneRenderer struct {
	colorMap  *ColorMapper
	theme     ColorTheme
	annotator *Annotator // nil disables annotations
}

// NewPlaneRenderer creates a renderer. annotator may be nil.
func NewPlaneRenderer(theme ColorTheme, annotator *Annotator) *PlaneRenderer {
	return &PlaneRenderer{theme: theme, annotator: annotator}
}

// Render draws the plane. Dec rows are flipped so north ends up at the top
// of the image.
func (r *PlaneRenderer) Render(p *Plane) (*image.RGBA, error) {
	if r.colorMap == nil {
		r.colorMap = NewColorMapper(r.theme, p.Bounds)
	} else {
		r.colorMap.UpdateBounds(p.Bounds)
	}

	nx, ny := p.Grid.NX(), p.Grid.NY()

	var border struct{ top, left, bottom, right int }
	if r.annotator != nil {
		border.top = defaultTopBorder
		border.left = defaultLeftBorder
		border.bottom = defaultBottomBorder
		border.right = defaultRightBorder
	}

	img := image.NewRGBA(image.Rect(0, 0, nx+border.left+border.right, ny+border.top+border.bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(border.left, border.top, border.left+nx, border.top+ny)
	for j := 0; j < ny; j++ {
		imgY := area.Min.Y + (ny - 1 - j)
		row := p.Values[j*nx : (j+1)*nx]
		for i, v := range row {
			img.Set(area.Min.X+i, imgY, r.colorMap.GetColor(v))
		}
	}

	if r.annotator != nil {
		if err := r.annotator.Annotate(img, area, p); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}
	return img, nil
}
