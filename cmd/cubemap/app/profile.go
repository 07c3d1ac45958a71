package app

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jea-astro/diskclean/internal/cube"
)

// WriteProfile plots the spatially integrated intensity against channel
// velocity and saves it to path; the format follows the file extension.
func WriteProfile(c *cube.Cube, path string) error {
	flux := c.Profile()

	pts := make(plotter.XYs, len(flux))
	for k, f := range flux {
		pts[k].X = c.Grid.V[k] / 1e3
		pts[k].Y = f
	}

	p := plot.New()
	p.Title.Text = "Integrated line profile"
	p.X.Label.Text = "v LSRK [km/s]"
	p.Y.Label.Text = "Integrated intensity [Jy/beam]"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building profile plot: %w", err)
	}
	p.Add(line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving profile plot: %w", err)
	}
	return nil
}
