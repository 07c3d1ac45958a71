package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkLength = 5
)

// Annotator draws axis scales and an info bar around a rendered plane using
// a TTF font loaded from disk.
type Annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

// NewAnnotator loads the font at fontPath and prepares the drawing context.
func NewAnnotator(fontPath string) (*Annotator, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &Annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

// Close releases the font face.
func (a *Annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// Annotate draws offset scales along both spatial axes and an info bar under
// the map.
func (a *Annotator) Annotate(img *image.RGBA, area image.Rectangle, p *Plane) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, image.Rectangle, *Plane) error
	}{
		{"drawing RA scale", a.drawRAScale},
		{"drawing Dec scale", a.drawDecScale},
		{"drawing info", a.drawInfo},
	}
	for _, op := range ops {
		if err := op.fn(img, area, p); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

func (a *Annotator) drawRAScale(img *image.RGBA, area image.Rectangle, p *Plane) error {
	nx := p.Grid.NX()
	step := niceStep(math.Abs(p.Grid.X[nx-1]-p.Grid.X[0]), area.Dx())

	for _, off := range scaleTicks(p.Grid.X, step) {
		x := area.Min.X + int(float64(off.index)/float64(nx-1)*float64(area.Dx()-1))
		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf(`%.1f"`, off.value)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-width.Round()/2, area.Max.Y+tickMarkLength+a.fontHeight())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) drawDecScale(img *image.RGBA, area image.Rectangle, p *Plane) error {
	ny := p.Grid.NY()
	step := niceStep(math.Abs(p.Grid.Y[ny-1]-p.Grid.Y[0]), area.Dy())

	for _, off := range scaleTicks(p.Grid.Y, step) {
		// Dec rows are drawn flipped, north up.
		y := area.Min.Y + (ny-1-off.index)*area.Dy()/ny
		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf(`%.1f"`, off.value)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(area.Min.X-tickMarkLength-width.Round()-2, y+a.fontHeight()/2)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) drawInfo(img *image.RGBA, area image.Rectangle, p *Plane) error {
	var view string
	if p.Velocity != nil {
		view = fmt.Sprintf("channel %d, v = %.3f km/s", p.Channel, *p.Velocity/1e3)
	} else {
		view = "velocity-integrated"
	}

	info := fmt.Sprintf("%s | stretch %s .. %s", view,
		humanize.SIWithDigits(p.Bounds.Min, 2, "Jy/beam"),
		humanize.SIWithDigits(p.Bounds.Max, 2, "Jy/beam"))
	if p.Grid.BeamMaj > 0 {
		info += fmt.Sprintf(` | beam %.2f" x %.2f"`, p.Grid.BeamMaj, p.Grid.BeamMin)
	}

	pt := freetype.Pt(area.Min.X, area.Max.Y+tickMarkLength+3*a.fontHeight())
	_, err := a.context.DrawString(info, pt)
	return err
}

func (a *Annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

type tick struct {
	index int
	value float64
}

// scaleTicks picks the axis samples whose offsets are closest to multiples
// of step.
func scaleTicks(axis []float64, step float64) []tick {
	if step <= 0 || len(axis) < 2 {
		return nil
	}

	var ticks []tick
	lo, hi := math.Min(axis[0], axis[len(axis)-1]), math.Max(axis[0], axis[len(axis)-1])
	delta := math.Abs(axis[1] - axis[0])
	for v := math.Ceil(lo/step) * step; v <= hi; v += step {
		for i, off := range axis {
			if math.Abs(off-v) <= delta/2 {
				ticks = append(ticks, tick{index: i, value: v})
				break
			}
		}
	}
	return ticks
}

// niceStep picks a 1/2/5-style tick step targeting a label every ~100px.
func niceStep(span float64, widthPx int) float64 {
	if span <= 0 || widthPx <= 0 {
		return 0
	}
	target := span / math.Max(1, float64(widthPx)/100)
	mag := math.Pow(10, math.Floor(math.Log10(target)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= target {
			return m * mag
		}
	}
	return 10 * mag
}
