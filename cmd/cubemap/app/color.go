package app

import (
	"image/color"
	"math"
)

// ColorTheme selects a predefined intensity color scheme:
// - ClassicTheme: blue to red spectrum transition
// - GrayscaleTheme: black to white
// - ThermalTheme: black through red and yellow to white
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"

	// DefaultColorMapSize is the number of pre-computed colors in the map.
	DefaultColorMapSize = 256
)

var validColorThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	ThermalTheme:   {},
}

// hsv holds a color in HSV space: H in [0, 360], S and V in [0, 1].
type hsv struct {
	H, S, V float64
}

// hsvToRGB converts HSV to RGBA.
func hsvToRGB(c hsv) color.Color {
	if c.S <= 0 {
		v := uint8(c.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 0xff}
	}

	h := math.Mod(c.H, 360) / 60
	i := math.Floor(h)
	f := h - i

	p := c.V * (1 - c.S)
	q := c.V * (1 - c.S*f)
	t := c.V * (1 - c.S*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = c.V, t, p
	case 1:
		r, g, b = q, c.V, p
	case 2:
		r, g, b = p, c.V, t
	case 3:
		r, g, b = p, q, c.V
	case 4:
		r, g, b = t, p, c.V
	default:
		r, g, b = c.V, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}

func classicColor(x float64) color.Color {
	// Hue from 240 (blue) to 0 (red), hotter with intensity.
	return hsvToRGB(hsv{
		H: 240 - x*240,
		S: 0.9 + x*0.1,
		V: math.Pow(x, 0.7),
	})
}

func grayscaleColor(x float64) color.Color {
	v := uint8(math.Round(x * 255))
	return color.RGBA{R: v, G: v, B: v, A: 0xff}
}

func thermalColor(x float64) color.Color {
	switch {
	case x < 1.0/3:
		// black -> red
		return hsvToRGB(hsv{H: 0, S: 1, V: x * 3})
	case x < 2.0/3:
		// red -> yellow
		return hsvToRGB(hsv{H: (x - 1.0/3) * 3 * 60, S: 1, V: 1})
	default:
		// yellow -> white
		return hsvToRGB(hsv{H: 60, S: 1 - (x-2.0/3)*3, V: 1})
	}
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return classicColor
	case GrayscaleTheme:
		return grayscaleColor
	default:
		return thermalColor
	}
}
