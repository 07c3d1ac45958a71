package app

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// IntensityBounds holds the stretch limits of the color map in Jy/beam.
type IntensityBounds struct {
	Min float64
	Max float64
}

// BoundsFromPlane derives display bounds from the pixel distribution: the
// 0.5th and 99.5th percentiles, so a handful of hot pixels cannot wash out
// the stretch. NaN pixels are ignored.
func BoundsFromPlane(plane []float64) IntensityBounds {
	vals := make([]float64, 0, len(plane))
	for _, v := range plane {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return IntensityBounds{Min: 0, Max: 1}
	}

	sort.Float64s(vals)

	b := IntensityBounds{
		Min: stat.Quantile(0.005, stat.Empirical, vals, nil),
		Max: stat.Quantile(0.995, stat.Empirical, vals, nil),
	}
	if b.Max <= b.Min {
		b.Max = b.Min + 1e-12
	}
	return b
}

// ColorMapper provides intensity-to-color mapping with pre-computed colors.
type ColorMapper struct {
	colorMap         []color.Color
	theme            func(float64) color.Color
	themeName        ColorTheme
	size             int
	intensityPerStep float64
	boundsMin        float64
}

// NewColorMapper creates a color mapper with the default map size.
func NewColorMapper(theme ColorTheme, bounds IntensityBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a color mapper with an explicit map size.
func NewColorMapperWithSize(theme ColorTheme, bounds IntensityBounds, size int) *ColorMapper {
	if size <= 0 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds updates the stretch limits and recomputes the color map.
func (cm *ColorMapper) UpdateBounds(bounds IntensityBounds) {
	cm.boundsMin = bounds.Min
	cm.intensityPerStep = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized)
	}
}

// GetColor returns the color for the given intensity. NaN (blanked) pixels
// map to the bottom of the scale.
func (cm *ColorMapper) GetColor(intensity float64) color.Color {
	if math.IsNaN(intensity) {
		return cm.colorMap[0]
	}

	index := int((intensity - cm.boundsMin) / cm.intensityPerStep)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name.
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}
