package mask

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jea-astro/diskclean/internal/cube"
	"github.com/jea-astro/diskclean/internal/disk"
)

// aatau is the production disk geometry.
var aatau = disk.Geometry{
	Inc:   59.1,
	PA:    93.0 + 180,
	Mstar: 0.62,
	Dist:  145.0,
	VLSR:  6.445e3,
	DX0:   0.0065,
	DY0:   -0.2573,
}

func newGenerator() Generator {
	return Generator{
		Geometry: aatau,
		DV0:      500,
		DVQ:      -0.5,
		NBeams:   2.0,
		RestFreq: 267.5576259e9,
	}
}

func testGrid(nx, ny, nchan int) cube.Grid {
	return cube.NewGrid(nx, ny, 0.03, nchan, -3000, 200)
}

func TestGenerateShapeMatchesGrid(t *testing.T) {
	grid := testGrid(500, 500, 100)

	m, err := newGenerator().Generate(grid)
	require.NoError(t, err)

	assert.True(t, m.Grid.SameShape(grid))
	assert.Len(t, m.Data, grid.Size())
}

func TestGenerateIsDeterministic(t *testing.T) {
	grid := testGrid(64, 64, 50)
	gen := newGenerator()

	first, err := gen.Generate(grid)
	require.NoError(t, err)
	second, err := gen.Generate(grid)
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data, "re-invocation must yield a bit-identical mask")
}

func TestGenerateCenterIsDefined(t *testing.T) {
	// An odd grid with zero center offsets puts one pixel exactly on the
	// disk center; the clamped radius must keep the model finite there.
	gen := newGenerator()
	gen.Geometry.DX0 = 0
	gen.Geometry.DY0 = 0

	grid := cube.NewGrid(31, 31, 0.03, 40, -3000, 500)
	m, err := gen.Generate(grid)
	require.NoError(t, err)
	assert.Len(t, m.Data, grid.Size())
}

func TestGenerateSelectsNonTrivialMask(t *testing.T) {
	grid := testGrid(128, 128, 100)

	m, err := newGenerator().Generate(grid)
	require.NoError(t, err)

	frac := m.Fraction()
	assert.Greater(t, frac, 0.0, "disk emission region must not be empty")
	assert.Less(t, frac, 0.5, "mask must suppress most of the cube")
}

func TestGenerateVelocityWindow(t *testing.T) {
	// For every voxel, inclusion must agree with the documented rule: the
	// channel velocity lies within the Keplerian line center +- half of the
	// beam-scaled local line width.
	gen := newGenerator()
	grid := testGrid(32, 32, 100)

	m, err := gen.Generate(grid)
	require.NoError(t, err)

	rMin := grid.PixelScale() / 2
	for j, dy := range grid.Y {
		for i, dx := range grid.X {
			r, theta := gen.Geometry.Deproject(dx, dy)
			if r < rMin {
				r = rMin
			}
			center := gen.Geometry.VLOS(r, theta)
			half := gen.NBeams * gen.DV0 * math.Pow(r, gen.DVQ) / 2

			for k, v := range grid.V {
				want := math.Abs(v-center) <= half
				if got := m.At(i, j, k); got != want {
					t.Fatalf("mask(%d,%d,%d) = %v, want %v (v=%g center=%g half=%g)",
						i, j, k, got, want, v, center, half)
				}
			}
		}
	}
}

func TestGenerateMaskedChannelsAreContiguous(t *testing.T) {
	// The local window is a single interval, so for an unblended line the
	// included channels at any pixel form one contiguous run.
	grid := testGrid(64, 64, 100)

	m, err := newGenerator().Generate(grid)
	require.NoError(t, err)

	for j := 0; j < grid.NY(); j++ {
		for i := 0; i < grid.NX(); i++ {
			var runs int
			inRun := false
			for k := 0; k < grid.NChan(); k++ {
				if m.At(i, j, k) && !inRun {
					runs++
				}
				inRun = m.At(i, j, k)
			}
			if runs > 1 {
				t.Fatalf("pixel (%d,%d) has %d disjoint velocity runs", i, j, runs)
			}
		}
	}
}

func TestGenerateHyperfineUnion(t *testing.T) {
	// A second component offset by +3 km/s widens the mask relative to the
	// unblended case and the combined mask contains the unblended one.
	grid := testGrid(48, 48, 100)

	single := newGenerator()
	single.RestFreqs = []float64{single.RestFreq}

	const offset = 3000.0 // m/s
	blended := newGenerator()
	comp := blended.RestFreq * (1 - offset/SpeedOfLight)
	blended.RestFreqs = []float64{blended.RestFreq, comp}

	ms, err := single.Generate(grid)
	require.NoError(t, err)
	mb, err := blended.Generate(grid)
	require.NoError(t, err)

	var extra int
	for i := range ms.Data {
		if ms.Data[i] && !mb.Data[i] {
			t.Fatal("blended mask must contain the unblended mask")
		}
		if mb.Data[i] && !ms.Data[i] {
			extra++
		}
	}
	assert.Greater(t, extra, 0, "hyperfine component must widen the mask")
}

func TestVelocityOffsets(t *testing.T) {
	gen := newGenerator()
	gen.RestFreq = 300e9
	gen.RestFreqs = []float64{300e9, 300e9 * (1 - 1000/SpeedOfLight)}

	offsets := gen.velocityOffsets()
	require.Len(t, offsets, 2)
	assert.InDelta(t, 0, offsets[0], 1e-9)
	assert.InDelta(t, 1000, offsets[1], 1e-6)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Generator)
	}{
		{"zero line width", func(g *Generator) { g.DV0 = 0 }},
		{"zero beam factor", func(g *Generator) { g.NBeams = 0 }},
		{"zero stellar mass", func(g *Generator) { g.Geometry.Mstar = 0 }},
		{"zero distance", func(g *Generator) { g.Geometry.Dist = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newGenerator()
			tt.mutate(&gen)
			_, err := gen.Generate(testGrid(8, 8, 4))
			assert.Error(t, err)
		})
	}
}
