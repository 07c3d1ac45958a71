package cube

import (
	"math"
	"path/filepath"
	"testing"
)

func TestFITSRoundTrip(t *testing.T) {
	grid := testGrid(16, 12, 8)
	c, err := New(grid)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 8; k++ {
		for j := 0; j < 12; j++ {
			for i := 0; i < 16; i++ {
				c.Set(i, j, k, float64(i)+10*float64(j)+100*float64(k))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "cube.fits")
	if err = c.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if !got.Grid.SameShape(grid) {
		t.Fatalf("Shape mismatch: got %dx%dx%d", got.Grid.NX(), got.Grid.NY(), got.Grid.NChan())
	}

	for i := range grid.X {
		if math.Abs(got.Grid.X[i]-grid.X[i]) > 1e-6 {
			t.Fatalf("X[%d] = %g, want %g", i, got.Grid.X[i], grid.X[i])
		}
	}
	for j := range grid.Y {
		if math.Abs(got.Grid.Y[j]-grid.Y[j]) > 1e-6 {
			t.Fatalf("Y[%d] = %g, want %g", j, got.Grid.Y[j], grid.Y[j])
		}
	}
	for k := range grid.V {
		if math.Abs(got.Grid.V[k]-grid.V[k]) > 1e-6 {
			t.Fatalf("V[%d] = %g, want %g", k, got.Grid.V[k], grid.V[k])
		}
	}

	if math.Abs(got.Grid.BeamMaj-grid.BeamMaj) > 1e-6 ||
		math.Abs(got.Grid.BeamMin-grid.BeamMin) > 1e-6 ||
		math.Abs(got.Grid.BeamPA-grid.BeamPA) > 1e-6 {
		t.Errorf("Beam mismatch: got %g/%g/%g", got.Grid.BeamMaj, got.Grid.BeamMin, got.Grid.BeamPA)
	}

	for i, v := range c.Data {
		if got.Data[i] != v {
			t.Fatalf("Data[%d] = %g, want %g", i, got.Data[i], v)
		}
	}
}

func TestMaskFITSRoundTrip(t *testing.T) {
	m, err := NewMask(testGrid(8, 8, 4))
	if err != nil {
		t.Fatal(err)
	}
	m.Set(3, 4, 1, true)
	m.Set(0, 0, 0, true)

	path := filepath.Join(t.TempDir(), "mask.fits")
	if err = m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	got := MaskFromCube(c)
	for i := range m.Data {
		if got.Data[i] != m.Data[i] {
			t.Fatalf("Mask round-trip mismatch at %d", i)
		}
	}
}
