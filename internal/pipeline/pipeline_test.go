package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jea-astro/diskclean/internal/cube"
	"github.com/jea-astro/diskclean/internal/disk"
	"github.com/jea-astro/diskclean/internal/imaging"
	"github.com/jea-astro/diskclean/internal/lines"
	"github.com/jea-astro/diskclean/internal/mask"
)

// fakeEngine records calls and materializes synthetic dirty cubes on export,
// so the pipeline can be exercised without the real imaging application.
type fakeEngine struct {
	calls      []string
	clean      []imaging.CleanParams
	dirtyValue float64 // pixel value of exported dirty cubes
	failVis    string  // Clean fails for this visibility path
}

func (f *fakeEngine) Clean(ctx context.Context, p imaging.CleanParams) error {
	f.calls = append(f.calls, "clean:"+filepath.Base(p.ImageName))
	f.clean = append(f.clean, p)
	if f.failVis != "" && p.Vis == f.failVis {
		return errors.New("deconvolution diverged")
	}
	return nil
}

func (f *fakeEngine) ExportFITS(ctx context.Context, imageName, fitsName string, dropStokes bool) error {
	f.calls = append(f.calls, "export:"+filepath.Base(imageName))

	grid := cube.NewGrid(16, 16, 0.03, 40, -3000, 300)
	grid.BeamMaj = 0.2
	grid.BeamMin = 0.15
	grid.BeamPA = 26
	c, err := cube.New(grid)
	if err != nil {
		return err
	}
	for i := range c.Data {
		c.Data[i] = float32(f.dirtyValue)
	}
	return c.WriteFile(fitsName)
}

func (f *fakeEngine) ImportFITS(ctx context.Context, fitsName, imageName string) error {
	f.calls = append(f.calls, "import:"+filepath.Base(imageName))
	return nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Clean: imaging.DefaultCleanParams(),
		Mask: mask.Generator{
			Geometry: disk.Geometry{
				Inc:   59.1,
				PA:    273,
				Mstar: 0.62,
				Dist:  145,
				VLSR:  6445,
				DX0:   0.0065,
				DY0:   -0.2573,
			},
			DV0:    500,
			DVQ:    -0.5,
			NBeams: 2,
		},
		BasePath:       "data",
		ImageDir:       filepath.Join(dir, "images"),
		FITSDir:        filepath.Join(dir, "fits"),
		RMSChanLo:      0,
		RMSChanHi:      30,
		RMSMultiplier:  2,
		MaxIterations:  50000,
		DirtyThreshold: "5mJy",
		FallbackThresh: "10mJy",
	}
}

func mustLine(t *testing.T, molecule string) lines.Line {
	t.Helper()
	l, err := lines.Lookup(molecule)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRunCompletesAllStages(t *testing.T) {
	cfg := testConfig(t)
	for _, dir := range []string{cfg.ImageDir, cfg.FITSDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	engine := &fakeEngine{dirtyValue: 0.005}
	p := New(engine, cfg)

	r := p.Run(context.Background(), mustLine(t, "C18O"))
	if r.Failed() {
		t.Fatalf("Run failed: %v", r.Err)
	}
	if r.Stage != StageCleaned {
		t.Errorf("Stage = %s, want cleaned", r.Stage)
	}

	// Constant 0.005 Jy dirty cube: threshold = 2 * 5 mJy.
	if r.Threshold != "10.0mJy" {
		t.Errorf("Threshold = %q, want 10.0mJy", r.Threshold)
	}
	if diff := r.RMSJy - 0.005; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("RMSJy = %g, want 0.005", r.RMSJy)
	}
	if diff := r.ThresholdJy - 0.01; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ThresholdJy = %g, want 0.01", r.ThresholdJy)
	}

	if r.CubeFITS == "" || r.MaskFITS == "" {
		t.Error("Completed result must reference both exported products")
	}
	if _, err := os.Stat(r.MaskFITS); err != nil {
		t.Errorf("Mask FITS was not written: %v", err)
	}

	want := []string{
		"clean:AATau_C18O_contsub_clean0",
		"export:AATau_C18O_contsub_clean0.image",
		"import:AATau_C18O_contsub_clean0.mask.image",
		"clean:AATau_C18O_contsub_clean1",
		"export:AATau_C18O_contsub_clean1.image",
	}
	if got := strings.Join(engine.calls, " "); got != strings.Join(want, " ") {
		t.Errorf("Call sequence:\n got %v\nwant %v", engine.calls, want)
	}

	if len(engine.clean) != 2 {
		t.Fatalf("Expected two deconvolution calls, got %d", len(engine.clean))
	}
	dirty, final := engine.clean[0], engine.clean[1]
	if dirty.Niter != 0 || dirty.Threshold != "5mJy" || dirty.Mask != "" {
		t.Errorf("Dirty call: niter=%d threshold=%q mask=%q", dirty.Niter, dirty.Threshold, dirty.Mask)
	}
	if final.Niter != 50000 || final.Threshold != "10.0mJy" {
		t.Errorf("Final call: niter=%d threshold=%q", final.Niter, final.Threshold)
	}
	if !strings.HasSuffix(final.Mask, "AATau_C18O_contsub_clean0.mask.image") {
		t.Errorf("Final call mask = %q", final.Mask)
	}
	if dirty.Vis != mustLine(t, "C18O").VisPath("data") {
		t.Errorf("Vis = %q", dirty.Vis)
	}
	if dirty.Width != "0.2km/s" {
		t.Errorf("Width = %q, want the campaign width", dirty.Width)
	}
	if !strings.Contains(dirty.RestFreq, "329.3305525") {
		t.Errorf("RestFreq = %q", dirty.RestFreq)
	}
}

func TestRunFallbackThreshold(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.FITSDir, 0o755); err != nil {
		t.Fatal(err)
	}

	engine := &fakeEngine{dirtyValue: 0} // blank cube, RMS of zero
	p := New(engine, cfg)

	r := p.Run(context.Background(), mustLine(t, "13CO"))
	if r.Failed() {
		t.Fatalf("Run failed: %v", r.Err)
	}
	if r.Threshold != "10mJy" {
		t.Errorf("Threshold = %q, want the configured fallback", r.Threshold)
	}
	if r.ThresholdJy != 0 {
		t.Errorf("ThresholdJy = %g, want 0 for the fallback", r.ThresholdJy)
	}
}

func TestRunAllIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.FITSDir, 0o755); err != nil {
		t.Fatal(err)
	}

	bad := mustLine(t, "N2H+")
	good := mustLine(t, "HCO+")

	engine := &fakeEngine{dirtyValue: 0.005, failVis: bad.VisPath("data")}
	p := New(engine, cfg)

	results := p.RunAll(context.Background(), []lines.Line{bad, good})
	if len(results) != 2 {
		t.Fatalf("Expected two results, got %d", len(results))
	}

	if !results[0].Failed() {
		t.Error("First line should have failed")
	}
	if results[0].Stage != StagePending {
		t.Errorf("Failed line stage = %s, want pending", results[0].Stage)
	}
	if results[0].FailedStage() != StageDirty {
		t.Errorf("FailedStage() = %s, want dirty", results[0].FailedStage())
	}

	if results[1].Failed() {
		t.Errorf("Second line should have completed: %v", results[1].Err)
	}
	if results[1].Stage != StageCleaned {
		t.Errorf("Second line stage = %s, want cleaned", results[1].Stage)
	}
}

func TestRunAllStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{dirtyValue: 0.005}
	p := New(engine, testConfig(t))

	results := p.RunAll(ctx, lines.Table())
	if len(results) != len(lines.Table()) {
		t.Fatalf("Expected a result per line, got %d", len(results))
	}
	for i, r := range results {
		if r.Stage != StagePending {
			t.Errorf("Result %d stage = %s, want pending", i, r.Stage)
		}
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("Result %d error = %v, want context.Canceled", i, r.Err)
		}
	}
	if len(engine.calls) != 0 {
		t.Errorf("No engine calls expected after cancellation, got %v", engine.calls)
	}
}

func TestFailedStage(t *testing.T) {
	line := mustLine(t, "HCN")
	err := fmt.Errorf("boom")

	tests := []struct {
		result Result
		want   Stage
	}{
		{Result{Line: line, Stage: StagePending, Err: err}, StageDirty},
		{Result{Line: line, Stage: StageDirty, Err: err}, StageMasked},
		{Result{Line: line, Stage: StageMasked, Err: err}, StageThresholded},
		{Result{Line: line, Stage: StageThresholded, Err: err}, StageCleaned},
		{Result{Line: line, Stage: StageCleaned}, StageCleaned},
	}
	for _, tt := range tests {
		if got := tt.result.FailedStage(); got != tt.want {
			t.Errorf("FailedStage() at %s = %s, want %s", tt.result.Stage, got, tt.want)
		}
	}
}

func TestThresholdRounding(t *testing.T) {
	p := New(&fakeEngine{}, Config{RMSMultiplier: 2, FallbackThresh: "10mJy"})

	tests := []struct {
		rms  float64
		want string
	}{
		{0.005, "10.0mJy"},
		{0.00123, "2.5mJy"},
		{0.0001, "0.2mJy"},
		{0, "10mJy"},
		{-1, "10mJy"},
	}
	for _, tt := range tests {
		if got, _ := p.threshold(tt.rms); got != tt.want {
			t.Errorf("threshold(%g) = %q, want %q", tt.rms, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	line := mustLine(t, "DCO+")
	results := []Result{
		{Line: line, Stage: StageCleaned, Threshold: "10.0mJy", RMSJy: 0.005},
		{Line: mustLine(t, "H2CO"), Stage: StageDirty, Err: errors.New("no grid")},
	}

	s := Summarize(results)
	if len(s.Completed) != 1 || len(s.Failed) != 1 {
		t.Fatalf("Summarize split %d/%d, want 1/1", len(s.Completed), len(s.Failed))
	}
	if s.AllFailed() {
		t.Error("AllFailed() should be false with one completion")
	}

	report := s.String()
	for _, want := range []string{"1 lines cleaned, 1 failed", "ok", "DCO+", "failed", "H2CO", "masked"} {
		if !strings.Contains(report, want) {
			t.Errorf("Report missing %q:\n%s", want, report)
		}
	}

	if !Summarize(results[1:]).AllFailed() {
		t.Error("AllFailed() should be true when every line failed")
	}
	if Summarize(nil).AllFailed() {
		t.Error("AllFailed() should be false for an empty run")
	}
}
