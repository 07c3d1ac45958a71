// Package pipeline drives the per-line cleaning sequence: dirty imaging,
// Keplerian masking, RMS thresholding and the final masked clean. Lines are
// processed strictly one at a time; a failure in any stage is captured in
// that line's result and never aborts the remaining lines.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/jea-astro/diskclean/internal/cube"
	"github.com/jea-astro/diskclean/internal/imaging"
	"github.com/jea-astro/diskclean/internal/lines"
	"github.com/jea-astro/diskclean/internal/mask"
)

// Stage identifies how far a line made it through the sequence.
type Stage int

const (
	StagePending Stage = iota // nothing attempted yet
	StageDirty                // niter=0 cube materialized
	StageMasked               // Keplerian mask generated and imported
	StageThresholded          // noise threshold derived from line-free channels
	StageCleaned              // final masked clean and FITS export done
)

var stageNames = map[Stage]string{
	StagePending:     "pending",
	StageDirty:       "dirty",
	StageMasked:      "masked",
	StageThresholded: "thresholded",
	StageCleaned:     "cleaned",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Config carries the pipeline parameters shared by every line.
type Config struct {
	// Common deconvolution parameter block; per-line fields (vis, image
	// name, width, rest frequency, threshold, niter, mask) are filled in by
	// the pipeline.
	Clean imaging.CleanParams

	// Mask is the Keplerian mask recipe: disk geometry, line-width law and
	// beam-smoothing factor. Rest frequencies are filled in per line.
	Mask mask.Generator

	BasePath string // root of the visibility datasets
	ImageDir string // where native image products are written
	FITSDir  string // where interchange FITS products are written

	RMSChanLo     int     // first line-free channel, inclusive
	RMSChanHi     int     // last line-free channel, inclusive
	RMSMultiplier float64 // threshold = multiplier * RMS

	MaxIterations  int    // iteration cap of the final clean
	DirtyThreshold string // suppressive threshold of the niter=0 call
	FallbackThresh string // used when the dirty cube RMS is non-positive
}

// Result is one line's outcome. Stage is the furthest stage completed; a nil
// Err means the line went all the way through StageCleaned.
type Result struct {
	Line     lines.Line
	Stage    Stage
	Err      error
	Duration time.Duration

	RMSJy       float64 // dirty-cube RMS over the line-free channels, Jy
	ThresholdJy float64 // final clean threshold, Jy
	Threshold   string  // threshold as handed to the engine

	CubeFITS string // exported cleaned cube
	MaskFITS string // exported mask
}

// Failed reports whether the line stopped before completing all stages.
func (r Result) Failed() bool { return r.Err != nil }

// FailedStage returns the stage a failed line was attempting when it
// stopped. For completed lines it returns StageCleaned.
func (r Result) FailedStage() Stage {
	if !r.Failed() || r.Stage >= StageCleaned {
		return StageCleaned
	}
	return r.Stage + 1
}

// Pipeline runs the cleaning sequence against an imaging engine.
type Pipeline struct {
	engine imaging.Engine
	cfg    Config
	logger *slog.Logger
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline over the given engine and configuration.
func New(engine imaging.Engine, cfg Config, options ...func(*Pipeline)) *Pipeline {
	p := Pipeline{
		engine: engine,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
	for _, option := range options {
		option(&p)
	}
	return &p
}

// RunAll processes every line in table order. Each iteration is isolated:
// a failed line is recorded and the next one is still attempted. Context
// cancellation stops the loop between lines; lines never attempted are
// reported at StagePending with the cancellation error.
func (p *Pipeline) RunAll(ctx context.Context, table []lines.Line) []Result {
	results := make([]Result, 0, len(table))
	for _, line := range table {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Line: line, Stage: StagePending, Err: err})
			continue
		}

		logger := p.logger.With(
			slog.String("molecule", line.Molecule),
			slog.String("campaign", line.Campaign.Name),
		)
		logger.Info("processing line")

		r := p.Run(ctx, line)
		if r.Failed() {
			logger.Error(fmt.Sprintf("line failed during %s stage: %s", r.FailedStage(), r.Err.Error()))
		} else {
			logger.Info("line cleaned",
				slog.String("threshold", r.Threshold),
				slog.Duration("took", r.Duration),
			)
		}
		results = append(results, r)
	}
	return results
}

// Run processes a single line through the four stages.
func (p *Pipeline) Run(ctx context.Context, line lines.Line) Result {
	start := time.Now()
	r := Result{Line: line, Stage: StagePending}

	prefix := fmt.Sprintf("AATau_%s_contsub", line.Molecule)
	dirtyName := filepath.Join(p.cfg.ImageDir, prefix+"_clean0")
	cleanName := filepath.Join(p.cfg.ImageDir, prefix+"_clean1")
	dirtyImage := dirtyName + ".image"
	maskImage := dirtyName + ".mask.image"

	dirtyFITS := filepath.Join(p.cfg.FITSDir, prefix+"_clean0.fits")
	maskFITS := filepath.Join(p.cfg.FITSDir, prefix+"_clean0.mask.fits")
	finalFITS := filepath.Join(p.cfg.FITSDir, prefix+"_clean1.fits")

	params := p.cfg.Clean
	params.Vis = line.VisPath(p.cfg.BasePath)
	params.Width = line.Campaign.Width
	params.RestFreq = fmt.Sprintf("%.10gGHz", line.RestFreq)

	// Dirty: materialize a cube with the right grid and noise, nothing more.
	params.ImageName = dirtyName
	params.Threshold = p.cfg.DirtyThreshold
	params.Niter = 0
	if err := p.engine.Clean(ctx, params); err != nil {
		r.Err = fmt.Errorf("dirty imaging: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	r.Stage = StageDirty

	// Masked: read the dirty cube's grid and project the disk model onto it.
	dirty, err := p.materializeDirtyCube(ctx, dirtyImage, dirtyFITS)
	if err != nil {
		r.Err = err
		r.Duration = time.Since(start)
		return r
	}

	gen := p.cfg.Mask
	gen.RestFreq = line.RestFreqHz()
	gen.RestFreqs = line.RestFreqsHz()
	m, err := gen.Generate(dirty.Grid)
	if err != nil {
		r.Err = fmt.Errorf("generating mask: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	p.logger.Debug("mask generated",
		slog.String("molecule", line.Molecule),
		slog.Float64("fraction", m.Fraction()),
	)

	if err = m.WriteFile(maskFITS); err != nil {
		r.Err = fmt.Errorf("writing mask FITS: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	if err = p.engine.ImportFITS(ctx, maskFITS, maskImage); err != nil {
		r.Err = fmt.Errorf("importing mask: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	r.Stage = StageMasked
	r.MaskFITS = maskFITS

	// Thresholded: noise estimate from the declared line-free channels.
	rms, err := dirty.RMS(p.cfg.RMSChanLo, p.cfg.RMSChanHi)
	if err != nil {
		r.Err = fmt.Errorf("computing RMS: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	r.RMSJy = rms
	r.Threshold, r.ThresholdJy = p.threshold(rms)
	r.Stage = StageThresholded

	// Cleaned: the real deconvolution, restricted to the mask.
	params.ImageName = cleanName
	params.Threshold = r.Threshold
	params.Niter = p.cfg.MaxIterations
	params.Mask = maskImage
	if err = p.engine.Clean(ctx, params); err != nil {
		r.Err = fmt.Errorf("masked cleaning: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	if err = p.engine.ExportFITS(ctx, cleanName+".image", finalFITS, true); err != nil {
		r.Err = fmt.Errorf("exporting cleaned cube: %w", err)
		r.Duration = time.Since(start)
		return r
	}
	r.Stage = StageCleaned
	r.CubeFITS = finalFITS
	r.Duration = time.Since(start)
	return r
}

// materializeDirtyCube exports the native dirty image to FITS and reads it
// back; the pipeline trusts only its coordinate grid and noise statistics.
func (p *Pipeline) materializeDirtyCube(ctx context.Context, imageName, fitsName string) (*cube.Cube, error) {
	if err := p.engine.ExportFITS(ctx, imageName, fitsName, true); err != nil {
		return nil, fmt.Errorf("exporting dirty cube: %w", err)
	}
	c, err := cube.ReadFile(fitsName)
	if err != nil {
		return nil, fmt.Errorf("reading dirty cube: %w", err)
	}
	return c, nil
}

// threshold converts the dirty-cube RMS into the engine threshold string:
// multiplier * RMS, rounded to 0.1 mJy. A non-positive RMS (blank cube)
// falls back to the configured default.
func (p *Pipeline) threshold(rms float64) (string, float64) {
	if rms <= 0 {
		return p.cfg.FallbackThresh, 0
	}
	mJy := math.Round(1000*p.cfg.RMSMultiplier*rms*10) / 10
	return fmt.Sprintf("%.1fmJy", mJy), mJy / 1000
}
