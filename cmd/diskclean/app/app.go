package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/jea-astro/diskclean/internal/imaging"
	"github.com/jea-astro/diskclean/internal/lines"
	"github.com/jea-astro/diskclean/internal/mask"
	"github.com/jea-astro/diskclean/internal/pipeline"
	"github.com/jea-astro/diskclean/internal/storage"
)

const dbFile = "diskclean.sqlite"

// Run executes the whole pipeline: every selected line through all four
// stages, results persisted and summarized. Partial failure is reported, not
// fatal; Run returns an error only when setup fails or no line completed.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	selected, err := selectLines(config.Lines)
	if err != nil {
		return err
	}

	for _, dir := range []string{config.Paths.ImageDir, config.Paths.FITSDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	store, err := createStorage(&config.Paths)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	engineOpts := []func(*imaging.CASA){imaging.WithLogger(logger)}
	if config.Engine.Runtime != "" {
		engineOpts = append(engineOpts, imaging.WithRuntimePath(config.Engine.Runtime))
	}
	engine, err := imaging.NewCASA(config.Paths.ImageDir, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create imaging engine: %w", err)
	}

	runID, err := store.CreateRun(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	logger.Info("starting pipeline run",
		slog.String("runID", runID),
		slog.Int("lines", len(selected)),
	)

	pipe := pipeline.New(engine, pipelineConfig(config), pipeline.WithLogger(logger))
	results := pipe.RunAll(ctx, selected)

	for _, r := range results {
		if err = store.StoreLineResult(ctx, runID, toStoredResult(r)); err != nil {
			logger.Error(fmt.Sprintf("failed to store line result: %s", err.Error()),
				slog.String("molecule", r.Line.Molecule))
		}
	}

	summary := pipeline.Summarize(results)
	logger.Info("pipeline run finished",
		slog.String("runID", runID),
		slog.Int("cleaned", len(summary.Completed)),
		slog.Int("failed", len(summary.Failed)),
	)
	fmt.Println(summary)
	reportProducts(logger, summary)

	if summary.AllFailed() {
		return fmt.Errorf("all %d lines failed", len(summary.Failed))
	}
	return nil
}

func selectLines(filter []string) ([]lines.Line, error) {
	if len(filter) == 0 {
		return lines.Table(), nil
	}
	selected := make([]lines.Line, 0, len(filter))
	for _, molecule := range filter {
		line, err := lines.Lookup(molecule)
		if err != nil {
			return nil, err
		}
		selected = append(selected, line)
	}
	return selected, nil
}

func createStorage(paths *PathsConfig) (*storage.SqliteStore, error) {
	dataDir := paths.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return storage.NewSqliteStore(filepath.Join(dataDir, dbFile)), nil
}

func pipelineConfig(config *Config) pipeline.Config {
	params := imaging.DefaultCleanParams()
	params.Start = config.Clean.Start
	params.NChan = config.Clean.NChan
	params.Cell = config.Clean.Cell
	params.ImSize = config.Clean.ImSize
	params.Robust = config.Clean.Robust
	params.UVTaper = config.Clean.UVTaper
	params.Scales = config.Clean.Scales

	return pipeline.Config{
		Clean: params,
		Mask: mask.Generator{
			Geometry: config.Geometry(),
			DV0:      config.Mask.DV0,
			DVQ:      config.Mask.DVQ,
			NBeams:   config.Mask.NBeams,
		},
		BasePath:       config.Paths.Base,
		ImageDir:       config.Paths.ImageDir,
		FITSDir:        config.Paths.FITSDir,
		RMSChanLo:      config.Clean.RMSChannels[0],
		RMSChanHi:      config.Clean.RMSChannels[1],
		RMSMultiplier:  config.Clean.RMSMultiplier,
		MaxIterations:  config.Clean.MaxIterations,
		DirtyThreshold: config.Clean.DirtyThreshold,
		FallbackThresh: config.Clean.FallbackThresh,
	}
}

func toStoredResult(r pipeline.Result) storage.LineResult {
	out := storage.LineResult{
		Molecule:   r.Line.Molecule,
		Campaign:   r.Line.Campaign.Name,
		Stage:      r.Stage.String(),
		Status:     "ok",
		DurationMS: r.Duration.Milliseconds(),
		CubeFITS:   r.CubeFITS,
		MaskFITS:   r.MaskFITS,
	}
	if r.Failed() {
		out.Status = "failed"
		out.Error = r.Err.Error()
	}
	if r.Stage >= pipeline.StageThresholded {
		rms, thresh := r.RMSJy, r.ThresholdJy
		out.RMSJy = &rms
		out.ThreshJy = &thresh
	}
	return out
}

// reportProducts logs the exported FITS files with their on-disk sizes.
func reportProducts(logger *slog.Logger, summary pipeline.Summary) {
	for _, r := range summary.Completed {
		for _, path := range []string{r.CubeFITS, r.MaskFITS} {
			stat, err := os.Stat(path)
			if err != nil {
				continue
			}
			logger.Info("exported product",
				slog.String("molecule", r.Line.Molecule),
				slog.String("path", path),
				slog.String("size", humanize.Bytes(uint64(stat.Size()))),
			)
		}
	}
}
