package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/jea-astro/diskclean/internal/cube"
)

// Run reads the FITS cube, renders the requested view and writes the image,
// plus the optional line-profile plot.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.FITSPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("FITS file '%s' does not exist: %w", config.FITSPath, err)
	}

	c, err := cube.ReadFile(config.FITSPath)
	if err != nil {
		return err
	}
	logger.Info("cube loaded",
		slog.Int("nx", c.Grid.NX()),
		slog.Int("ny", c.Grid.NY()),
		slog.Int("nchan", c.Grid.NChan()),
	)

	if err = ctx.Err(); err != nil {
		return err
	}

	plane, err := ExtractPlane(c, config.Channel, config.MinIntensity, config.MaxIntensity)
	if err != nil {
		return err
	}
	logger.Info("rendering plane",
		slog.String("destination", config.OutputFile),
		slog.String("format", string(config.Format)),
		slog.String("theme", string(config.Theme)),
		slog.Float64("min", plane.Bounds.Min),
		slog.Float64("max", plane.Bounds.Max),
	)

	var annotator *Annotator
	if config.FontPath != "" {
		if annotator, err = NewAnnotator(config.FontPath); err != nil {
			return fmt.Errorf("creating annotator: %w", err)
		}
		defer annotator.Close()
	}

	renderer := NewPlaneRenderer(config.Theme, annotator)
	img, err := renderer.Render(plane)
	if err != nil {
		return fmt.Errorf("rendering plane: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	if err != nil {
		return err
	}

	if config.ProfileFile != "" {
		logger.Info("writing line profile", slog.String("destination", config.ProfileFile))
		if err = WriteProfile(c, config.ProfileFile); err != nil {
			return err
		}
	}
	return nil
}
