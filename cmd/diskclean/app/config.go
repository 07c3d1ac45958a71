package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jea-astro/diskclean/internal/disk"
)

// LogLevel wraps slog.Level with YAML unmarshalling from the usual
// debug/info/warn/error names.
type LogLevel slog.Level

func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value.Value))); err != nil {
		return fmt.Errorf("app.LogLevel: failed to parse: %s", err)
	}
	*l = LogLevel(level)
	return nil
}

// Level returns the wrapped slog.Level.
func (l LogLevel) Level() slog.Level {
	return slog.Level(l)
}

// Config represents the main application configuration.
type Config struct {
	Settings Settings     `yaml:"settings"`
	Paths    PathsConfig  `yaml:"paths"`
	Engine   EngineConfig `yaml:"engine"`
	Disk     DiskConfig   `yaml:"disk"`
	Mask     MaskConfig   `yaml:"mask"`
	Clean    CleanConfig  `yaml:"clean"`

	// Lines optionally restricts the run to the named molecules; empty
	// means the whole table.
	Lines []string `yaml:"lines"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel LogLevel `yaml:"logLevel"`
}

// PathsConfig locates the input datasets and output products.
type PathsConfig struct {
	Base     string `yaml:"base"`     // root holding the per-campaign contsub directories
	ImageDir string `yaml:"imageDir"` // native image products and engine scripts
	FITSDir  string `yaml:"fitsDir"`  // interchange FITS products
	DataDir  string `yaml:"dataDir"`  // run database
}

// EngineConfig configures the external imaging engine.
type EngineConfig struct {
	Runtime string `yaml:"runtime"` // explicit executable path; empty means PATH lookup
}

// DiskConfig is the disk geometry shared by every mask computation.
type DiskConfig struct {
	Inc   float64 `yaml:"inclination"`    // degrees
	PA    float64 `yaml:"positionAngle"`  // degrees, east of north to the red major axis
	Mstar float64 `yaml:"stellarMass"`    // solar masses
	Dist  float64 `yaml:"distance"`       // parsecs
	VLSR  float64 `yaml:"systemicVel"`    // m/s
	DX0   float64 `yaml:"centerOffsetRA"` // arcsec
	DY0   float64 `yaml:"centerOffsetDec"`
}

// MaskConfig is the Keplerian mask line-width law.
type MaskConfig struct {
	DV0    float64 `yaml:"lineWidth"`    // m/s at 1"
	DVQ    float64 `yaml:"lineWidthExp"` // power-law exponent
	NBeams float64 `yaml:"beamSmoothing"`
}

// CleanConfig is the shared deconvolution parameter block plus the
// threshold rule.
type CleanConfig struct {
	Start          string   `yaml:"start"`
	NChan          int      `yaml:"nchan"`
	Cell           string   `yaml:"cell"`
	ImSize         [2]int   `yaml:"imsize"`
	Robust         float64  `yaml:"robust"`
	UVTaper        []string `yaml:"uvtaper"`
	Scales         []int    `yaml:"scales"`
	RMSChannels    [2]int   `yaml:"rmsChannels"`
	RMSMultiplier  float64  `yaml:"rmsMultiplier"`
	MaxIterations  int      `yaml:"maxIterations"`
	DirtyThreshold string   `yaml:"dirtyThreshold"`
	FallbackThresh string   `yaml:"fallbackThreshold"`
}

// DefaultConfig returns the configuration reproducing the AA Tau reduction:
// its disk geometry, line-width law and imaging parameters.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: LogLevel(slog.LevelInfo)},
		Paths: PathsConfig{
			Base:     ".",
			ImageDir: "casa_images",
			FITSDir:  "fits_products",
			DataDir:  "data",
		},
		Disk: DiskConfig{
			Inc:   59.1,
			PA:    93.0 + 180,
			Mstar: 0.62,
			Dist:  145.0,
			VLSR:  6.445e3,
			DX0:   0.0065,
			DY0:   -0.2573,
		},
		Mask: MaskConfig{
			DV0:    500,
			DVQ:    -0.5,
			NBeams: 2.0,
		},
		Clean: CleanConfig{
			Start:          "-3.0km/s",
			NChan:          100,
			Cell:           "0.03arcsec",
			ImSize:         [2]int{500, 500},
			Robust:         0.5,
			UVTaper:        []string{"0.05arcsec", "0.1483arcsec", "26deg"},
			Scales:         []int{0, 5, 10, 20},
			RMSChannels:    [2]int{0, 30},
			RMSMultiplier:  2.0,
			MaxIterations:  50000,
			DirtyThreshold: "5mJy",
			FallbackThresh: "10mJy",
		},
	}
}

// LoadConfig reads the YAML configuration at path over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Disk.Mstar <= 0:
		return fmt.Errorf("stellar mass must be positive, got %g", c.Disk.Mstar)
	case c.Disk.Dist <= 0:
		return fmt.Errorf("distance must be positive, got %g", c.Disk.Dist)
	case c.Mask.DV0 <= 0:
		return fmt.Errorf("mask line width must be positive, got %g", c.Mask.DV0)
	case c.Mask.NBeams <= 0:
		return fmt.Errorf("beam-smoothing factor must be positive, got %g", c.Mask.NBeams)
	case c.Clean.RMSChannels[0] < 0 || c.Clean.RMSChannels[1] < c.Clean.RMSChannels[0]:
		return fmt.Errorf("invalid RMS channel range %v", c.Clean.RMSChannels)
	case c.Clean.RMSMultiplier <= 0:
		return fmt.Errorf("RMS multiplier must be positive, got %g", c.Clean.RMSMultiplier)
	case c.Clean.MaxIterations <= 0:
		return fmt.Errorf("iteration cap must be positive, got %d", c.Clean.MaxIterations)
	}
	return nil
}

// Geometry converts the disk section into the mask generator's geometry.
func (c *Config) Geometry() disk.Geometry {
	return disk.Geometry{
		Inc:   c.Disk.Inc,
		PA:    c.Disk.PA,
		Mstar: c.Disk.Mstar,
		Dist:  c.Disk.Dist,
		VLSR:  c.Disk.VLSR,
		DX0:   c.Disk.DX0,
		DY0:   c.Disk.DY0,
	}
}
