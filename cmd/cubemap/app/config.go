package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

// ImageFormat selects the output encoding.
type ImageFormat string

// Config holds the renderer options resolved from the command line.
type Config struct {
	FITSPath   string
	OutputFile string
	Format     ImageFormat
	Channel    int // -1 renders the velocity-integrated map
	Theme      ColorTheme

	MinIntensity *float64
	MaxIntensity *float64

	FontPath    string // TTF for axis/info annotations; empty disables them
	ProfileFile string // optional line-profile plot destination
	Verbose     bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// NewConfig returns a config with defaults applied.
func NewConfig() *Config {
	return &Config{
		Format:  ImagePNG,
		Channel: -1,
		Theme:   ThermalTheme,
	}
}

// NewConfigFromCLI parses the command line into a renderer configuration.
func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var minIntensity, maxIntensity float64
	flag.StringVar(&c.FITSPath, "fits", "", "Path to the FITS cube")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.IntVar(&c.Channel, "channel", -1, "Channel to render; -1 integrates over velocity")
	flag.StringVar(&theme, "theme", string(ThermalTheme), "Color theme. [classic, grayscale, thermal]")
	flag.Float64Var(&minIntensity, "min", 0, "Manual minimum intensity (Jy/beam)")
	flag.Float64Var(&maxIntensity, "max", 0, "Manual maximum intensity (Jy/beam)")
	flag.StringVar(&c.FontPath, "font", "", "TTF font for annotations; empty disables annotations")
	flag.StringVar(&c.ProfileFile, "profile", "", "Also write an integrated line-profile plot to this path")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min" {
			c.MinIntensity = &minIntensity
		}
		if f.Name == "max" {
			c.MaxIntensity = &maxIntensity
		}
	})

	var err error
	if c.FITSPath == "" {
		err = errors.New("fits path is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validColorThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
