package imaging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CleanParams is the parameter contract of one deconvolution call. It mirrors
// the engine's own vocabulary (weighting scheme, taper geometry, multiscale
// scales, spectral binning); the algorithm behind it is the engine's
// business, not ours.
type CleanParams struct {
	Vis       string // visibility dataset path
	ImageName string // output image name (engine appends its own suffixes)

	Width     string // channel width, e.g. "0.3km/s"
	RestFreq  string // rest frequency, e.g. "279.5117491GHz"
	Threshold string // stop threshold, e.g. "5mJy"
	Niter     int    // iteration cap; 0 materializes a dirty cube
	Mask      string // optional mask image; empty means unmasked

	Deconvolver   string
	Scales        []int
	SpecMode      string
	Start         string
	NChan         int
	OutFrame      string
	ImSize        [2]int
	Cell          string
	Weighting     string
	Robust        float64
	UVTaper       []string
	RestoringBeam string
}

// DefaultCleanParams returns the common parameter block shared by every
// cleaning call of the pipeline: multiscale Briggs-weighted cube imaging with
// an elliptical uv-taper to circularize the beam.
func DefaultCleanParams() CleanParams {
	return CleanParams{
		Deconvolver:   "multiscale",
		Scales:        []int{0, 5, 10, 20},
		SpecMode:      "cube",
		Start:         "-3.0km/s",
		NChan:         100,
		OutFrame:      "LSRK",
		ImSize:        [2]int{500, 500},
		Cell:          "0.03arcsec",
		Weighting:     "briggs",
		Robust:        0.5,
		UVTaper:       []string{"0.05arcsec", "0.1483arcsec", "26deg"},
		RestoringBeam: "common",
	}
}

// Validate reports whether the parameters form a runnable call.
func (p CleanParams) Validate() error {
	switch {
	case p.Vis == "":
		return errors.New("visibility dataset path is required")
	case p.ImageName == "":
		return errors.New("output image name is required")
	case p.Niter < 0:
		return errors.New("iteration cap must not be negative")
	case p.NChan <= 0:
		return errors.New("channel count must be positive")
	}
	return nil
}

// Script renders the call as a one-task engine script. Rendering is
// deterministic: identical parameters produce identical scripts.
func (p CleanParams) Script() string {
	args := []string{
		"vis=" + pyStr(p.Vis),
		"imagename=" + pyStr(p.ImageName),
		"deconvolver=" + pyStr(p.Deconvolver),
		"scales=" + pyIntList(p.Scales),
		"specmode=" + pyStr(p.SpecMode),
		"start=" + pyStr(p.Start),
		"nchan=" + strconv.Itoa(p.NChan),
		"width=" + pyStr(p.Width),
		"restfreq=" + pyStr(p.RestFreq),
		"outframe=" + pyStr(p.OutFrame),
		"imsize=" + pyIntList(p.ImSize[:]),
		"cell=" + pyStr(p.Cell),
		"weighting=" + pyStr(p.Weighting),
		"robust=" + pyFloat(p.Robust),
		"uvtaper=" + pyStrList(p.UVTaper),
		"restoringbeam=" + pyStr(p.RestoringBeam),
		"niter=" + strconv.Itoa(p.Niter),
		"threshold=" + pyStr(p.Threshold),
		"interactive=False",
	}
	if p.Mask != "" {
		args = append(args, "mask="+pyStr(p.Mask))
	}
	return "tclean(" + strings.Join(args, ", ") + ")"
}

// exportScript renders an image-to-FITS export call.
func exportScript(imageName, fitsName string, dropStokes bool) string {
	return fmt.Sprintf("exportfits(imagename=%s, fitsimage=%s, overwrite=True, dropstokes=%s)",
		pyStr(imageName), pyStr(fitsName), pyBool(dropStokes))
}

// importScript renders a FITS-to-image import call.
func importScript(fitsName, imageName string) string {
	return fmt.Sprintf("importfits(fitsimage=%s, imagename=%s, overwrite=True)",
		pyStr(fitsName), pyStr(imageName))
}

func pyStr(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

func pyFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func pyIntList(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func pyStrList(vs []string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = pyStr(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
