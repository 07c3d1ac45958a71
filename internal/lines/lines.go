// Package lines holds the static table of AA Tau spectral lines processed by
// the pipeline: ten transitions from three ALMA observing campaigns. The table
// is configuration, not algorithm: every entry is fully enumerated, nothing
// is computed or inferred at runtime.
package lines

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownLine is returned by Lookup for a molecule identifier that is not
// one of the ten known lines.
var ErrUnknownLine = errors.New("unknown spectral line")

// GHz converts a rest frequency from the table's GHz units to Hz.
const GHz = 1e9

// Campaign identifies one observing campaign and its dataset naming
// conventions. The continuum-subtracted measurement sets live in a
// per-campaign directory under the base path.
type Campaign struct {
	Name        string // e.g. "2013_SG2"
	ContsubDir  string // directory holding the continuum-subtracted datasets
	VisTemplate string // measurement set filename, %d is the spectral window
	Width       string // channel width passed to the imaging engine, e.g. "0.3km/s"
}

// Line describes one spectral transition: which dataset it comes from and the
// rest frequencies needed to image and mask it. RestFreqs lists all blended
// hyperfine components; for unblended lines it holds the single rest
// frequency.
type Line struct {
	Molecule  string
	SPW       int
	RestFreq  float64   // primary rest frequency, GHz
	RestFreqs []float64 // all components, GHz
	Campaign  Campaign
}

// RestFreqHz returns the primary rest frequency in Hz.
func (l Line) RestFreqHz() float64 {
	return l.RestFreq * GHz
}

// RestFreqsHz returns all component rest frequencies in Hz.
func (l Line) RestFreqsHz() []float64 {
	out := make([]float64, len(l.RestFreqs))
	for i, f := range l.RestFreqs {
		out[i] = f * GHz
	}
	return out
}

// VisPath resolves the visibility dataset path for this line under the given
// base directory, following the campaign naming convention.
func (l Line) VisPath(base string) string {
	return filepath.Join(base, l.Campaign.ContsubDir, fmt.Sprintf(l.Campaign.VisTemplate, l.SPW))
}

var (
	campaign2013SG2 = Campaign{
		Name:        "2013_SG2",
		ContsubDir:  "contsub_2013SG2",
		VisTemplate: "AA_Tau_2013_SG2.spw%d.selfcal.ms.contsub_fit1",
		Width:       "0.3km/s",
	}

	campaign2013SG1 = Campaign{
		Name:        "2013_SG1",
		ContsubDir:  "contsub_2013SG1",
		VisTemplate: "AA_Tau_2013_SG1.spw%d.selfcal.ms.contsub_fit1",
		Width:       "0.2km/s",
	}

	// The 2015 campaign predates the contsub_<name> convention and keeps its
	// original directory name.
	campaign2015SG1 = Campaign{
		Name:        "2015_SG1",
		ContsubDir:  "contsub_2015",
		VisTemplate: "AA_Tau_2015_SG1.spw%d.selfcal.ms.contsub_fit1",
		Width:       "0.2km/s",
	}
)

var table = []Line{
	{
		Molecule:  "N2H+",
		SPW:       0,
		RestFreq:  279.5117491,
		RestFreqs: []float64{279.5117491},
		Campaign:  campaign2013SG2,
	},
	{
		Molecule:  "DCO+",
		SPW:       2,
		RestFreq:  288.1438583,
		RestFreqs: []float64{288.1438583},
		Campaign:  campaign2013SG2,
	},
	{
		Molecule:  "H2CO",
		SPW:       6,
		RestFreq:  290.623405,
		RestFreqs: []float64{290.623405},
		Campaign:  campaign2013SG2,
	},
	{
		Molecule: "HCN",
		SPW:      0,
		RestFreq: 265.8864343,
		RestFreqs: []float64{
			265.8848912, 265.8861886, 265.8864339,
			265.8864343, 265.8864999, 265.8885221,
		},
		Campaign: campaign2013SG1,
	},
	{
		Molecule:  "HCO+",
		SPW:       1,
		RestFreq:  267.5576259,
		RestFreqs: []float64{267.5576259},
		Campaign:  campaign2013SG1,
	},
	{
		Molecule: "CN_SPW1",
		SPW:      1,
		RestFreq: 340.24777,
		RestFreqs: []float64{
			340.24777, 340.248544, 340.2617734, 340.264949, 340.2791201,
		},
		Campaign: campaign2015SG1,
	},
	{
		Molecule: "CN_SPW3",
		SPW:      3,
		RestFreq: 340.0315494,
		RestFreqs: []float64{
			340.0081263, 340.0196255, 340.0315494, 340.035408,
		},
		Campaign: campaign2015SG1,
	},
	{
		Molecule:  "C18O",
		SPW:       5,
		RestFreq:  329.3305525,
		RestFreqs: []float64{329.3305525},
		Campaign:  campaign2015SG1,
	},
	{
		Molecule:  "13CO",
		SPW:       6,
		RestFreq:  330.5879653,
		RestFreqs: []float64{330.5879653},
		Campaign:  campaign2015SG1,
	},
	{
		Molecule:  "C17O",
		SPW:       4,
		RestFreq:  337.0611298,
		RestFreqs: []float64{337.0611298},
		Campaign:  campaign2015SG1,
	},
}

// Table returns all known lines in campaign order. The returned slice is a
// copy; callers may reorder or filter it freely.
func Table() []Line {
	out := make([]Line, len(table))
	copy(out, table)
	return out
}

// Lookup returns the line with the given molecule identifier. Lookup never
// fails for any of the ten known lines.
func Lookup(molecule string) (Line, error) {
	for _, l := range table {
		if l.Molecule == molecule {
			return l, nil
		}
	}
	return Line{}, fmt.Errorf("%w: %q", ErrUnknownLine, molecule)
}
