package storage

import "database/sql"

// LineResult is one line's pipeline outcome as persisted. Status is "ok" or
// "failed"; Stage is the furthest pipeline stage the line completed.
type LineResult struct {
	Molecule   string
	Campaign   string
	Stage      string
	Status     string
	RMSJy      *float64
	ThreshJy   *float64
	Error      string
	DurationMS int64
	CubeFITS   string
	MaskFITS   string
}

type lineResultData struct {
	RunID      string
	Molecule   string
	Campaign   string
	Stage      string
	Status     string
	RMSJy      sql.NullFloat64
	ThreshJy   sql.NullFloat64
	Error      sql.NullString
	DurationMS int64
	CubeFITS   sql.NullString
	MaskFITS   sql.NullString
}

func toLineResultData(runID string, r LineResult) *lineResultData {
	d := lineResultData{
		RunID:      runID,
		Molecule:   r.Molecule,
		Campaign:   r.Campaign,
		Stage:      r.Stage,
		Status:     r.Status,
		DurationMS: r.DurationMS,
	}
	if r.RMSJy != nil {
		d.RMSJy = sql.NullFloat64{Float64: *r.RMSJy, Valid: true}
	}
	if r.ThreshJy != nil {
		d.ThreshJy = sql.NullFloat64{Float64: *r.ThreshJy, Valid: true}
	}
	if r.Error != "" {
		d.Error = sql.NullString{String: r.Error, Valid: true}
	}
	if r.CubeFITS != "" {
		d.CubeFITS = sql.NullString{String: r.CubeFITS, Valid: true}
	}
	if r.MaskFITS != "" {
		d.MaskFITS = sql.NullString{String: r.MaskFITS, Valid: true}
	}
	return &d
}

func fromLineResultData(d *lineResultData) LineResult {
	r := LineResult{
		Molecule:   d.Molecule,
		Campaign:   d.Campaign,
		Stage:      d.Stage,
		Status:     d.Status,
		DurationMS: d.DurationMS,
	}
	if d.RMSJy.Valid {
		v := d.RMSJy.Float64
		r.RMSJy = &v
	}
	if d.ThreshJy.Valid {
		v := d.ThreshJy.Float64
		r.ThreshJy = &v
	}
	if d.Error.Valid {
		r.Error = d.Error.String
	}
	if d.CubeFITS.Valid {
		r.CubeFITS = d.CubeFITS.String
	}
	if d.MaskFITS.Valid {
		r.MaskFITS = d.MaskFITS.String
	}
	return r
}
