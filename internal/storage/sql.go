package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  id,
                  started_at,
                  config)
VALUES (?, CURRENT_TIMESTAMP, ?)`

	insertLineResultSQL = `
INSERT INTO line_results (run_id,
                          molecule,
                          campaign,
                          stage,
                          status,
                          rms_jy,
                          threshold_jy,
                          error,
                          duration_ms,
                          cube_fits,
                          mask_fits,
                          completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

	selectLineResultsSQL = `
SELECT
    molecule,
    campaign,
    stage,
    status,
    rms_jy,
    threshold_jy,
    error,
    duration_ms,
    cube_fits,
    mask_fits
FROM line_results
WHERE
    run_id = ?
ORDER BY id`
)

//go:embed schema.sql
var initSchemaSQL string
