// Package storage persists pipeline runs and per-line outcomes in SQLite so
// that past reductions stay queryable: which lines completed, where the
// failures stopped, and which thresholds the cleans used.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore handles database operations. Write and read connections are
// opened lazily and independently; all writes are atomic.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the SQLite database at dbPath.
// The schema is initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateRun registers a new pipeline run and returns its identifier. config
// can be a string, []byte, or any JSON-serializable value; it is stored for
// later failure attribution.
func (s *SqliteStore) CreateRun(ctx context.Context, config any) (runID string, err error) {
	var configData sql.NullString
	if config != nil {
		switch v := config.(type) {
		case string:
			configData = sql.NullString{String: v, Valid: true}

		case []byte:
			configData = sql.NullString{String: string(v), Valid: true}

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				return "", fmt.Errorf("marshaling config: %w", err)
			}
			configData = sql.NullString{String: string(p), Valid: true}
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return "", fmt.Errorf("getting write connection: %w", err)
	}

	runID = uuid.NewString()
	if _, err = db.ExecContext(ctx, insertRunSQL, runID, configData); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return runID, nil
}

// StoreLineResult persists one line's outcome for the given run.
func (s *SqliteStore) StoreLineResult(ctx context.Context, runID string, r LineResult) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertLineResultSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	d := toLineResultData(runID, r)
	if _, err = stmt.ExecContext(ctx,
		d.RunID,
		d.Molecule,
		d.Campaign,
		d.Stage,
		d.Status,
		d.RMSJy,
		d.ThreshJy,
		d.Error,
		d.DurationMS,
		d.CubeFITS,
		d.MaskFITS,
	); err != nil {
		return fmt.Errorf("inserting line result: %w", err)
	}
	return nil
}

// RunResults returns all line outcomes for the given run in insertion order.
func (s *SqliteStore) RunResults(ctx context.Context, runID string) (results []LineResult, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectLineResultsSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("querying line results: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d lineResultData
		if err = rows.Scan(
			&d.Molecule,
			&d.Campaign,
			&d.Stage,
			&d.Status,
			&d.RMSJy,
			&d.ThreshJy,
			&d.Error,
			&d.DurationMS,
			&d.CubeFITS,
			&d.MaskFITS,
		); err != nil {
			return nil, fmt.Errorf("scanning line result: %w", err)
		}
		results = append(results, fromLineResultData(&d))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating line results: %w", err)
	}
	return results, nil
}

// Close releases all database connections. It is safe to call Close multiple
// times.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
