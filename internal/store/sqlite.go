package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/resolve"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	subject_key TEXT NOT NULL,
	radius_km   REAL NOT NULL,
	counts      TEXT NOT NULL,
	results     TEXT,
	buffer      BLOB,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_subject_key ON analysis_runs(subject_key);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.AnalysisRun) error {
	subjectJSON, err := json.Marshal(run.Subject)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal subject")
	}
	countsJSON, err := marshalCounts(run.Counts)
	if err != nil {
		return err
	}
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}
	buffer, err := encodeBuffer(run.Buffer)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, subject, subject_key, radius_km, counts, results, buffer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(subjectJSON), resolve.Normalize(run.Subject.Name), run.RadiusKM,
		string(countsJSON), string(resultsJSON), buffer, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	run.ID = id
	run.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, radius_km, counts, results, buffer, created_at FROM analysis_runs WHERE id = ?`,
		id,
	)

	var r model.AnalysisRun
	var subjectJSON, countsJSON string
	var resultsJSON sql.NullString
	var buffer []byte

	err := row.Scan(&r.ID, &subjectJSON, &r.RadiusKM, &countsJSON, &resultsJSON, &buffer, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}

	if err := unmarshalSummary(&r, subjectJSON, countsJSON); err != nil {
		return nil, err
	}
	if resultsJSON.Valid {
		if err := json.Unmarshal([]byte(resultsJSON.String), &r.Results); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal results")
		}
	}
	if r.Buffer, err = decodeBuffer(buffer); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, subject, radius_km, counts, created_at FROM analysis_runs WHERE 1=1`
	var args []any

	if key := resolve.Normalize(filter.Subject); key != "" {
		query += ` AND subject_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.AnalysisRun{}
	for rows.Next() {
		var r model.AnalysisRun
		var subjectJSON, countsJSON string
		if err := rows.Scan(&r.ID, &subjectJSON, &r.RadiusKM, &countsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := unmarshalSummary(&r, subjectJSON, countsJSON); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func unmarshalSummary(r *model.AnalysisRun, subjectJSON, countsJSON string) error {
	if err := json.Unmarshal([]byte(subjectJSON), &r.Subject); err != nil {
		return eris.Wrap(err, "store: unmarshal subject")
	}
	if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
		return eris.Wrap(err, "store: unmarshal counts")
	}
	return nil
}
