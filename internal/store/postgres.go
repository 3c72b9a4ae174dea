package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/proximity-cli/internal/db"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/resolve"
)

// PostgresStore implements Store using pgxpool. Results are kept one row per
// feature in analysis_results.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const resultsTable = "analysis_results"

var resultColumns = []string{
	"run_id", "category", "position", "feature_index", "name", "permit", "distance_km", "intersects",
}

var preparedStatements = map[string]string{
	"insert_run":  `INSERT INTO analysis_runs (id, subject, subject_key, radius_km, counts, buffer, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_run":     `SELECT id, subject, radius_km, counts, buffer, created_at FROM analysis_runs WHERE id = $1`,
	"get_results": `SELECT category, feature_index, name, permit, distance_km, intersects FROM analysis_results WHERE run_id = $1 ORDER BY category, position`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject     JSONB NOT NULL,
	subject_key TEXT NOT NULL,
	radius_km   DOUBLE PRECISION NOT NULL,
	counts      JSONB NOT NULL,
	buffer      BYTEA,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_results (
	run_id        TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	category      TEXT NOT NULL,
	position      INTEGER NOT NULL,
	feature_index INTEGER NOT NULL,
	name          TEXT NOT NULL,
	permit        TEXT NOT NULL DEFAULT '',
	distance_km   DOUBLE PRECISION NOT NULL,
	intersects    BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (run_id, category, position)
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_subject_key ON analysis_runs(subject_key);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.AnalysisRun) error {
	subjectJSON, err := json.Marshal(run.Subject)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal subject")
	}
	countsJSON, err := marshalCounts(run.Counts)
	if err != nil {
		return err
	}
	buffer, err := encodeBuffer(run.Buffer)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin create run")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO analysis_runs (id, subject, subject_key, radius_km, counts, buffer, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, subjectJSON, resolve.Normalize(run.Subject.Name), run.RadiusKM, countsJSON, buffer, now,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return eris.Wrap(err, "postgres: insert run")
	}

	if _, err := db.CopyFrom(ctx, tx, resultsTable, resultColumns, resultRows(id, run.Results)); err != nil {
		_ = tx.Rollback(ctx)
		return eris.Wrap(err, "postgres: insert results")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit run")
	}

	run.ID = id
	run.CreatedAt = now
	return nil
}

// resultRows flattens results in category presentation order.
func resultRows(runID string, results map[model.Category][]model.ProximityResult) [][]any {
	var rows [][]any
	for _, c := range model.Categories {
		for i, r := range results[c] {
			rows = append(rows, []any{runID, string(c), i, r.Index, r.Name, r.Permit, r.DistanceKM, r.Intersects})
		}
	}
	return rows
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.AnalysisRun, error) {
	var r model.AnalysisRun
	var subjectJSON, countsJSON, buffer []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, subject, radius_km, counts, buffer, created_at FROM analysis_runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &subjectJSON, &r.RadiusKM, &countsJSON, &buffer, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}

	if err := unmarshalSummary(&r, string(subjectJSON), string(countsJSON)); err != nil {
		return nil, err
	}
	if r.Buffer, err = decodeBuffer(buffer); err != nil {
		return nil, err
	}
	if r.Results, err = s.loadResults(ctx, id, r.Counts); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) loadResults(ctx context.Context, id string, counts map[model.Category]int) (map[model.Category][]model.ProximityResult, error) {
	results := make(map[model.Category][]model.ProximityResult, len(counts))
	for c := range counts {
		results[c] = []model.ProximityResult{}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT category, feature_index, name, permit, distance_km, intersects FROM analysis_results WHERE run_id = $1 ORDER BY category, position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get results %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var pr model.ProximityResult
		if err := rows.Scan(&cat, &pr.Index, &pr.Name, &pr.Permit, &pr.DistanceKM, &pr.Intersects); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		c := model.Category(cat)
		results[c] = append(results[c], pr)
	}
	return results, eris.Wrap(rows.Err(), "postgres: get results iterate")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, subject, radius_km, counts, created_at FROM analysis_runs`
	var args []any

	if key := resolve.Normalize(filter.Subject); key != "" {
		args = append(args, key)
		query += ` WHERE subject_key = $1`
	}
	args = append(args, filter.limit())
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.AnalysisRun{}
	for rows.Next() {
		var r model.AnalysisRun
		var subjectJSON, countsJSON []byte
		if err := rows.Scan(&r.ID, &subjectJSON, &r.RadiusKM, &countsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := unmarshalSummary(&r, string(subjectJSON), string(countsJSON)); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
