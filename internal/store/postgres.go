package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/db"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var upsertTemplateSQL = mustUpsertSQL(db.UpsertConfig{
	Table:        "custom_templates",
	Columns:      []string{"id", "template", "created_at", "updated_at"},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"template", "updated_at"},
	Returning:    []string{"created_at"},
})

func mustUpsertSQL(cfg db.UpsertConfig) string {
	sql, err := db.UpsertSQL(cfg)
	if err != nil {
		panic(err)
	}
	return sql
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"upsert_template": upsertTemplateSQL,
	"get_template":    `SELECT id, template, created_at, updated_at FROM custom_templates WHERE id = $1`,
	"delete_template": `DELETE FROM custom_templates WHERE id = $1`,
	"insert_review":   `INSERT INTO review_runs (id, component_ref, analysis_run_id, bundle_version, result, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_review":      `SELECT id, component_ref, analysis_run_id, bundle_version, result, created_at FROM review_runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
	zap.L().Info("postgres: connected", zap.Int32("max_conns", maxConns), zap.Int32("min_conns", minConns))
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS custom_templates (
	id         TEXT PRIMARY KEY,
	template   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_runs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	component_ref   TEXT NOT NULL,
	analysis_run_id TEXT NOT NULL DEFAULT '',
	bundle_version  TEXT NOT NULL,
	result          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_findings (
	review_id    TEXT NOT NULL REFERENCES review_runs(id) ON DELETE CASCADE,
	route_index  INTEGER NOT NULL,
	plan_id      TEXT NOT NULL,
	finding_id   TEXT NOT NULL,
	rule_id      TEXT NOT NULL,
	pack_id      TEXT NOT NULL,
	finding_type TEXT NOT NULL,
	severity     TEXT NOT NULL,
	PRIMARY KEY (review_id, route_index, finding_id)
);

CREATE INDEX IF NOT EXISTS idx_review_runs_component ON review_runs(component_ref);
CREATE INDEX IF NOT EXISTS idx_review_runs_created_at ON review_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_review_findings_rule ON review_findings(rule_id);
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

func (s *PostgresStore) SaveTemplate(ctx context.Context, spec model.TemplateSpec) (*model.CustomTemplate, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal template")
	}
	now := time.Now().UTC()

	t := &model.CustomTemplate{ID: spec.TemplateID, Template: spec, UpdatedAt: now}
	err = s.pool.QueryRow(ctx, upsertTemplateSQL, spec.TemplateID, specJSON, now, now).Scan(&t.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert template %s", spec.TemplateID)
	}
	return t, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*model.CustomTemplate, error) {
	t, err := scanTemplate(s.pool.QueryRow(ctx,
		`SELECT id, template, created_at, updated_at FROM custom_templates WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get template %s", id)
	}
	return t, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]model.CustomTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, template, created_at, updated_at FROM custom_templates ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	out := []model.CustomTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		out = append(out, *t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM custom_templates WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete template %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "template %s", id)
	}
	return nil
}

// SaveReview stores the review and copies its findings into review_findings
// in one transaction.
func (s *PostgresStore) SaveReview(ctx context.Context, resp *model.ReviewResponse) (*model.ReviewRun, error) {
	run := &model.ReviewRun{
		ID:            uuid.New().String(),
		ComponentRef:  resp.ComponentRef,
		AnalysisRunID: resp.AnalysisRunID,
		BundleVersion: resp.BundleVersion,
		CreatedAt:     time.Now().UTC(),
	}
	stored := *resp
	stored.ReviewID = run.ID
	run.Result = &stored

	resultJSON, err := json.Marshal(&stored)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal review")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO review_runs (id, component_ref, analysis_run_id, bundle_version, result, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.ComponentRef, run.AnalysisRunID, run.BundleVersion, resultJSON, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert review")
	}

	if _, err := db.CopyFrom(ctx, tx, "review_findings", findingColumns, findingRows(run.ID, resp)); err != nil {
		return nil, eris.Wrapf(err, "postgres: copy findings for review %s", run.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit review")
	}
	return run, nil
}

func (s *PostgresStore) GetReview(ctx context.Context, id string) (*model.ReviewRun, error) {
	var r model.ReviewRun
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, component_ref, analysis_run_id, bundle_version, result, created_at FROM review_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.ComponentRef, &r.AnalysisRunID, &r.BundleVersion, &resultJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "review %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get review %s", id)
	}
	var result model.ReviewResponse
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal review")
	}
	r.Result = &result
	return &r, nil
}

// ListReviews returns review summaries, newest first. Results are not loaded.
func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewRun, error) {
	query := `SELECT id, component_ref, analysis_run_id, bundle_version, created_at FROM review_runs WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.ComponentRef != "" {
		query += fmt.Sprintf(` AND component_ref = $%d`, argIdx)
		args = append(args, filter.ComponentRef)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	out := []model.ReviewRun{}
	for rows.Next() {
		var r model.ReviewRun
		if err := rows.Scan(&r.ID, &r.ComponentRef, &r.AnalysisRunID, &r.BundleVersion, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}
