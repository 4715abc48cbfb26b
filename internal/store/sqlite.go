package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS custom_templates (
	id         TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_runs (
	id              TEXT PRIMARY KEY,
	component_ref   TEXT NOT NULL,
	analysis_run_id TEXT NOT NULL DEFAULT '',
	bundle_version  TEXT NOT NULL,
	result          TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
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
CREATE INDEX IF NOT EXISTS idx_review_runs_created_at ON review_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_review_findings_rule ON review_findings(rule_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveTemplate(ctx context.Context, spec model.TemplateSpec) (*model.CustomTemplate, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal template")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO custom_templates (id, template, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET template = excluded.template, updated_at = excluded.updated_at`,
		spec.TemplateID, string(specJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert template %s", spec.TemplateID)
	}
	return s.GetTemplate(ctx, spec.TemplateID)
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*model.CustomTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, template, created_at, updated_at FROM custom_templates WHERE id = ?`, id,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get template %s", id)
	}
	return t, nil
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.CustomTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, template, created_at, updated_at FROM custom_templates ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close()

	out := []model.CustomTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		out = append(out, *t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_templates WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete template %s", id)
	}
	return checkRowsAffected(res, "template", id)
}

func (s *SQLiteStore) SaveReview(ctx context.Context, resp *model.ReviewResponse) (*model.ReviewRun, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal review")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_runs (id, component_ref, analysis_run_id, bundle_version, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.ComponentRef, run.AnalysisRunID, run.BundleVersion, string(resultJSON), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert review")
	}

	if rows := findingRows(run.ID, resp); len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO review_findings (`+strings.Join(findingColumns, ", ")+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: prepare findings insert")
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r...); err != nil {
				return nil, eris.Wrapf(err, "sqlite: insert finding for review %s", run.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit review")
	}
	return run, nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*model.ReviewRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, component_ref, analysis_run_id, bundle_version, result, created_at FROM review_runs WHERE id = ?`, id,
	)
	var r model.ReviewRun
	var resultJSON string
	err := row.Scan(&r.ID, &r.ComponentRef, &r.AnalysisRunID, &r.BundleVersion, &resultJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "review %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get review %s", id)
	}
	var result model.ReviewResponse
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal review")
	}
	r.Result = &result
	return &r, nil
}

// ListReviews returns review summaries, newest first. Results are not loaded.
func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewRun, error) {
	query := `SELECT id, component_ref, analysis_run_id, bundle_version, created_at FROM review_runs WHERE 1=1`
	var args []any

	if filter.ComponentRef != "" {
		query += ` AND component_ref = ?`
		args = append(args, filter.ComponentRef)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	out := []model.ReviewRun{}
	for rows.Next() {
		var r model.ReviewRun
		if err := rows.Scan(&r.ID, &r.ComponentRef, &r.AnalysisRunID, &r.BundleVersion, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTemplate(row scannable) (*model.CustomTemplate, error) {
	var t model.CustomTemplate
	var specJSON []byte
	if err := row.Scan(&t.ID, &specJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(specJSON, &t.Template); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal template %s", t.ID)
	}
	return &t, nil
}
