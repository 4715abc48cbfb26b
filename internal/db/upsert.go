package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines a single-row INSERT ... ON CONFLICT statement.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // all columns being inserted, bound as $1..$n
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
	Returning    []string // optional RETURNING columns
}

// UpsertSQL renders cfg as a parameterised Postgres upsert.
func UpsertSQL(cfg UpsertConfig) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	action := "DO NOTHING"
	if len(updateCols) > 0 {
		setClauses := make([]string, len(updateCols))
		for i, col := range updateCols {
			q := pgx.Identifier{col}.Sanitize()
			setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		identifier(cfg.Table).Sanitize(),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	)
	if len(cfg.Returning) > 0 {
		sql += " RETURNING " + quoteAndJoin(cfg.Returning)
	}
	return sql, nil
}

// identifier handles schema-qualified table names like "dfm.review_runs".
func identifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{table}
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
