package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into table using the COPY protocol. Table may be
// schema-qualified ("dfm.review_findings").
func CopyFrom(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	if n != int64(len(rows)) {
		return n, eris.Errorf("db: COPY INTO %s: copied %d of %d rows", table, n, len(rows))
	}
	return n, nil
}
