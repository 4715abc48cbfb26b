package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "review_findings", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"review_findings"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := CopyFrom(context.Background(), mock, "review_findings", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dfm", "review_findings"}, []string{"a"}).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "dfm.review_findings", []string{"a"}, [][]any{{1}, {2}})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_ShortCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"review_findings"}, []string{"a"}).WillReturnResult(1)

	_, err = CopyFrom(context.Background(), mock, "review_findings", []string{"a"}, [][]any{{1}, {2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copied 1 of 2 rows")
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"review_findings"}, []string{"a", "b"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{1, "x"}}
	_, err = CopyFrom(context.Background(), mock, "review_findings", []string{"a", "b"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO review_findings")
	assert.NoError(t, mock.ExpectationsWereMet())
}
