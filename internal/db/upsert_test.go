package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "custom_templates",
		Columns:      []string{"id", "template", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"template", "updated_at"},
		Returning:    []string{"created_at"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "custom_templates" ("id", "template", "created_at", "updated_at") VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("id") DO UPDATE SET "template" = EXCLUDED."template", "updated_at" = EXCLUDED."updated_at" RETURNING "created_at"`,
		sql)
}

func TestUpsertSQL_DefaultUpdateCols(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "dfm.t",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "dfm"."t" ("id", "name") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`, sql)
}

func TestUpsertSQL_DoNothing(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "t",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "ON CONFLICT (\"id\") DO NOTHING")
}

func TestUpsertSQL_NoColumns(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL_NoConflictKeys(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
