package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testTemplate(id, label string) model.TemplateSpec {
	return model.TemplateSpec{
		TemplateID: id,
		Label:      label,
		Sections: []model.TemplateSection{
			{SectionID: "summary", Title: "Summary", Enabled: true},
			{SectionID: "findings", Title: "Findings", Enabled: true},
			{SectionID: "cost", Title: "Cost", Enabled: false},
		},
	}
}

func testReview(ref string) *model.ReviewResponse {
	return &model.ReviewResponse{
		ComponentRef:  ref,
		AnalysisRunID: "run-1",
		AnalysisMode:  "full",
		BundleVersion: "dfm-core@1.4.0+abc",
		Routes: []model.RouteReview{
			{
				PlanID:      "plan-a",
				RouteSource: model.RouteSourcePrimary,
				ProcessID:   "cnc_milling",
				Findings: []model.Finding{
					{FindingID: "core_dfm/CORE-002", RuleID: "CORE-002", PackID: "core_dfm", FindingType: model.FindingRuleViolation, Severity: model.SeverityMajor, Refs: []string{"ISO-2768"}},
					{FindingID: "drawing_completeness/DRW-001", RuleID: "DRW-001", PackID: "drawing_completeness", FindingType: model.FindingEvidenceGap, Severity: model.SeverityMinor, Refs: []string{"ISO-2768"}},
				},
				StandardsUsedAuto: []string{"ISO-2768"},
			},
		},
		StandardsUsedAutoUnion: []string{"ISO-2768"},
	}
}

// --- Templates ---

func TestSQLite_Template_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := st.SaveTemplate(ctx, testTemplate("shop_floor", "Shop floor"))
	require.NoError(t, err)
	assert.Equal(t, "shop_floor", saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := st.GetTemplate(ctx, "shop_floor")
	require.NoError(t, err)
	assert.Equal(t, "Shop floor", got.Template.Label)
	assert.Equal(t, []string{"summary", "findings"}, got.Template.EnabledSections())
}

func TestSQLite_Template_UpsertKeepsCreatedAt(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveTemplate(ctx, testTemplate("t1", "v1"))
	require.NoError(t, err)
	second, err := st.SaveTemplate(ctx, testTemplate("t1", "v2"))
	require.NoError(t, err)

	assert.Equal(t, "v2", second.Template.Label)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	all, err := st.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_Template_ListSorted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, err := st.SaveTemplate(ctx, testTemplate(id, id))
		require.NoError(t, err)
	}

	all, err := st.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "zeta", all[2].ID)
}

func TestSQLite_Template_ListEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)

	all, err := st.ListTemplates(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestSQLite_Template_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetTemplate(ctx, "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = st.DeleteTemplate(ctx, "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Template_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveTemplate(ctx, testTemplate("gone", "Gone"))
	require.NoError(t, err)
	require.NoError(t, st.DeleteTemplate(ctx, "gone"))

	_, err = st.GetTemplate(ctx, "gone")
	assert.True(t, eris.Is(err, ErrNotFound))
}

// --- Reviews ---

func TestSQLite_Review_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.SaveReview(ctx, testReview("bracket-7"))
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, run.ID, run.Result.ReviewID)

	got, err := st.GetReview(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "bracket-7", got.ComponentRef)
	assert.Equal(t, "run-1", got.AnalysisRunID)
	assert.Equal(t, "dfm-core@1.4.0+abc", got.BundleVersion)
	require.NotNil(t, got.Result)
	assert.Equal(t, run.ID, got.Result.ReviewID)
	require.Len(t, got.Result.Routes, 1)
	assert.Len(t, got.Result.Routes[0].Findings, 2)

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_findings WHERE review_id = ?`, run.ID).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLite_Review_DoesNotMutateInput(t *testing.T) {
	st := newTestSQLiteStore(t)
	resp := testReview("part")

	_, err := st.SaveReview(context.Background(), resp)
	require.NoError(t, err)
	assert.Empty(t, resp.ReviewID)
}

func TestSQLite_Review_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetReview(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Review_ListFilterAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, ref := range []string{"a", "a", "b"} {
		_, err := st.SaveReview(ctx, testReview(ref))
		require.NoError(t, err)
	}

	all, err := st.ListReviews(ctx, ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, r := range all {
		assert.Nil(t, r.Result)
	}

	onlyA, err := st.ListReviews(ctx, ReviewFilter{ComponentRef: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	limited, err := st.ListReviews(ctx, ReviewFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	offset, err := st.ListReviews(ctx, ReviewFilter{Limit: 10, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, offset, 1)
}
