package standards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/rules"
)

func loadBundle(t *testing.T) *bundle.Bundle {
	t.Helper()
	b, err := bundle.Load("../../configs/bundle")
	require.NoError(t, err)
	return b
}

func evaluate(t *testing.T, b *bundle.Bundle, facts model.PartFacts, mode string) *rules.Evaluation {
	t.Helper()
	plan := model.ExecutionPlan{
		PlanID:      "p",
		RouteSource: model.RouteSourcePrimary,
		ProcessID:   "cnc_milling",
		PackIDs:     []string{"core_dfm", "cnc_milling_dfm", "drawing_completeness"},
		RoleID:      "design_engineer",
		TemplateID:  "standard_review",
	}
	ev, err := rules.New(b).Evaluate(plan, facts, mode)
	require.NoError(t, err)
	return ev
}

func traceFor(traces []model.StandardTrace, id string) (model.StandardTrace, bool) {
	for _, tr := range traces {
		if tr.RefID == id {
			return tr, true
		}
	}
	return model.StandardTrace{}, false
}

func TestDeriveISO2768Violation(t *testing.T) {
	b := loadBundle(t)
	ev := evaluate(t, b, model.PartFacts{
		"bbox_x_mm":                    200.0,
		"min_wall_thickness_mm":        0.5,
		"sharp_internal_edges_present": false,
	}, "geometry_only")

	refs, traces, err := Derive(ev.Findings, ev.Outcomes, b)
	require.NoError(t, err)

	var refIDs []string
	for _, r := range refs {
		refIDs = append(refIDs, r.RefID)
		assert.NotEmpty(t, r.Title)
	}
	assert.Equal(t, Used(ev.Findings), refIDs)
	assert.Contains(t, refIDs, "ISO-2768")

	iso, ok := traceFor(traces, "ISO-2768")
	require.True(t, ok)
	assert.Equal(t, model.TraceFinding, iso.Status)
	assert.True(t, iso.ActiveInMode)
	// CORE-001 passed, CORE-002 violated, CNC-003 deferred, DRW-001 inactive.
	assert.Equal(t, 3, iso.RulesConsidered)
	assert.Equal(t, 1, iso.DesignRiskFindings)
	assert.Equal(t, 1, iso.EvidenceGapFindings)
	assert.Equal(t, 1, iso.BlockedByMissingInputs)
	assert.Equal(t, 1, iso.ChecksPassed)
	assert.Equal(t, 1, iso.ChecksUnresolved)
	assert.Equal(t, 1, iso.RulesNotActiveInMode)

	surface, ok := traceFor(traces, "ISO-1302")
	require.True(t, ok)
	assert.Equal(t, model.TraceNotActiveInMode, surface.Status)
	assert.False(t, surface.ActiveInMode)
	assert.Zero(t, surface.RulesConsidered)
	assert.Positive(t, surface.RulesNotActiveInMode)

	edges, ok := traceFor(traces, "ISO-13715")
	require.True(t, ok)
	// CORE-003 passed, CNC-002 deferred.
	assert.Equal(t, model.TraceEvidenceGap, edges.Status)

	for i := 1; i < len(traces); i++ {
		assert.Less(t, traces[i-1].RefID, traces[i].RefID)
	}
	for _, tr := range traces {
		assert.Equal(t, tr.EvidenceGapFindings, tr.BlockedByMissingInputs, tr.RefID)
	}
}

func TestDerivePassedStatus(t *testing.T) {
	b := loadBundle(t)
	ev := evaluate(t, b, model.PartFacts{
		"max_hole_depth_mm":    10.0,
		"min_hole_diameter_mm": 5.0,
	}, "geometry_only")

	_, traces, err := Derive(ev.Findings, ev.Outcomes, b)
	require.NoError(t, err)
	fits, ok := traceFor(traces, "ISO-286")
	require.True(t, ok)
	assert.Equal(t, model.TracePassed, fits.Status)
	assert.Equal(t, 1, fits.ChecksPassed)
}

func TestDeriveEmptyFindings(t *testing.T) {
	b := loadBundle(t)
	ev := evaluate(t, b, model.PartFacts{}, "spec_only")

	refs, traces, err := Derive(ev.Findings, ev.Outcomes, b)
	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
	assert.Empty(t, Used(nil))
	for _, tr := range traces {
		assert.Equal(t, model.TraceNotActiveInMode, tr.Status)
	}
}

func TestDeriveUnresolvedReference(t *testing.T) {
	b := loadBundle(t)
	findings := []model.Finding{{RuleID: "X-1", PackID: "core_dfm", Refs: []string{"ISO-0000"}}}

	_, _, err := Derive(findings, nil, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestUsedDedupesAndSorts(t *testing.T) {
	findings := []model.Finding{
		{Refs: []string{"ISO-2768", "DIN-6935"}},
		{Refs: []string{"ISO-2768"}},
		{Refs: []string{"ASME-Y14.5"}},
	}
	assert.Equal(t, []string{"ASME-Y14.5", "DIN-6935", "ISO-2768"}, Used(findings))
}

func TestUnion(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, Union([]string{"C", "A"}, []string{"B", "A"}))
	assert.Equal(t, []string{}, Union())
}
