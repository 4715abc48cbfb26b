package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

func TestClassifyFallback(t *testing.T) {
	rec := Classify(loadBundle(t), model.PartFacts{})

	assert.Equal(t, "cnc_milling", rec.ProcessID)
	assert.InDelta(t, 0.3, rec.Confidence, 1e-9)
	assert.Equal(t, model.ConfidenceLow, rec.ConfidenceLevel)
	assert.Len(t, rec.Reasons, 1)
	assert.Contains(t, rec.Reasons[0], "defaulting")
}

func TestClassifyTieUsesPriority(t *testing.T) {
	// cnc_milling: base 0.5; sheet_metal_fabrication: thin envelope 0.5.
	rec := Classify(loadBundle(t), model.PartFacts{"bbox_z_mm": 5})

	assert.Equal(t, "cnc_milling", rec.ProcessID)
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	assert.Equal(t, model.ConfidenceMedium, rec.ConfidenceLevel)
}

func TestClassifyReasonsOrderedByWeight(t *testing.T) {
	rec := Classify(loadBundle(t), model.PartFacts{
		"bends_present":      true,
		"sheet_thickness_mm": 2.0,
		"bbox_z_mm":          4,
	})

	assert.Equal(t, "sheet_metal_fabrication", rec.ProcessID)
	assert.Equal(t, []string{"Bends detected", "Uniform sheet thickness detected", "Thin envelope"}, rec.Reasons)
	// 3.5 / (0.5 + 3.5)
	assert.InDelta(t, 0.875, rec.Confidence, 1e-9)
	assert.Len(t, rec.Scores, 3)
	assert.Equal(t, "cnc_milling", rec.Scores[0].ProcessID)
}

func TestClassifyDeterministic(t *testing.T) {
	b := loadBundle(t)
	facts := model.PartFacts{"pocket_count": 2, "hole_count": 6, "rotational_symmetry": true}
	first := Classify(b, facts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(b, facts))
	}
}

func TestMatches(t *testing.T) {
	facts := model.PartFacts{
		"count":    3,
		"ratio":    json.Number("0.25"),
		"flag":     true,
		"material": "Aluminum_6061",
		"zero":     0,
	}
	tests := []struct {
		name string
		h    bundle.Heuristic
		want bool
	}{
		{"gt true", bundle.Heuristic{Fact: "count", Op: "gt", Value: 2.0}, true},
		{"gt equal", bundle.Heuristic{Fact: "count", Op: "gt", Value: 3.0}, false},
		{"gte equal", bundle.Heuristic{Fact: "count", Op: "gte", Value: 3.0}, true},
		{"lt json number", bundle.Heuristic{Fact: "ratio", Op: "lt", Value: 0.5}, true},
		{"lte", bundle.Heuristic{Fact: "ratio", Op: "lte", Value: 0.25}, true},
		{"missing fact", bundle.Heuristic{Fact: "absent", Op: "gt", Value: 0.0}, false},
		{"non numeric value", bundle.Heuristic{Fact: "count", Op: "gt", Value: "many"}, false},
		{"present", bundle.Heuristic{Fact: "zero", Op: "present"}, true},
		{"truthy zero", bundle.Heuristic{Fact: "zero", Op: "truthy"}, false},
		{"truthy flag", bundle.Heuristic{Fact: "flag", Op: "truthy"}, true},
		{"eq bool", bundle.Heuristic{Fact: "flag", Op: "eq", Value: true}, true},
		{"eq string case-insensitive", bundle.Heuristic{Fact: "material", Op: "eq", Value: "aluminum_6061"}, true},
		{"eq number", bundle.Heuristic{Fact: "count", Op: "eq", Value: 3.0}, true},
		{"unknown op", bundle.Heuristic{Fact: "count", Op: "approx", Value: 3.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.h, facts))
		})
	}
}
