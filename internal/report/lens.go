package report

import (
	"slices"
	"sort"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Lens orders findings for a role. It never adds or drops a finding.
type Lens struct {
	role      bundle.Role
	packOrder func(string) int
}

// NewLens creates the lens of role. packOrder ranks packs canonically.
func NewLens(role bundle.Role, packOrder func(string) int) Lens {
	return Lens{role: role, packOrder: packOrder}
}

// Weight is the role's weight for a severity, or its rank when the role
// does not weight severities.
func (l Lens) Weight(s model.Severity) float64 {
	if w, ok := l.role.SeverityWeights[string(s)]; ok {
		return w
	}
	return float64(s.Rank() + 1)
}

// Order returns a sorted copy: emphasized packs first, then higher severity
// weight, then canonical pack order, then rule id.
func (l Lens) Order(findings []model.Finding) []model.Finding {
	out := slices.Clone(findings)
	emph := make(map[string]int, len(l.role.EmphasizedPacks))
	for i, p := range l.role.EmphasizedPacks {
		emph[p] = i
	}
	rank := func(packID string) int {
		if i, ok := emph[packID]; ok {
			return i
		}
		return len(emph)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank(a.PackID), rank(b.PackID); ra != rb {
			return ra < rb
		}
		if wa, wb := l.Weight(a.Severity), l.Weight(b.Severity); wa != wb {
			return wa > wb
		}
		if pa, pb := l.packOrder(a.PackID), l.packOrder(b.PackID); pa != pb {
			return pa < pb
		}
		return a.RuleID < b.RuleID
	})
	return out
}
