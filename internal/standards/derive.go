// Package standards derives the standards a review relied on from its
// findings. Standards are never chosen by the caller.
package standards

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// ErrUnresolvedReference means a finding cites a ref_id missing from the
// bundle. Bundle loading rejects such references, so this is an internal
// integrity failure.
var ErrUnresolvedReference = eris.New("standards: unresolved reference")

// Used returns sorted(dedupe(union of finding refs)).
func Used(findings []model.Finding) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, f := range findings {
		for _, ref := range f.Refs {
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Derive resolves the standards used by findings and computes the per-ref
// trace over every rule outcome of the plan.
func Derive(findings []model.Finding, outcomes []model.RuleOutcome, b *bundle.Bundle) ([]model.StandardRef, []model.StandardTrace, error) {
	used := Used(findings)
	refs := make([]model.StandardRef, 0, len(used))
	for _, id := range used {
		r, ok := b.Reference(id)
		if !ok {
			return nil, nil, eris.Wrapf(ErrUnresolvedReference, "ref %q", id)
		}
		refs = append(refs, model.StandardRef{RefID: r.RefID, Title: r.Title, URL: r.URL, Type: r.Type})
	}

	trace, err := Trace(outcomes, b)
	if err != nil {
		return nil, nil, err
	}
	return refs, trace, nil
}

// Trace aggregates, per cited reference, how the rules citing it resolved.
// Status precedence is finding > evidence_gap > passed > not_active_in_mode.
// Only rules active in the mode count as considered; excluded rules are
// tallied in RulesNotActiveInMode.
func Trace(outcomes []model.RuleOutcome, b *bundle.Bundle) ([]model.StandardTrace, error) {
	agg := map[string]*model.StandardTrace{}
	for _, o := range outcomes {
		for _, id := range o.Refs {
			tr, ok := agg[id]
			if !ok {
				r, found := b.Reference(id)
				if !found {
					return nil, eris.Wrapf(ErrUnresolvedReference, "ref %q", id)
				}
				tr = &model.StandardTrace{RefID: id, Title: r.Title}
				agg[id] = tr
			}

			switch o.Status {
			case model.OutcomeNotActiveInMode:
				tr.RulesNotActiveInMode++
				continue
			case model.OutcomePassed:
				tr.ChecksPassed++
			case model.OutcomeViolation:
				tr.DesignRiskFindings++
			case model.OutcomeDeferred:
				// A rule is deferred only when inputs are missing, so every
				// evidence gap is also blocked by missing inputs.
				tr.EvidenceGapFindings++
				tr.ChecksUnresolved++
				tr.BlockedByMissingInputs++
			}
			tr.RulesConsidered++
			tr.ActiveInMode = true
		}
	}

	out := make([]model.StandardTrace, 0, len(agg))
	for _, tr := range agg {
		tr.Status = status(tr)
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefID < out[j].RefID })
	return out, nil
}

func status(tr *model.StandardTrace) model.TraceStatus {
	switch {
	case tr.DesignRiskFindings > 0:
		return model.TraceFinding
	case tr.EvidenceGapFindings > 0:
		return model.TraceEvidenceGap
	case tr.ChecksPassed > 0:
		return model.TracePassed
	default:
		return model.TraceNotActiveInMode
	}
}

// Union returns the sorted, de-duplicated standards across routes.
func Union(routes ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range routes {
		for _, id := range r {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out
}
