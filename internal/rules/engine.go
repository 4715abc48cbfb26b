// Package rules evaluates the rules of an execution plan's packs against
// part facts.
package rules

import (
	"sort"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Evaluation is the result of evaluating one plan. Outcomes covers every
// rule in the plan's packs; Findings only violations and evidence gaps.
type Evaluation struct {
	Findings []model.Finding     `json:"findings"`
	Outcomes []model.RuleOutcome `json:"outcomes"`
}

// Engine evaluates plans against a bundle. It holds no mutable state.
type Engine struct {
	bundle *bundle.Bundle
}

// New creates an Engine.
func New(b *bundle.Bundle) *Engine {
	return &Engine{bundle: b}
}

// Evaluate runs every rule in the plan's packs. Rules whose evidence
// channels are all disabled by the analysis mode are recorded as
// not_active_in_mode; rules with missing inputs become evidence gaps.
// Output order is stable: pack_id, then rule_id.
func (e *Engine) Evaluate(plan model.ExecutionPlan, facts model.PartFacts, analysisMode string) (*Evaluation, error) {
	channels, ok := e.bundle.AnalysisMode(analysisMode)
	if !ok {
		return nil, model.NewRequestError("analysis_mode", "unknown analysis mode %q", analysisMode)
	}
	enabled := make(map[string]bool, len(channels))
	for _, ch := range channels {
		enabled[ch] = true
	}

	ev := &Evaluation{Findings: []model.Finding{}, Outcomes: []model.RuleOutcome{}}
	for _, packID := range plan.PackIDs {
		if _, ok := e.bundle.Pack(packID); !ok {
			return nil, model.NewRequestError("execution_plans.pack_ids", "unknown pack %q", packID)
		}
		for _, r := range e.bundle.RulesInPack(packID) {
			outcome := model.RuleOutcome{RuleID: r.RuleID, PackID: r.PackID, Refs: r.Refs}

			if !active(r, enabled) {
				outcome.Status = model.OutcomeNotActiveInMode
				ev.Outcomes = append(ev.Outcomes, outcome)
				continue
			}

			res := evaluate(r, facts)
			switch {
			case len(res.missing) > 0:
				outcome.Status = model.OutcomeDeferred
				ev.Findings = append(ev.Findings, gapFinding(r, res.missing))
			case !res.pass:
				outcome.Status = model.OutcomeViolation
				ev.Findings = append(ev.Findings, violationFinding(r, res))
			default:
				outcome.Status = model.OutcomePassed
			}
			ev.Outcomes = append(ev.Outcomes, outcome)
		}
	}

	sort.SliceStable(ev.Findings, func(i, j int) bool {
		return less(ev.Findings[i].PackID, ev.Findings[i].RuleID, ev.Findings[j].PackID, ev.Findings[j].RuleID)
	})
	sort.SliceStable(ev.Outcomes, func(i, j int) bool {
		return less(ev.Outcomes[i].PackID, ev.Outcomes[i].RuleID, ev.Outcomes[j].PackID, ev.Outcomes[j].RuleID)
	})
	return ev, nil
}

func less(packA, ruleA, packB, ruleB string) bool {
	if packA != packB {
		return packA < packB
	}
	return ruleA < ruleB
}

func active(r bundle.Rule, enabled map[string]bool) bool {
	for _, m := range r.ApplicableModes {
		if enabled[m] {
			return true
		}
	}
	return false
}

// FindingID is the stable id of a rule's finding.
func FindingID(packID, ruleID string) string {
	return packID + "/" + ruleID
}

func gapFinding(r bundle.Rule, missing []string) model.Finding {
	return model.Finding{
		FindingID:         FindingID(r.PackID, r.RuleID),
		RuleID:            r.RuleID,
		PackID:            r.PackID,
		FindingType:       model.FindingEvidenceGap,
		Severity:          r.Severity.Lower(),
		Refs:              r.Refs,
		Title:             r.Title,
		RecommendedAction: r.RecommendedAction,
		ExpectedImpact:    r.ExpectedImpact,
		MissingInputs:     missing,
	}
}

func violationFinding(r bundle.Rule, res result) model.Finding {
	return model.Finding{
		FindingID:         FindingID(r.PackID, r.RuleID),
		RuleID:            r.RuleID,
		PackID:            r.PackID,
		FindingType:       model.FindingRuleViolation,
		Severity:          r.Severity,
		Refs:              r.Refs,
		Title:             r.Title,
		RecommendedAction: r.RecommendedAction,
		ExpectedImpact:    r.ExpectedImpact,
		Observed:          res.observed,
		Threshold:         thresholdMap(r.Thresholds),
	}
}

func thresholdMap(t bundle.Thresholds) map[string]float64 {
	out := map[string]float64{}
	if t.Min != nil {
		out["min"] = *t.Min
	}
	if t.Max != nil {
		out["max"] = *t.Max
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
