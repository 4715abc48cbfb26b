package rules

import (
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

type result struct {
	pass     bool
	missing  []string
	observed map[string]float64
}

// evaluate runs the rule's evaluator. Inputs that are absent or of the
// wrong type are reported in missing, in declared order.
func evaluate(r bundle.Rule, facts model.PartFacts) result {
	switch r.EvaluatorKind {
	case bundle.EvalFlagForbidden, bundle.EvalFlagRequired:
		return evalFlag(r, facts)
	case bundle.EvalRatioMax, bundle.EvalRatioMin:
		return evalRatio(r, facts)
	default:
		return evalNumeric(r, facts)
	}
}

func numbers(inputs []string, facts model.PartFacts) (map[string]float64, []string) {
	vals := make(map[string]float64, len(inputs))
	var missing []string
	for _, in := range inputs {
		v, ok := facts.Number(in)
		if !ok {
			missing = append(missing, in)
			continue
		}
		vals[in] = v
	}
	return vals, missing
}

func evalNumeric(r bundle.Rule, facts model.PartFacts) result {
	vals, missing := numbers(r.Inputs, facts)
	if len(missing) > 0 {
		return result{missing: missing}
	}
	v := vals[r.Inputs[0]]
	return result{pass: within(r.EvaluatorKind, v, r.Thresholds), observed: vals}
}

func evalRatio(r bundle.Rule, facts model.PartFacts) result {
	vals, missing := numbers(r.Inputs, facts)
	if len(missing) > 0 {
		return result{missing: missing}
	}
	num, den := vals[r.Inputs[0]], vals[r.Inputs[1]]
	if den == 0 {
		return result{missing: []string{r.Inputs[1]}}
	}
	ratio := num / den
	vals["ratio"] = ratio
	kind := bundle.EvalMax
	if r.EvaluatorKind == bundle.EvalRatioMin {
		kind = bundle.EvalMin
	}
	return result{pass: within(kind, ratio, r.Thresholds), observed: vals}
}

func within(kind string, v float64, t bundle.Thresholds) bool {
	switch kind {
	case bundle.EvalMin:
		return v >= *t.Min
	case bundle.EvalMax:
		return v <= *t.Max
	case bundle.EvalRange:
		return v >= *t.Min && v <= *t.Max
	}
	return true
}

func evalFlag(r bundle.Rule, facts model.PartFacts) result {
	key := r.Inputs[0]
	flag, ok := facts.Bool(key)
	if !ok {
		return result{missing: []string{key}}
	}
	observed := map[string]float64{key: 0}
	if flag {
		observed[key] = 1
	}
	if r.EvaluatorKind == bundle.EvalFlagForbidden {
		return result{pass: !flag, observed: observed}
	}
	return result{pass: flag, observed: observed}
}
