package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

type scored struct {
	process  bundle.Process
	priority int
	score    float64
	matched  []bundle.Heuristic
}

// Classify scores every process against facts and recommends the best one.
// Scores are base_score plus the weights of matched heuristics; ties go to the
// earlier process in priority_order. When no heuristic matches anywhere the
// first process in priority_order is returned at the fallback confidence.
func Classify(b *bundle.Bundle, facts model.PartFacts) model.AiRecommendation {
	c := b.Classifier()

	results := make([]scored, 0, len(c.Processes))
	anyMatched := false
	for _, p := range c.Processes {
		s := scored{process: p, priority: b.Priority(p.ProcessID), score: p.BaseScore}
		for _, h := range p.Heuristics {
			if Matches(h, facts) {
				s.score += h.Weight
				s.matched = append(s.matched, h)
				anyMatched = true
			}
		}
		results = append(results, s)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].priority < results[j].priority
	})

	scores := make([]model.ProcessScore, len(results))
	for i, r := range results {
		scores[i] = model.ProcessScore{ProcessID: r.process.ProcessID, Score: round(r.score, 4)}
	}

	if !anyMatched {
		fallback, _ := b.Process(c.PriorityOrder[0])
		return model.AiRecommendation{
			ProcessID:       fallback.ProcessID,
			Confidence:      c.FallbackConfidence,
			ConfidenceLevel: c.ConfidenceLevels.Level(c.FallbackConfidence),
			Reasons:         []string{fmt.Sprintf("No distinguishing features detected; defaulting to %s", fallback.Label)},
			Scores:          scores,
		}
	}

	best := results[0]
	total := 0.0
	for _, r := range results {
		if r.score > best.score {
			best = r
		}
		total += math.Max(r.score, 0)
	}

	confidence := 0.0
	if total > 0 && best.score > 0 {
		confidence = round(best.score/total, 4)
	}

	return model.AiRecommendation{
		ProcessID:       best.process.ProcessID,
		Confidence:      confidence,
		ConfidenceLevel: c.ConfidenceLevels.Level(confidence),
		Reasons:         reasons(best),
		Scores:          scores,
	}
}

func reasons(s scored) []string {
	if len(s.matched) == 0 {
		return []string{fmt.Sprintf("Highest baseline suitability: %s", s.process.Label)}
	}
	hs := append([]bundle.Heuristic(nil), s.matched...)
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].Weight != hs[j].Weight {
			return hs[i].Weight > hs[j].Weight
		}
		return hs[i].Reason < hs[j].Reason
	})
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Reason
	}
	return out
}

// Matches evaluates a single heuristic predicate against facts. Missing facts
// never match, and comparisons against values of the wrong type are false.
func Matches(h bundle.Heuristic, facts model.PartFacts) bool {
	switch h.Op {
	case "present":
		return facts.Has(h.Fact)
	case "truthy":
		return facts.Truthy(h.Fact)
	case "eq":
		return equals(facts, h.Fact, h.Value)
	case "gt", "gte", "lt", "lte":
		got, ok := facts.Number(h.Fact)
		if !ok {
			return false
		}
		want, ok := model.PartFacts{"v": h.Value}.Number("v")
		if !ok {
			return false
		}
		switch h.Op {
		case "gt":
			return got > want
		case "gte":
			return got >= want
		case "lt":
			return got < want
		default:
			return got <= want
		}
	}
	return false
}

func equals(facts model.PartFacts, key string, want any) bool {
	switch w := want.(type) {
	case bool:
		got, ok := facts.Bool(key)
		return ok && got == w
	case string:
		got, ok := facts.String(key)
		return ok && strings.EqualFold(got, strings.TrimSpace(w))
	default:
		wn, ok := model.PartFacts{"v": want}.Number("v")
		if !ok {
			return false
		}
		got, ok := facts.Number(key)
		return ok && got == wn
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
