package cost

import (
	"math"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// CompareRoutes compares the primary and alternate routes' estimates.
// plans and estimates are parallel slices. It returns nil unless exactly one
// primary and one alternate route are present. Ties favour the primary route.
func CompareRoutes(plans []model.ExecutionPlan, estimates []model.CostEstimate) *model.CostCompareRoutes {
	if len(plans) < 2 || len(plans) != len(estimates) {
		return nil
	}
	pi, ai := -1, -1
	for i, p := range plans {
		switch p.RouteSource {
		case model.RouteSourcePrimary:
			pi = i
		case model.RouteSourceAlternate:
			ai = i
		}
	}
	if pi < 0 || ai < 0 {
		return nil
	}
	primary, alternate := estimates[pi], estimates[ai]

	delta := alternate.TotalCost - primary.TotalCost
	pct := 0.0
	if primary.TotalCost != 0 {
		pct = math.Round(delta/primary.TotalCost*10000) / 100
	}

	cmp := &model.CostCompareRoutes{
		Currency: primary.Currency,
		Routes: []model.RouteCost{
			routeCost(plans[pi], primary),
			routeCost(plans[ai], alternate),
		},
		DeltaAbs:         roundCents(delta),
		DeltaPct:         pct,
		CheaperPlanID:    plans[pi].PlanID,
		CheaperProcessID: plans[pi].ProcessID,
	}
	if alternate.TotalCost < primary.TotalCost {
		cmp.CheaperPlanID = plans[ai].PlanID
		cmp.CheaperProcessID = plans[ai].ProcessID
	}
	return cmp
}

func routeCost(p model.ExecutionPlan, e model.CostEstimate) model.RouteCost {
	return model.RouteCost{
		PlanID:      p.PlanID,
		ProcessID:   p.ProcessID,
		RouteSource: p.RouteSource,
		UnitCost:    e.UnitCost,
		TotalCost:   e.TotalCost,
	}
}
