// Package cost produces directional should-cost estimates for execution
// plans and compares the estimates of two routes.
package cost

import (
	"fmt"
	"math"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/geometry"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Penalty keys in the cost model's confidence.penalties.
const (
	PenaltyVolume       = "volume"
	PenaltyBBox         = "bbox"
	PenaltySurfaceArea  = "surface_area"
	PenaltyMaterial     = "material"
	PenaltyMaterialRate = "material_rate"
	PenaltyProcessRate  = "process_rate"
	PenaltyProcessModel = "process_model"
	PenaltyQuantity     = "quantity"
)

const (
	minConfidence = 0.05
	maxConfidence = 1.0
)

// Estimator turns plans and facts into cost estimates.
type Estimator struct {
	model bundle.CostModel
	calc  *Calculator
}

// NewEstimator creates an Estimator for the given cost model.
func NewEstimator(m bundle.CostModel) *Estimator {
	return &Estimator{model: m, calc: NewCalculator(m)}
}

// Estimate never fails. Every missing input is replaced by a documented
// assumption and lowers confidence by that input's penalty, so confidence
// never rises as inputs go missing.
func (e *Estimator) Estimate(plan model.ExecutionPlan, facts model.PartFacts, supplier bundle.SupplierProfile, quantity int) model.CostEstimate {
	st := &state{confidence: e.model.Confidence.Base, assumptions: []string{}}

	if quantity < 1 {
		quantity = 1
		st.penalise(e.penalty(PenaltyQuantity), "Quantity not provided; priced as a single unit")
	}

	bboxVol, hasBBox := geometry.BoxVolume(facts)
	if !hasBBox {
		st.penalise(e.penalty(PenaltyBBox), "Bounding box unavailable; stock sized from part volume")
	}

	volume, ok := positive(facts, geometry.FactVolume)
	if !ok {
		if hasBBox {
			volume = bboxVol * e.model.FillFactor
			st.penalise(e.penalty(PenaltyVolume), fmt.Sprintf("Part volume estimated as %.0f%% of bounding box", e.model.FillFactor*100))
		} else {
			volume = e.model.FallbackVolumeMM3
			st.penalise(e.penalty(PenaltyVolume), fmt.Sprintf("Part volume unknown; assumed %.0f mm³", volume))
		}
	}

	area, ok := positive(facts, geometry.FactSurface)
	if !ok {
		area = 6 * math.Pow(volume, 2.0/3.0)
		st.penalise(e.penalty(PenaltySurfaceArea), "Surface area estimated from volume as an equivalent cube")
	}

	pm, ok := e.calc.ProcessModel(plan.ProcessID)
	if !ok {
		st.penalise(e.penalty(PenaltyProcessModel), fmt.Sprintf("No cycle-time model for %s; generic machining model used", plan.ProcessID))
	}
	stock := volume * pm.StockAllowance
	if hasBBox {
		stock = bboxVol * pm.StockAllowance
	}

	materialID, matRate := e.material(facts, supplier, st)
	materialCost, massKg := e.calc.MaterialCost(stock, matRate)

	rate, ok := supplier.ProcessRates[plan.ProcessID]
	if !ok {
		rate = bundle.ProcessRate{HourlyRate: e.model.DefaultHourlyRate, SetupCost: e.model.DefaultSetupCost}
		st.penalise(e.penalty(PenaltyProcessRate), fmt.Sprintf("Supplier has no rate for %s; default %.2f/h used", plan.ProcessID, rate.HourlyRate))
	}

	features := map[string]float64{}
	for name := range pm.FeatureMinutes {
		if n, ok := facts.Number(name); ok && n > 0 {
			features[name] = n
		}
	}
	minutes := e.calc.CycleMinutes(pm, volume, area, features)
	machine := e.calc.MachineCost(minutes, rate.HourlyRate)
	unit := e.calc.UnitCost(materialCost, machine, rate, supplier.Margin, quantity)
	total := unit * float64(quantity)

	confidence := clamp(st.confidence)
	level := e.model.ConfidenceLevels.Level(confidence)

	currency := supplier.Currency
	if currency == "" {
		currency = e.model.Currency
	}

	return model.CostEstimate{
		PlanID:          plan.PlanID,
		ProcessID:       plan.ProcessID,
		Currency:        currency,
		Quantity:        quantity,
		UnitCost:        roundCents(unit),
		TotalCost:       roundCents(total),
		CostRange:       e.calc.Range(total, level),
		Confidence:      math.Round(confidence*1000) / 1000,
		ConfidenceLevel: level,
		Assumptions:     st.assumptions,
		Breakdown: model.CostBreakdown{
			MaterialCost: roundCents(materialCost),
			MachineCost:  roundCents(machine),
			SetupPerUnit: roundCents(rate.SetupCost / float64(quantity)),
			ScrapFactor:  rate.ScrapFactor,
			Margin:       supplier.Margin,
			CycleMinutes: math.Round(minutes*100) / 100,
			HourlyRate:   rate.HourlyRate,
			MaterialID:   materialID,
			StockMassKg:  math.Round(massKg*1000) / 1000,
		},
	}
}

func (e *Estimator) material(facts model.PartFacts, supplier bundle.SupplierProfile, st *state) (string, bundle.MaterialRate) {
	def := e.model.DefaultMaterial
	id, ok := facts.String("material")
	if !ok {
		st.penalise(e.penalty(PenaltyMaterial), fmt.Sprintf("Material not specified; priced as %s", def))
		id = def
	}
	if r, ok := supplier.MaterialRates[id]; ok {
		return id, r
	}
	if id != def {
		st.penalise(e.penalty(PenaltyMaterialRate), fmt.Sprintf("No supplier rate for %s; priced as %s", id, def))
	}
	if r, ok := supplier.MaterialRates[def]; ok {
		return def, r
	}
	st.penalise(e.penalty(PenaltyMaterialRate), "No supplier material rates; material cost excluded")
	return def, bundle.MaterialRate{DensityGCm3: 1}
}

func (e *Estimator) penalty(key string) float64 {
	return e.model.Confidence.Penalties[key]
}

type state struct {
	confidence  float64
	assumptions []string
}

func (s *state) penalise(p float64, assumption string) {
	if p > 0 {
		s.confidence -= p
	}
	s.assumptions = append(s.assumptions, assumption)
}

func positive(facts model.PartFacts, key string) (float64, bool) {
	v, ok := facts.Number(key)
	return v, ok && v > 0
}

func clamp(c float64) float64 {
	return math.Min(maxConfidence, math.Max(minConfidence, c))
}
