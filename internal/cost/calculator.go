package cost

import (
	"math"
	"sort"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Calculator holds the arithmetic of the should-cost model. It knows nothing
// about missing inputs; the Estimator resolves those before calling it.
type Calculator struct {
	model bundle.CostModel
}

// NewCalculator creates a Calculator for the given cost model.
func NewCalculator(m bundle.CostModel) *Calculator {
	return &Calculator{model: m}
}

// ProcessModel returns the cycle-time model for a process, or the generic
// model when the cost model has none.
func (c *Calculator) ProcessModel(processID string) (bundle.ProcessCostModel, bool) {
	pm, ok := c.model.Processes[processID]
	if !ok {
		return DefaultProcessModel(), false
	}
	return pm, true
}

// MaterialCost prices stock volume (mm³) at a supplier material rate and
// returns the cost and stock mass in kg.
func (c *Calculator) MaterialCost(stockMM3 float64, rate bundle.MaterialRate) (float64, float64) {
	massKg := (stockMM3 / 1000) * rate.DensityGCm3 / 1000
	return massKg * rate.CostPerKg, massKg
}

// CycleMinutes is base + volume + area + per-feature time.
func (c *Calculator) CycleMinutes(pm bundle.ProcessCostModel, volumeMM3, areaMM2 float64, features map[string]float64) float64 {
	minutes := pm.BaseMinutes +
		(volumeMM3/1000)*pm.MinutesPerCm3 +
		(areaMM2/100/100)*pm.MinutesPer100Cm2

	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		minutes += features[k] * pm.FeatureMinutes[k]
	}
	return minutes
}

// MachineCost converts cycle minutes to cost at an hourly rate.
func (c *Calculator) MachineCost(minutes, hourlyRate float64) float64 {
	return minutes / 60 * hourlyRate
}

// UnitCost applies scrap, amortised setup and margin.
func (c *Calculator) UnitCost(material, machine float64, rate bundle.ProcessRate, margin float64, quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	return ((material+machine)*(1+rate.ScrapFactor) + rate.SetupCost/float64(quantity)) * (1 + margin)
}

// Range widens total by the spread of a confidence level.
func (c *Calculator) Range(total float64, level model.ConfidenceLevel) model.CostRange {
	spread := c.model.RangeSpread.For(level)
	return model.CostRange{
		Low:  roundCents(total * (1 - spread)),
		High: roundCents(total * (1 + spread)),
	}
}

// DefaultProcessModel is used for processes the cost model does not cover.
func DefaultProcessModel() bundle.ProcessCostModel {
	return bundle.ProcessCostModel{
		BaseMinutes:      10,
		MinutesPerCm3:    0.1,
		MinutesPer100Cm2: 1.0,
		StockAllowance:   1.25,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
