package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

func testModel() bundle.CostModel {
	return bundle.CostModel{
		Currency:          "USD",
		DefaultMaterial:   "aluminum_6061",
		DefaultHourlyRate: 90,
		DefaultSetupCost:  150,
		FallbackVolumeMM3: 50000,
		FillFactor:        0.4,
		Processes: map[string]bundle.ProcessCostModel{
			"cnc_milling": {
				BaseMinutes: 10, MinutesPerCm3: 0.15, MinutesPer100Cm2: 2.0, StockAllowance: 1.3,
				FeatureMinutes: map[string]float64{"hole_count": 0.5, "pocket_count": 3},
			},
		},
		RangeSpread:      bundle.RangeSpread{High: 0.1, Medium: 0.2, Low: 0.35},
		ConfidenceLevels: bundle.ConfidenceLevels{High: 0.75, Medium: 0.5},
	}
}

func TestMaterialCost(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())

	cost, mass := calc.MaterialCost(52000, bundle.MaterialRate{CostPerKg: 8.5, DensityGCm3: 2.7})
	assert.InDelta(t, 0.1404, mass, 1e-9)
	assert.InDelta(t, 1.1934, cost, 1e-9)
}

func TestCycleMinutes(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())
	pm, ok := calc.ProcessModel("cnc_milling")
	assert.True(t, ok)

	tests := []struct {
		name     string
		volume   float64
		area     float64
		features map[string]float64
		want     float64
	}{
		{name: "base only", want: 10},
		{name: "volume", volume: 10000, want: 10 + 1.5},
		{name: "area", area: 5000, want: 10 + 1.0},
		{
			name:     "features",
			features: map[string]float64{"hole_count": 4, "pocket_count": 2, "thread_count": 3},
			// thread_count has no minutes in this model
			want: 10 + 2 + 6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.CycleMinutes(pm, tt.volume, tt.area, tt.features), 1e-9)
		})
	}
}

func TestProcessModelFallback(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())

	pm, ok := calc.ProcessModel("casting")
	assert.False(t, ok)
	assert.Equal(t, DefaultProcessModel(), pm)
}

func TestUnitCost(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())
	rate := bundle.ProcessRate{HourlyRate: 95, SetupCost: 150, ScrapFactor: 0.05}

	// ((10 + 20) * 1.05 + 150/10) * 1.15
	assert.InDelta(t, 53.475, calc.UnitCost(10, 20, rate, 0.15, 10), 1e-9)
	// quantity below one is treated as one
	assert.InDelta(t, calc.UnitCost(10, 20, rate, 0.15, 1), calc.UnitCost(10, 20, rate, 0.15, 0), 1e-9)
}

func TestMachineCost(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())
	assert.InDelta(t, 47.5, calc.MachineCost(30, 95), 1e-9)
}

func TestRange(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testModel())

	assert.Equal(t, model.CostRange{Low: 90, High: 110}, calc.Range(100, model.ConfidenceHigh))
	assert.Equal(t, model.CostRange{Low: 65, High: 135}, calc.Range(100, model.ConfidenceLow))
}
