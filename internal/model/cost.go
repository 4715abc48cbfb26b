package model

// CostRange is an explicit low/high band around a point estimate.
type CostRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CostBreakdown itemises a unit cost.
type CostBreakdown struct {
	MaterialCost float64 `json:"material_cost"`
	MachineCost  float64 `json:"machine_cost"`
	SetupPerUnit float64 `json:"setup_per_unit"`
	ScrapFactor  float64 `json:"scrap_factor"`
	Margin       float64 `json:"margin"`
	CycleMinutes float64 `json:"cycle_minutes"`
	HourlyRate   float64 `json:"hourly_rate"`
	MaterialID   string  `json:"material_id"`
	StockMassKg  float64 `json:"stock_mass_kg"`
}

// CostEstimate is a directional should-cost for one route.
type CostEstimate struct {
	PlanID          string          `json:"plan_id,omitempty"`
	ProcessID       string          `json:"process_id,omitempty"`
	Currency        string          `json:"currency"`
	Quantity        int             `json:"quantity"`
	UnitCost        float64         `json:"unit_cost"`
	TotalCost       float64         `json:"total_cost"`
	CostRange       CostRange       `json:"cost_range"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Assumptions     []string        `json:"assumptions"`
	Breakdown       CostBreakdown   `json:"breakdown"`
}

// RouteCost is one route's side of a comparison.
type RouteCost struct {
	PlanID      string      `json:"plan_id"`
	ProcessID   string      `json:"process_id"`
	RouteSource RouteSource `json:"route_source"`
	UnitCost    float64     `json:"unit_cost"`
	TotalCost   float64     `json:"total_cost"`
}

// CostCompareRoutes is the pairwise delta between two routes' estimates.
type CostCompareRoutes struct {
	Currency         string      `json:"currency"`
	Routes           []RouteCost `json:"routes"`
	DeltaAbs         float64     `json:"delta_abs"`
	DeltaPct         float64     `json:"delta_pct"`
	CheaperPlanID    string      `json:"cheaper_plan_id"`
	CheaperProcessID string      `json:"cheaper_process_id"`
}
