package bundle

import (
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Evidence channels a rule can apply to.
const (
	ChannelGeometry = "geometry"
	ChannelDrawing  = "drawing"
	ChannelSpec     = "spec"
)

// Evaluator kinds.
const (
	EvalMin           = "min"
	EvalMax           = "max"
	EvalRange         = "range"
	EvalRatioMax      = "ratio_max"
	EvalRatioMin      = "ratio_min"
	EvalFlagForbidden = "flag_forbidden"
	EvalFlagRequired  = "flag_required"
)

// Manifest declares bundle identity and the counts the payload must match.
type Manifest struct {
	BundleID       string         `json:"bundle_id" validate:"required"`
	Version        string         `json:"version" validate:"required"`
	Description    string         `json:"description,omitempty"`
	RuleCount      int            `json:"rule_count" validate:"gte=0"`
	PackCounts     map[string]int `json:"pack_counts" validate:"required"`
	ReferenceCount int            `json:"reference_count" validate:"gte=0"`
	RolesCount     int            `json:"roles_count" validate:"gte=0"`
	TemplatesCount int            `json:"templates_count" validate:"gte=0"`
}

// Reference is a citable standard.
type Reference struct {
	RefID string `json:"ref_id" validate:"required"`
	Title string `json:"title" validate:"required"`
	URL   string `json:"url,omitempty" validate:"omitempty,url"`
	Type  string `json:"type,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type referencesDoc struct {
	References []Reference `json:"references" validate:"required,dive"`
}

// Pack is a named group of rules.
type Pack struct {
	PackID      string `json:"pack_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Thresholds holds the numeric limits an evaluator compares against.
type Thresholds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Rule is one manufacturability check.
type Rule struct {
	RuleID            string         `json:"rule_id" validate:"required"`
	PackID            string         `json:"pack_id" validate:"required"`
	Title             string         `json:"title" validate:"required"`
	Refs              []string       `json:"refs" validate:"dive,required"`
	Severity          model.Severity `json:"severity" validate:"required,oneof=critical major minor info"`
	ApplicableModes   []string       `json:"applicable_modes" validate:"required,min=1,dive,oneof=geometry drawing spec"`
	EvaluatorKind     string         `json:"evaluator_kind" validate:"required,oneof=min max range ratio_max ratio_min flag_forbidden flag_required"`
	Inputs            []string       `json:"inputs" validate:"required,min=1,dive,required"`
	Thresholds        Thresholds     `json:"thresholds"`
	RecommendedAction string         `json:"recommended_action" validate:"required"`
	ExpectedImpact    string         `json:"expected_impact,omitempty"`
}

type ruleLibraryDoc struct {
	AnalysisModes map[string][]string `json:"analysis_modes" validate:"required,min=1"`
	Packs         []Pack              `json:"packs" validate:"required,min=1,dive"`
	Rules         []Rule              `json:"rules" validate:"dive"`
}

// Heuristic is one weighted fact predicate used by the process classifier.
type Heuristic struct {
	Fact   string  `json:"fact" validate:"required"`
	Op     string  `json:"op" validate:"required,oneof=eq gt gte lt lte present truthy"`
	Value  any     `json:"value,omitempty"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason" validate:"required"`
}

// Process is a manufacturing process the classifier can recommend.
type Process struct {
	ProcessID    string      `json:"process_id" validate:"required"`
	Label        string      `json:"label" validate:"required"`
	DefaultPacks []string    `json:"default_packs" validate:"required,min=1,dive,required"`
	BaseScore    float64     `json:"base_score" validate:"gte=0"`
	Heuristics   []Heuristic `json:"heuristics" validate:"dive"`
}

// Policy governs mismatch detection and run-both.
type Policy struct {
	AllowRunBoth                bool    `json:"allow_run_both"`
	MismatchConfidenceThreshold float64 `json:"mismatch_confidence_threshold" validate:"gte=0,lte=1"`
}

// ConfidenceLevels are the lower bounds of the high and medium buckets.
type ConfidenceLevels struct {
	High   float64 `json:"high" validate:"gt=0,lte=1"`
	Medium float64 `json:"medium" validate:"gte=0,ltefield=High"`
}

// Level buckets c.
func (l ConfidenceLevels) Level(c float64) model.ConfidenceLevel {
	switch {
	case c >= l.High:
		return model.ConfidenceHigh
	case c >= l.Medium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Classifier is the process classifier document.
type Classifier struct {
	Policy             Policy           `json:"policy"`
	ConfidenceLevels   ConfidenceLevels `json:"confidence_levels"`
	FallbackConfidence float64          `json:"fallback_confidence" validate:"gte=0,lte=1"`
	PriorityOrder      []string         `json:"priority_order" validate:"required,min=1,dive,required"`
	Processes          []Process        `json:"processes" validate:"required,min=1,dive"`
}

// Overlay is an industry add-on pack plus extra references.
type Overlay struct {
	OverlayID string   `json:"overlay_id" validate:"required"`
	Label     string   `json:"label" validate:"required"`
	PackID    string   `json:"pack_id" validate:"required"`
	ExtraRefs []string `json:"extra_refs" validate:"dive,required"`
}

type overlaysDoc struct {
	Overlays []Overlay `json:"overlays" validate:"dive"`
}

// Role is a presentation lens. It orders and weights output, never filters it.
type Role struct {
	RoleID          string             `json:"role_id" validate:"required"`
	Label           string             `json:"label" validate:"required"`
	EmphasizedPacks []string           `json:"emphasized_packs" validate:"dive,required"`
	SeverityWeights map[string]float64 `json:"severity_weights,omitempty"`
}

type rolesDoc struct {
	Roles []Role `json:"roles" validate:"required,min=1,dive"`
}

// ReportTemplate composes report sections.
type ReportTemplate struct {
	TemplateID      string            `json:"template_id" validate:"required"`
	Label           string            `json:"label" validate:"required"`
	OverlayRequired string            `json:"overlay_required,omitempty"`
	Sections        []TemplateSection `json:"sections" validate:"required,min=1,dive"`
}

// TemplateSection is a section declaration within a template.
type TemplateSection struct {
	SectionID string `json:"section_id" validate:"required,oneof=summary mismatch findings evidence_gaps standards standards_trace cost route_comparison overlay_references"`
	Title     string `json:"title" validate:"required"`
	Enabled   bool   `json:"enabled"`
}

// Spec converts the template to its model form.
func (t ReportTemplate) Spec() model.TemplateSpec {
	spec := model.TemplateSpec{
		TemplateID:      t.TemplateID,
		Label:           t.Label,
		OverlayRequired: t.OverlayRequired,
		Sections:        make([]model.TemplateSection, len(t.Sections)),
	}
	for i, s := range t.Sections {
		spec.Sections[i] = model.TemplateSection{SectionID: s.SectionID, Title: s.Title, Enabled: s.Enabled}
	}
	return spec
}

type templatesDoc struct {
	Templates []ReportTemplate `json:"templates" validate:"required,min=1,dive"`
}

// Profile maps a shop profile to a process.
type Profile struct {
	ProfileID string `json:"profile_id" validate:"required"`
	Label     string `json:"label" validate:"required"`
	ProcessID string `json:"process_id" validate:"required"`
}

// UIDefaults are the selections the client preloads.
type UIDefaults struct {
	RoleID       string `json:"role_id" validate:"required"`
	TemplateID   string `json:"template_id" validate:"required"`
	AnalysisMode string `json:"analysis_mode" validate:"required"`
}

// UIBindings holds flow, labels and defaults for the client.
type UIBindings struct {
	Flow     []string          `json:"flow" validate:"required,min=1"`
	Labels   map[string]string `json:"labels"`
	Defaults UIDefaults        `json:"defaults"`
	Profiles []Profile         `json:"profiles" validate:"dive"`
}

// ProcessRate is a supplier's rate card for one process.
type ProcessRate struct {
	HourlyRate  float64 `json:"hourly_rate" validate:"gte=0"`
	SetupCost   float64 `json:"setup_cost" validate:"gte=0"`
	ScrapFactor float64 `json:"scrap_factor" validate:"gte=0,lte=1"`
}

// MaterialRate is a supplier's material price.
type MaterialRate struct {
	CostPerKg   float64 `json:"cost_per_kg" validate:"gte=0"`
	DensityGCm3 float64 `json:"density_g_cm3" validate:"gt=0"`
}

// SupplierProfile is the supplier rate template.
type SupplierProfile struct {
	SupplierID    string                  `json:"supplier_id" validate:"required"`
	Currency      string                  `json:"currency" validate:"required,len=3"`
	Margin        float64                 `json:"margin" validate:"gte=0,lte=5"`
	ProcessRates  map[string]ProcessRate  `json:"process_rates" validate:"dive"`
	MaterialRates map[string]MaterialRate `json:"material_rates" validate:"dive"`
}

// ProcessCostModel converts geometry into cycle time for one process.
type ProcessCostModel struct {
	BaseMinutes      float64            `json:"base_minutes" validate:"gte=0"`
	MinutesPerCm3    float64            `json:"minutes_per_cm3" validate:"gte=0"`
	MinutesPer100Cm2 float64            `json:"minutes_per_100cm2" validate:"gte=0"`
	StockAllowance   float64            `json:"stock_allowance" validate:"gte=1"`
	FeatureMinutes   map[string]float64 `json:"feature_minutes"`
}

// CostConfidence configures confidence degradation.
type CostConfidence struct {
	Base      float64            `json:"base" validate:"gt=0,lte=1"`
	Penalties map[string]float64 `json:"penalties" validate:"required"`
}

// RangeSpread is the relative half-width of the cost range per level.
type RangeSpread struct {
	High   float64 `json:"high" validate:"gte=0,lt=1"`
	Medium float64 `json:"medium" validate:"gte=0,lt=1"`
	Low    float64 `json:"low" validate:"gte=0,lt=1"`
}

// For returns the spread for a level.
func (r RangeSpread) For(level model.ConfidenceLevel) float64 {
	switch level {
	case model.ConfidenceHigh:
		return r.High
	case model.ConfidenceMedium:
		return r.Medium
	default:
		return r.Low
	}
}

// CostModel is the should-cost model document.
type CostModel struct {
	Currency          string                      `json:"currency" validate:"required,len=3"`
	DefaultMaterial   string                      `json:"default_material" validate:"required"`
	DefaultHourlyRate float64                     `json:"default_hourly_rate" validate:"gt=0"`
	DefaultSetupCost  float64                     `json:"default_setup_cost" validate:"gte=0"`
	FallbackVolumeMM3 float64                     `json:"fallback_volume_mm3" validate:"gt=0"`
	FillFactor        float64                     `json:"fill_factor" validate:"gt=0,lte=1"`
	Processes         map[string]ProcessCostModel `json:"processes" validate:"required,dive"`
	Confidence        CostConfidence              `json:"confidence"`
	RangeSpread       RangeSpread                 `json:"range_spread"`
	ConfidenceLevels  ConfidenceLevels            `json:"confidence_levels"`
}
