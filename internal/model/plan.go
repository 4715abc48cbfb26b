package model

// ProcessMode selects how the effective manufacturing process is resolved.
type ProcessMode string

const (
	ProcessModeAuto     ProcessMode = "auto"
	ProcessModeProfile  ProcessMode = "profile"
	ProcessModeOverride ProcessMode = "override"
)

// OverlayMode selects whether an industry overlay pack is added.
type OverlayMode string

const (
	OverlayModeNone     OverlayMode = "none"
	OverlayModeSelected OverlayMode = "selected"
)

// RouteSource tells whether a plan is the user's route or the recommended alternate.
type RouteSource string

const (
	RouteSourcePrimary   RouteSource = "primary"
	RouteSourceAlternate RouteSource = "alternate"
)

// ConfidenceLevel buckets a numeric confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Selection carries the user's planning choices.
type Selection struct {
	ProcessMode       ProcessMode `json:"process_mode"`
	ForcedProcessID   string      `json:"forced_process_id,omitempty"`
	ProfileID         string      `json:"profile_id,omitempty"`
	OverlayMode       OverlayMode `json:"overlay_mode"`
	OverlayID         string      `json:"overlay_id,omitempty"`
	RoleID            string      `json:"role_id"`
	TemplateID        string      `json:"template_id"`
	RunBothIfMismatch bool        `json:"run_both_if_mismatch"`

	// CustomTemplate is set by the boundary when TemplateID names a saved
	// custom template rather than a bundle template.
	CustomTemplate *TemplateSpec `json:"-"`
}

// TemplateSpec is a resolved report template (bundle or custom).
type TemplateSpec struct {
	TemplateID      string            `json:"template_id"`
	Label           string            `json:"label"`
	OverlayRequired string            `json:"overlay_required,omitempty"`
	Sections        []TemplateSection `json:"sections"`
}

// TemplateSection is one section of a report template.
type TemplateSection struct {
	SectionID string `json:"section_id" validate:"required"`
	Title     string `json:"title"`
	Enabled   bool   `json:"enabled"`
}

// EnabledSections returns the ids of enabled sections in template order.
func (t TemplateSpec) EnabledSections() []string {
	var out []string
	for _, s := range t.Sections {
		if s.Enabled {
			out = append(out, s.SectionID)
		}
	}
	return out
}

// AiRecommendation is the classifier's process recommendation.
type AiRecommendation struct {
	ProcessID       string          `json:"process_id"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Reasons         []string        `json:"reasons"`
	Scores          []ProcessScore  `json:"scores,omitempty"`
}

// ProcessScore is one process's classifier score.
type ProcessScore struct {
	ProcessID string  `json:"process_id"`
	Score     float64 `json:"score"`
}

// Mismatch describes disagreement between the user's process and the recommendation.
type Mismatch struct {
	HasMismatch         bool   `json:"has_mismatch"`
	UserSelectedProcess string `json:"user_selected_process"`
	AiProcess           string `json:"ai_process"`
	RunBothRequested    bool   `json:"run_both_requested"`
	PolicyAllowsRunBoth bool   `json:"policy_allows_run_both"`
	RunBothExecuted     bool   `json:"run_both_executed"`
	Banner              string `json:"banner,omitempty"`
}

// ExecutionPlan is one resolved (process, packs, overlay, role, template) combination.
type ExecutionPlan struct {
	PlanID           string      `json:"plan_id" validate:"required"`
	RouteSource      RouteSource `json:"route_source" validate:"required,oneof=primary alternate"`
	ProcessID        string      `json:"process_id" validate:"required"`
	PackIDs          []string    `json:"pack_ids" validate:"required,min=1,dive,required"`
	OverlayID        string      `json:"overlay_id,omitempty"`
	RoleID           string      `json:"role_id" validate:"required"`
	TemplateID       string      `json:"template_id" validate:"required"`
	TemplateSections []string    `json:"template_sections"`
}

// PlanResult is the planner output.
type PlanResult struct {
	AiRecommendation   AiRecommendation `json:"ai_recommendation"`
	EffectiveProcessID string           `json:"effective_process_id"`
	SelectedPacks      []string         `json:"selected_packs"`
	Mismatch           Mismatch         `json:"mismatch"`
	ExecutionPlans     []ExecutionPlan  `json:"execution_plans"`
}
