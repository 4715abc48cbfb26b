package model

import "time"

// PlanRequest is the planning input accepted at the boundary.
type PlanRequest struct {
	ExtractedPartFacts      PartFacts `json:"extracted_part_facts"`
	SelectedProcessOverride string    `json:"selected_process_override,omitempty"`
	SelectedProfile         string    `json:"selected_profile,omitempty"`
	SelectedOverlay         string    `json:"selected_overlay,omitempty"`
	SelectedRole            string    `json:"selected_role,omitempty"`
	SelectedTemplate        string    `json:"selected_template,omitempty"`
	RunBothIfMismatch       bool      `json:"run_both_if_mismatch"`
	AnalysisRunID           string    `json:"analysis_run_id,omitempty" validate:"omitempty,max=128"`
}

// PlanResponse is the planning output.
type PlanResponse struct {
	PlanResult
	AnalysisRunID string `json:"analysis_run_id,omitempty"`
	BundleVersion string `json:"bundle_version"`
}

// ReviewRequest is the review input accepted at the boundary.
type ReviewRequest struct {
	ComponentRef       string          `json:"component_ref" validate:"required,max=256"`
	ExecutionPlans     []ExecutionPlan `json:"execution_plans" validate:"required,min=1,max=2,dive"`
	AnalysisMode       string          `json:"analysis_mode,omitempty"`
	ExtractedPartFacts PartFacts       `json:"extracted_part_facts"`
	Quantity           int             `json:"quantity,omitempty" validate:"gte=0,lte=10000000"`
	AnalysisRunID      string          `json:"analysis_run_id,omitempty" validate:"omitempty,max=128"`
}

// ReportSection is one composed section of a route report.
type ReportSection struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Content   any    `json:"content"`
}

// Report is the template/role composition of a route's results.
type Report struct {
	TemplateID string          `json:"template_id"`
	RoleID     string          `json:"role_id"`
	Sections   []ReportSection `json:"sections"`
}

// RouteReview is the full review output for one execution plan.
type RouteReview struct {
	PlanID            string          `json:"plan_id"`
	RouteSource       RouteSource     `json:"route_source"`
	ProcessID         string          `json:"process_id"`
	Findings          []Finding       `json:"findings"`
	StandardsUsedAuto []string        `json:"standards_used_auto"`
	Standards         []StandardRef   `json:"standards"`
	StandardsTrace    []StandardTrace `json:"standards_trace"`
	CostEstimate      CostEstimate    `json:"cost_estimate"`
	Report            Report          `json:"report"`
}

// ReviewResponse is the review output across all routes.
type ReviewResponse struct {
	ReviewID               string             `json:"review_id,omitempty"`
	ComponentRef           string             `json:"component_ref"`
	AnalysisRunID          string             `json:"analysis_run_id,omitempty"`
	AnalysisMode           string             `json:"analysis_mode"`
	BundleVersion          string             `json:"bundle_version"`
	Routes                 []RouteReview      `json:"routes"`
	StandardsUsedAutoUnion []string           `json:"standards_used_auto_union"`
	CostCompareRoutes      *CostCompareRoutes `json:"cost_compare_routes,omitempty"`
}

// ReviewRun is a persisted review.
type ReviewRun struct {
	ID            string          `json:"id"`
	ComponentRef  string          `json:"component_ref"`
	AnalysisRunID string          `json:"analysis_run_id,omitempty"`
	BundleVersion string          `json:"bundle_version"`
	Result        *ReviewResponse `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CustomTemplate is a user-saved report template.
type CustomTemplate struct {
	ID        string       `json:"id"`
	Template  TemplateSpec `json:"template"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
