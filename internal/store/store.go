// Package store persists custom report templates and completed reviews.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// ErrNotFound is returned (wrapped) when a template or review does not exist.
var ErrNotFound = eris.New("store: not found")

// ReviewFilter specifies criteria for listing reviews.
type ReviewFilter struct {
	ComponentRef string `json:"component_ref,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the review service.
type Store interface {
	// Custom report templates
	SaveTemplate(ctx context.Context, spec model.TemplateSpec) (*model.CustomTemplate, error)
	GetTemplate(ctx context.Context, id string) (*model.CustomTemplate, error)
	ListTemplates(ctx context.Context) ([]model.CustomTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error

	// Review runs
	SaveReview(ctx context.Context, resp *model.ReviewResponse) (*model.ReviewRun, error)
	GetReview(ctx context.Context, id string) (*model.ReviewRun, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// findingRows flattens a review's findings into review_findings rows.
func findingRows(reviewID string, resp *model.ReviewResponse) [][]any {
	var rows [][]any
	for i, route := range resp.Routes {
		for _, f := range route.Findings {
			rows = append(rows, []any{
				reviewID, i, route.PlanID, f.FindingID, f.RuleID, f.PackID,
				string(f.FindingType), string(f.Severity),
			})
		}
	}
	return rows
}

var findingColumns = []string{
	"review_id", "route_index", "plan_id", "finding_id", "rule_id", "pack_id", "finding_type", "severity",
}
