// Package report composes per-route reports from review results according
// to a report template and a role lens, and exports them as XLSX.
package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Section ids.
const (
	SectionSummary           = "summary"
	SectionMismatch          = "mismatch"
	SectionFindings          = "findings"
	SectionEvidenceGaps      = "evidence_gaps"
	SectionStandards         = "standards"
	SectionStandardsTrace    = "standards_trace"
	SectionCost              = "cost"
	SectionRouteComparison   = "route_comparison"
	SectionOverlayReferences = "overlay_references"
)

// Sections lists every renderable section id.
func Sections() []string {
	return []string{
		SectionSummary, SectionMismatch, SectionFindings, SectionEvidenceGaps,
		SectionStandards, SectionStandardsTrace, SectionCost,
		SectionRouteComparison, SectionOverlayReferences,
	}
}

// KnownSection reports whether id is a section the composer can render.
func KnownSection(id string) bool {
	switch id {
	case SectionSummary, SectionMismatch, SectionFindings, SectionEvidenceGaps,
		SectionStandards, SectionStandardsTrace, SectionCost,
		SectionRouteComparison, SectionOverlayReferences:
		return true
	}
	return false
}

// DefaultTitle is the display title for a section that carries none:
// "standards_trace" becomes "Standards Trace".
func DefaultTitle(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

// Input is everything a route report can draw from.
type Input struct {
	Plan      model.ExecutionPlan
	Plans     []model.ExecutionPlan
	Template  model.TemplateSpec
	Findings  []model.Finding
	Standards []model.StandardRef
	Trace     []model.StandardTrace
	Cost      model.CostEstimate
	Compare   *model.CostCompareRoutes
}

// Summary is the content of the summary section.
type Summary struct {
	ProcessID      string         `json:"process_id"`
	RouteSource    string         `json:"route_source"`
	PackIDs        []string       `json:"pack_ids"`
	OverlayID      string         `json:"overlay_id,omitempty"`
	Violations     int            `json:"violations"`
	EvidenceGaps   int            `json:"evidence_gaps"`
	BySeverity     map[string]int `json:"by_severity"`
	TopFindings    []string       `json:"top_findings"`
	StandardsCount int            `json:"standards_count"`
	Currency       string         `json:"currency"`
	UnitCost       float64        `json:"unit_cost"`
	TotalCost      float64        `json:"total_cost"`
	CostConfidence string         `json:"cost_confidence"`
}

// RouteContext is the content of the mismatch section.
type RouteContext struct {
	RoutesCompared     bool   `json:"routes_compared"`
	PrimaryProcessID   string `json:"primary_process_id"`
	AlternateProcessID string `json:"alternate_process_id,omitempty"`
}

// OverlayReferences is the content of the overlay_references section.
type OverlayReferences struct {
	OverlayID  string              `json:"overlay_id,omitempty"`
	Label      string              `json:"label,omitempty"`
	References []model.StandardRef `json:"references"`
}

const topFindings = 3

// Composer builds reports against a bundle.
type Composer struct {
	bundle *bundle.Bundle
}

// NewComposer creates a Composer.
func NewComposer(b *bundle.Bundle) *Composer {
	return &Composer{bundle: b}
}

// Compose renders the enabled sections of in.Template, in template order.
// The role only changes ordering inside sections.
func (c *Composer) Compose(in Input) model.Report {
	role, _ := c.bundle.Role(in.Plan.RoleID)
	lens := NewLens(role, c.bundle.PackOrder)
	ordered := lens.Order(in.Findings)

	var violations, gaps []model.Finding
	for _, f := range ordered {
		if f.FindingType == model.FindingEvidenceGap {
			gaps = append(gaps, f)
		} else {
			violations = append(violations, f)
		}
	}

	rep := model.Report{
		TemplateID: in.Template.TemplateID,
		RoleID:     in.Plan.RoleID,
		Sections:   []model.ReportSection{},
	}
	for _, s := range in.Template.Sections {
		if !s.Enabled || !KnownSection(s.SectionID) {
			continue
		}
		var content any
		switch s.SectionID {
		case SectionSummary:
			content = c.summary(in, ordered, violations, gaps)
		case SectionMismatch:
			content = routeContext(in)
		case SectionFindings:
			content = nonNil(violations)
		case SectionEvidenceGaps:
			content = nonNil(gaps)
		case SectionStandards:
			content = in.Standards
		case SectionStandardsTrace:
			content = in.Trace
		case SectionCost:
			content = in.Cost
		case SectionRouteComparison:
			content = in.Compare
		case SectionOverlayReferences:
			content = c.overlayReferences(in.Plan.OverlayID)
		}
		title := s.Title
		if title == "" {
			title = DefaultTitle(s.SectionID)
		}
		rep.Sections = append(rep.Sections, model.ReportSection{SectionID: s.SectionID, Title: title, Content: content})
	}
	return rep
}

func (c *Composer) summary(in Input, ordered, violations, gaps []model.Finding) Summary {
	s := Summary{
		ProcessID:      in.Plan.ProcessID,
		RouteSource:    string(in.Plan.RouteSource),
		PackIDs:        in.Plan.PackIDs,
		OverlayID:      in.Plan.OverlayID,
		Violations:     len(violations),
		EvidenceGaps:   len(gaps),
		BySeverity:     map[string]int{},
		TopFindings:    []string{},
		StandardsCount: len(in.Standards),
		Currency:       in.Cost.Currency,
		UnitCost:       in.Cost.UnitCost,
		TotalCost:      in.Cost.TotalCost,
		CostConfidence: string(in.Cost.ConfidenceLevel),
	}
	for _, f := range ordered {
		s.BySeverity[string(f.Severity)]++
	}
	for _, f := range violations {
		if len(s.TopFindings) == topFindings {
			break
		}
		s.TopFindings = append(s.TopFindings, f.FindingID)
	}
	return s
}

func routeContext(in Input) RouteContext {
	rc := RouteContext{PrimaryProcessID: in.Plan.ProcessID}
	for _, p := range in.Plans {
		switch p.RouteSource {
		case model.RouteSourcePrimary:
			rc.PrimaryProcessID = p.ProcessID
		case model.RouteSourceAlternate:
			rc.AlternateProcessID = p.ProcessID
			rc.RoutesCompared = true
		}
	}
	return rc
}

func (c *Composer) overlayReferences(overlayID string) OverlayReferences {
	out := OverlayReferences{References: []model.StandardRef{}}
	if overlayID == "" {
		return out
	}
	ov, ok := c.bundle.Overlay(overlayID)
	if !ok {
		return out
	}
	out.OverlayID, out.Label = ov.OverlayID, ov.Label
	for _, id := range ov.ExtraRefs {
		if r, ok := c.bundle.Reference(id); ok {
			out.References = append(out.References, model.StandardRef{RefID: r.RefID, Title: r.Title, URL: r.URL, Type: r.Type})
		}
	}
	return out
}

func nonNil(fs []model.Finding) []model.Finding {
	if fs == nil {
		return []model.Finding{}
	}
	return fs
}
