// Package planner resolves the user's selections and the classifier's
// recommendation into one or two execution plans.
package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// planNamespace seeds name-based plan ids.
var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:dfm:execution-plan"))

// Planner builds execution plans against a loaded bundle.
type Planner struct {
	bundle       *bundle.Bundle
	allowRunBoth bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithRunBoth gates run-both on top of the bundle policy. Both must allow it.
func WithRunBoth(allow bool) Option {
	return func(p *Planner) { p.allowRunBoth = allow }
}

// New creates a Planner. Run-both is permitted by default and still subject
// to the bundle policy.
func New(b *bundle.Bundle, opts ...Option) *Planner {
	p := &Planner{
		bundle:       b,
		allowRunBoth: true,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// BuildPlan computes the recommendation, the effective process, mismatch
// state and the execution plans for sel. Invalid selections return a
// *model.RequestError.
func (p *Planner) BuildPlan(facts model.PartFacts, sel model.Selection) (*model.PlanResult, error) {
	sel = p.withDefaults(sel)

	ai := Classify(p.bundle, facts)

	effective, err := p.effectiveProcess(sel, ai)
	if err != nil {
		return nil, err
	}

	overlay, err := p.overlay(sel)
	if err != nil {
		return nil, err
	}
	if _, ok := p.bundle.Role(sel.RoleID); !ok {
		return nil, model.NewRequestError("selected_role", "unknown role %q", sel.RoleID)
	}
	tmpl, err := p.template(sel)
	if err != nil {
		return nil, err
	}
	if tmpl.OverlayRequired != "" && tmpl.OverlayRequired != overlay.OverlayID {
		return nil, model.NewRequestError("selected_template",
			"template %q requires overlay %q", tmpl.TemplateID, tmpl.OverlayRequired)
	}

	policy := p.bundle.Classifier().Policy
	mismatch := model.Mismatch{
		UserSelectedProcess: effective.ProcessID,
		AiProcess:           ai.ProcessID,
		RunBothRequested:    sel.RunBothIfMismatch,
		PolicyAllowsRunBoth: policy.AllowRunBoth && p.allowRunBoth,
	}
	mismatch.HasMismatch = sel.ProcessMode != model.ProcessModeAuto &&
		effective.ProcessID != ai.ProcessID &&
		ai.Confidence >= policy.MismatchConfidenceThreshold

	plans := []model.ExecutionPlan{p.plan(model.RouteSourcePrimary, effective, overlay, sel.RoleID, tmpl)}
	if mismatch.HasMismatch && mismatch.RunBothRequested && mismatch.PolicyAllowsRunBoth {
		aiProcess, _ := p.bundle.Process(ai.ProcessID)
		plans = append(plans, p.plan(model.RouteSourceAlternate, aiProcess, overlay, sel.RoleID, tmpl))
		mismatch.RunBothExecuted = true
	}
	if mismatch.HasMismatch {
		mismatch.Banner = p.banner(effective, ai)
	}

	zap.L().Debug("planner: plan built",
		zap.String("ai_process", ai.ProcessID),
		zap.Float64("ai_confidence", ai.Confidence),
		zap.String("effective_process", effective.ProcessID),
		zap.Bool("mismatch", mismatch.HasMismatch),
		zap.Int("plans", len(plans)),
	)

	return &model.PlanResult{
		AiRecommendation:   ai,
		EffectiveProcessID: effective.ProcessID,
		SelectedPacks:      slices.Clone(plans[0].PackIDs),
		Mismatch:           mismatch,
		ExecutionPlans:     plans,
	}, nil
}

// PackIDs returns the canonical pack list for a process and optional overlay.
func (p *Planner) PackIDs(processID, overlayID string) ([]string, error) {
	proc, ok := p.bundle.Process(processID)
	if !ok {
		return nil, model.NewRequestError("process_id", "unknown process %q", processID)
	}
	var ov bundle.Overlay
	if overlayID != "" {
		if ov, ok = p.bundle.Overlay(overlayID); !ok {
			return nil, model.NewRequestError("overlay_id", "unknown overlay %q", overlayID)
		}
	}
	return p.packs(proc, ov), nil
}

func (p *Planner) withDefaults(sel model.Selection) model.Selection {
	d := p.bundle.UI().Defaults
	if sel.ProcessMode == "" {
		sel.ProcessMode = model.ProcessModeAuto
	}
	if sel.OverlayMode == "" {
		sel.OverlayMode = model.OverlayModeNone
		if sel.OverlayID != "" {
			sel.OverlayMode = model.OverlayModeSelected
		}
	}
	if sel.RoleID == "" {
		sel.RoleID = d.RoleID
	}
	if sel.TemplateID == "" && sel.CustomTemplate == nil {
		sel.TemplateID = d.TemplateID
	}
	return sel
}

func (p *Planner) effectiveProcess(sel model.Selection, ai model.AiRecommendation) (bundle.Process, error) {
	switch sel.ProcessMode {
	case model.ProcessModeAuto:
		proc, _ := p.bundle.Process(ai.ProcessID)
		return proc, nil
	case model.ProcessModeOverride:
		proc, ok := p.bundle.Process(sel.ForcedProcessID)
		if !ok {
			return bundle.Process{}, model.NewRequestError("selected_process_override", "unknown process %q", sel.ForcedProcessID)
		}
		return proc, nil
	case model.ProcessModeProfile:
		prof, ok := p.bundle.Profile(sel.ProfileID)
		if !ok {
			return bundle.Process{}, model.NewRequestError("selected_profile", "unknown profile %q", sel.ProfileID)
		}
		proc, _ := p.bundle.Process(prof.ProcessID)
		return proc, nil
	}
	return bundle.Process{}, model.NewRequestError("process_mode", "unknown process mode %q", sel.ProcessMode)
}

func (p *Planner) overlay(sel model.Selection) (bundle.Overlay, error) {
	switch sel.OverlayMode {
	case model.OverlayModeNone:
		return bundle.Overlay{}, nil
	case model.OverlayModeSelected:
		ov, ok := p.bundle.Overlay(sel.OverlayID)
		if !ok {
			return bundle.Overlay{}, model.NewRequestError("selected_overlay", "unknown overlay %q", sel.OverlayID)
		}
		return ov, nil
	}
	return bundle.Overlay{}, model.NewRequestError("overlay_mode", "unknown overlay mode %q", sel.OverlayMode)
}

func (p *Planner) template(sel model.Selection) (model.TemplateSpec, error) {
	if sel.CustomTemplate != nil {
		return *sel.CustomTemplate, nil
	}
	t, ok := p.bundle.Template(sel.TemplateID)
	if !ok {
		return model.TemplateSpec{}, model.NewRequestError("selected_template", "unknown template %q", sel.TemplateID)
	}
	return t.Spec(), nil
}

func (p *Planner) packs(proc bundle.Process, ov bundle.Overlay) []string {
	seen := make(map[string]bool, len(proc.DefaultPacks)+1)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, id := range proc.DefaultPacks {
		add(id)
	}
	add(ov.PackID)
	p.bundle.SortPacks(ids)
	return ids
}

func (p *Planner) plan(src model.RouteSource, proc bundle.Process, ov bundle.Overlay, roleID string, tmpl model.TemplateSpec) model.ExecutionPlan {
	ep := model.ExecutionPlan{
		RouteSource:      src,
		ProcessID:        proc.ProcessID,
		PackIDs:          p.packs(proc, ov),
		OverlayID:        ov.OverlayID,
		RoleID:           roleID,
		TemplateID:       tmpl.TemplateID,
		TemplateSections: tmpl.EnabledSections(),
	}
	ep.PlanID = PlanID(p.bundle.Fingerprint(), ep)
	return ep
}

// PlanID is the name-based id of a plan: identical inputs give identical ids.
func PlanID(fingerprint string, ep model.ExecutionPlan) string {
	name := strings.Join([]string{
		fingerprint,
		string(ep.RouteSource),
		ep.ProcessID,
		strings.Join(ep.PackIDs, ","),
		ep.OverlayID,
		ep.RoleID,
		ep.TemplateID,
	}, "|")
	return uuid.NewSHA1(planNamespace, []byte(name)).String()
}

func (p *Planner) banner(user bundle.Process, ai model.AiRecommendation) string {
	aiProc, _ := p.bundle.Process(ai.ProcessID)
	// Casers carry state and are not shared across goroutines.
	title := cases.Title(language.English, cases.NoLower)
	return fmt.Sprintf("You selected %s, but the part looks like %s (%.0f%% confidence).",
		title.String(user.Label), title.String(aiProc.Label), ai.Confidence*100)
}
