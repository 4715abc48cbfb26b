// Package review orchestrates planning and review requests: it turns
// boundary requests into planner selections, runs every execution plan
// through the rule engine, standards derivation and cost estimation, and
// composes the per-route reports.
package review

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/cost"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/geometry"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/metrics"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/planner"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/report"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/resilience"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/rules"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/standards"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

// CustomTemplatePrefix marks a selected_template that names a saved template.
const CustomTemplatePrefix = "custom:"

// ErrStoreDisabled is returned by persistence operations when no store is configured.
var ErrStoreDisabled = eris.New("review: persistence disabled")

// Service runs plan and review requests against one immutable bundle.
type Service struct {
	bundle    *bundle.Bundle
	planner   *planner.Planner
	engine    *rules.Engine
	estimator *cost.Estimator
	composer  *report.Composer
	store     store.Store

	defaultMode     string
	defaultQuantity int
	saveReviews     bool
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables custom templates and review history.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithSaveReviews persists every successful review when a store is set.
func WithSaveReviews(save bool) Option {
	return func(s *Service) { s.saveReviews = save }
}

// WithDefaultAnalysisMode overrides the bundle's default analysis mode.
func WithDefaultAnalysisMode(mode string) Option {
	return func(s *Service) {
		if mode != "" {
			s.defaultMode = mode
		}
	}
}

// WithDefaultQuantity sets the quantity used when a request omits it.
func WithDefaultQuantity(q int) Option {
	return func(s *Service) {
		if q > 0 {
			s.defaultQuantity = q
		}
	}
}

// WithRunBoth gates run-both on top of the bundle policy.
func WithRunBoth(allow bool) Option {
	return func(s *Service) { s.planner = planner.New(s.bundle, planner.WithRunBoth(allow)) }
}

// NewService wires the pipeline stages around b.
func NewService(b *bundle.Bundle, opts ...Option) *Service {
	s := &Service{
		bundle:          b,
		planner:         planner.New(b),
		engine:          rules.New(b),
		estimator:       cost.NewEstimator(b.CostModel()),
		composer:        report.NewComposer(b),
		defaultMode:     b.UI().Defaults.AnalysisMode,
		defaultQuantity: 1,
		saveReviews:     true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bundle returns the bundle the service runs against.
func (s *Service) Bundle() *bundle.Bundle { return s.bundle }

// Plan resolves a planning request into execution plans.
func (s *Service) Plan(ctx context.Context, req model.PlanRequest) (*model.PlanResponse, error) {
	sel := model.Selection{
		ProfileID:         req.SelectedProfile,
		OverlayID:         req.SelectedOverlay,
		RoleID:            req.SelectedRole,
		TemplateID:        req.SelectedTemplate,
		RunBothIfMismatch: req.RunBothIfMismatch,
	}
	switch {
	case req.SelectedProcessOverride != "":
		sel.ProcessMode = model.ProcessModeOverride
		sel.ForcedProcessID = req.SelectedProcessOverride
	case req.SelectedProfile != "":
		sel.ProcessMode = model.ProcessModeProfile
	default:
		sel.ProcessMode = model.ProcessModeAuto
	}

	if id, ok := strings.CutPrefix(req.SelectedTemplate, CustomTemplatePrefix); ok {
		spec, err := s.customTemplate(ctx, id, "selected_template")
		if err != nil {
			return nil, err
		}
		sel.CustomTemplate = &spec
	}

	res, err := s.planner.BuildPlan(geometry.Normalize(req.ExtractedPartFacts), sel)
	if err != nil {
		return nil, err
	}
	metrics.RecordPlan(res)

	if res.Mismatch.HasMismatch {
		zap.L().Info("review: process mismatch",
			zap.String("analysis_run_id", req.AnalysisRunID),
			zap.String("user_process", res.Mismatch.UserSelectedProcess),
			zap.String("ai_process", res.Mismatch.AiProcess),
			zap.Bool("run_both_executed", res.Mismatch.RunBothExecuted),
		)
	}

	return &model.PlanResponse{
		PlanResult:    *res,
		AnalysisRunID: req.AnalysisRunID,
		BundleVersion: s.bundle.Version(),
	}, nil
}

// routeResult is the template-independent output of one execution plan.
type routeResult struct {
	plan      model.ExecutionPlan
	template  model.TemplateSpec
	eval      *rules.Evaluation
	used      []string
	standards []model.StandardRef
	trace     []model.StandardTrace
	estimate  model.CostEstimate
}

// Review executes every plan in req and composes the response. Routes are
// evaluated concurrently; results keep plan order.
func (s *Service) Review(ctx context.Context, req model.ReviewRequest) (*model.ReviewResponse, error) {
	start := time.Now()

	mode := req.AnalysisMode
	if mode == "" {
		mode = s.defaultMode
	}
	if _, ok := s.bundle.AnalysisMode(mode); !ok {
		return nil, model.NewRequestError("analysis_mode", "unknown analysis mode %q", mode)
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = s.defaultQuantity
	}
	if err := s.checkRouteSources(req.ExecutionPlans); err != nil {
		return nil, err
	}

	templates := make([]model.TemplateSpec, len(req.ExecutionPlans))
	for i, ep := range req.ExecutionPlans {
		tmpl, err := s.validatePlan(ctx, i, ep)
		if err != nil {
			return nil, err
		}
		templates[i] = tmpl
	}

	facts := geometry.Normalize(req.ExtractedPartFacts)
	supplier := s.bundle.Supplier()

	results := make([]routeResult, len(req.ExecutionPlans))
	g, gctx := errgroup.WithContext(ctx)
	for i, ep := range req.ExecutionPlans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			eval, err := s.engine.Evaluate(ep, facts, mode)
			if err != nil {
				return err
			}
			refs, trace, err := standards.Derive(eval.Findings, eval.Outcomes, s.bundle)
			if err != nil {
				return eris.Wrapf(err, "review: derive standards for plan %s", ep.PlanID)
			}
			results[i] = routeResult{
				plan:      ep,
				template:  templates[i],
				eval:      eval,
				used:      standards.Used(eval.Findings),
				standards: refs,
				trace:     trace,
				estimate:  s.estimator.Estimate(ep, facts, supplier, quantity),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	estimates := make([]model.CostEstimate, len(results))
	used := make([][]string, len(results))
	for i, r := range results {
		estimates[i] = r.estimate
		used[i] = r.used
	}
	compare := cost.CompareRoutes(req.ExecutionPlans, estimates)

	resp := &model.ReviewResponse{
		ComponentRef:           req.ComponentRef,
		AnalysisRunID:          req.AnalysisRunID,
		AnalysisMode:           mode,
		BundleVersion:          s.bundle.Version(),
		Routes:                 make([]model.RouteReview, len(results)),
		StandardsUsedAutoUnion: standards.Union(used...),
		CostCompareRoutes:      compare,
	}
	for i, r := range results {
		resp.Routes[i] = model.RouteReview{
			PlanID:            r.plan.PlanID,
			RouteSource:       r.plan.RouteSource,
			ProcessID:         r.plan.ProcessID,
			Findings:          r.eval.Findings,
			StandardsUsedAuto: r.used,
			Standards:         r.standards,
			StandardsTrace:    r.trace,
			CostEstimate:      r.estimate,
			Report: s.composer.Compose(report.Input{
				Plan:      r.plan,
				Plans:     req.ExecutionPlans,
				Template:  r.template,
				Findings:  r.eval.Findings,
				Standards: r.standards,
				Trace:     r.trace,
				Cost:      r.estimate,
				Compare:   compare,
			}),
		}
	}

	metrics.RecordReview(resp)
	s.persist(ctx, resp)

	zap.L().Info("review: completed",
		zap.String("component_ref", req.ComponentRef),
		zap.String("analysis_mode", mode),
		zap.Int("routes", len(resp.Routes)),
		zap.Int("standards", len(resp.StandardsUsedAutoUnion)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// persist stores resp when history is enabled. A failed save is logged and
// does not fail the review.
func (s *Service) persist(ctx context.Context, resp *model.ReviewResponse) {
	if s.store == nil || !s.saveReviews {
		return
	}
	retry := resilience.WriteRetryConfig()
	retry.OnRetry = resilience.RetryLogger("review", "save")
	run, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.ReviewRun, error) {
		return s.store.SaveReview(ctx, resp)
	})
	if err != nil {
		zap.L().Warn("review: save failed", zap.String("component_ref", resp.ComponentRef), zap.Error(err))
		return
	}
	resp.ReviewID = run.ID
}

func (s *Service) checkRouteSources(plans []model.ExecutionPlan) error {
	seen := make(map[model.RouteSource]bool, len(plans))
	for i, ep := range plans {
		if seen[ep.RouteSource] {
			return model.NewRequestError(field(i, "route_source"), "duplicate route source %q", ep.RouteSource)
		}
		seen[ep.RouteSource] = true
	}
	return nil
}

// validatePlan checks an execution plan against the bundle and returns the
// template its report is composed with.
func (s *Service) validatePlan(ctx context.Context, i int, ep model.ExecutionPlan) (model.TemplateSpec, error) {
	if _, ok := s.bundle.Process(ep.ProcessID); !ok {
		return model.TemplateSpec{}, model.NewRequestError(field(i, "process_id"), "unknown process %q", ep.ProcessID)
	}
	if _, ok := s.bundle.Role(ep.RoleID); !ok {
		return model.TemplateSpec{}, model.NewRequestError(field(i, "role_id"), "unknown role %q", ep.RoleID)
	}
	want, err := s.planner.PackIDs(ep.ProcessID, ep.OverlayID)
	if err != nil {
		return model.TemplateSpec{}, inPlan(i, err)
	}
	if !slices.Equal(want, ep.PackIDs) {
		return model.TemplateSpec{}, model.NewRequestError(field(i, "pack_ids"),
			"pack list %v does not match the bundle packs %v for process %q", ep.PackIDs, want, ep.ProcessID)
	}

	tmpl, err := s.resolveTemplate(ctx, i, ep.TemplateID)
	if err != nil {
		return model.TemplateSpec{}, err
	}
	if tmpl.OverlayRequired != "" && tmpl.OverlayRequired != ep.OverlayID {
		return model.TemplateSpec{}, model.NewRequestError(field(i, "template_id"),
			"template %q requires overlay %q", tmpl.TemplateID, tmpl.OverlayRequired)
	}
	if ep.TemplateSections != nil {
		if tmpl, err = restrictSections(tmpl, ep.TemplateSections); err != nil {
			return model.TemplateSpec{}, inPlan(i, err)
		}
	}

	if id := planner.PlanID(s.bundle.Fingerprint(), ep); id != ep.PlanID {
		zap.L().Debug("review: plan id differs from bundle-derived id",
			zap.String("plan_id", ep.PlanID), zap.String("derived", id))
	}
	return tmpl, nil
}

func (s *Service) resolveTemplate(ctx context.Context, i int, templateID string) (model.TemplateSpec, error) {
	if id, ok := strings.CutPrefix(templateID, CustomTemplatePrefix); ok {
		return s.customTemplate(ctx, id, field(i, "template_id"))
	}
	t, ok := s.bundle.Template(templateID)
	if !ok {
		return model.TemplateSpec{}, model.NewRequestError(field(i, "template_id"), "unknown template %q", templateID)
	}
	return t.Spec(), nil
}

// restrictSections narrows tmpl to exactly the listed sections, in the
// listed order. Only sections the template declares and enables may be
// listed.
func restrictSections(tmpl model.TemplateSpec, ids []string) (model.TemplateSpec, error) {
	declared := make(map[string]model.TemplateSection, len(tmpl.Sections))
	for _, sec := range tmpl.Sections {
		declared[sec.SectionID] = sec
	}
	out := tmpl
	out.Sections = make([]model.TemplateSection, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !report.KnownSection(id) {
			return model.TemplateSpec{}, model.NewRequestError("template_sections", "unknown section %q", id)
		}
		sec, ok := declared[id]
		if !ok {
			return model.TemplateSpec{}, model.NewRequestError("template_sections",
				"section %q is not part of template %q", id, tmpl.TemplateID)
		}
		if !sec.Enabled {
			return model.TemplateSpec{}, model.NewRequestError("template_sections",
				"section %q is disabled in template %q", id, tmpl.TemplateID)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out.Sections = append(out.Sections, sec)
	}
	return out, nil
}

func field(i int, name string) string {
	return fmt.Sprintf("execution_plans[%d].%s", i, name)
}

// inPlan re-scopes a request error to the i-th execution plan.
func inPlan(i int, err error) error {
	re, ok := model.AsRequestError(err)
	if !ok {
		return err
	}
	return &model.RequestError{Field: field(i, re.Field), Message: re.Message}
}
