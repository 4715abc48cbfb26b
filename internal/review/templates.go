package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/report"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

var templateIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// SaveTemplate validates spec against the bundle and stores it. The saved
// template is selectable as "custom:<template_id>".
func (s *Service) SaveTemplate(ctx context.Context, spec model.TemplateSpec) (*model.CustomTemplate, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	spec.TemplateID = strings.TrimPrefix(spec.TemplateID, CustomTemplatePrefix)
	if err := s.validateTemplate(spec); err != nil {
		return nil, err
	}
	t, err := s.store.SaveTemplate(ctx, spec)
	if err != nil {
		return nil, eris.Wrapf(err, "review: save template %s", spec.TemplateID)
	}
	zap.L().Info("review: template saved",
		zap.String("template_id", spec.TemplateID),
		zap.Strings("sections", spec.EnabledSections()),
	)
	return t, nil
}

func (s *Service) validateTemplate(spec model.TemplateSpec) error {
	if !templateIDPattern.MatchString(spec.TemplateID) {
		return model.NewRequestError("template_id", "template id %q must match %s", spec.TemplateID, templateIDPattern)
	}
	if len(spec.Sections) == 0 {
		return model.NewRequestError("sections", "at least one section is required")
	}
	seen := make(map[string]bool, len(spec.Sections))
	for i, sec := range spec.Sections {
		if !report.KnownSection(sec.SectionID) {
			return model.NewRequestError(fieldAt("sections", i, "section_id"), "unknown section %q", sec.SectionID)
		}
		if seen[sec.SectionID] {
			return model.NewRequestError(fieldAt("sections", i, "section_id"), "duplicate section %q", sec.SectionID)
		}
		seen[sec.SectionID] = true
	}
	if spec.OverlayRequired != "" {
		if _, ok := s.bundle.Overlay(spec.OverlayRequired); !ok {
			return model.NewRequestError("overlay_required", "unknown overlay %q", spec.OverlayRequired)
		}
	}
	return nil
}

// GetTemplate returns a saved template.
func (s *Service) GetTemplate(ctx context.Context, id string) (*model.CustomTemplate, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.GetTemplate(ctx, strings.TrimPrefix(id, CustomTemplatePrefix))
}

// ListTemplates returns every saved template.
func (s *Service) ListTemplates(ctx context.Context) ([]model.CustomTemplate, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.ListTemplates(ctx)
}

// DeleteTemplate removes a saved template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrStoreDisabled
	}
	return s.store.DeleteTemplate(ctx, strings.TrimPrefix(id, CustomTemplatePrefix))
}

// GetReview returns a persisted review.
func (s *Service) GetReview(ctx context.Context, id string) (*model.ReviewRun, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.GetReview(ctx, id)
}

// ListReviews returns persisted review summaries.
func (s *Service) ListReviews(ctx context.Context, filter store.ReviewFilter) ([]model.ReviewRun, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.ListReviews(ctx, filter)
}

// customTemplate loads a saved template for use in a plan or review. A
// missing template is a client error on fieldName.
func (s *Service) customTemplate(ctx context.Context, id, fieldName string) (model.TemplateSpec, error) {
	if s.store == nil {
		return model.TemplateSpec{}, model.NewRequestError(fieldName, "custom templates are not available: persistence disabled")
	}
	t, err := s.store.GetTemplate(ctx, id)
	if eris.Is(err, store.ErrNotFound) {
		return model.TemplateSpec{}, model.NewRequestError(fieldName, "unknown custom template %q", id)
	}
	if err != nil {
		return model.TemplateSpec{}, eris.Wrapf(err, "review: load template %s", id)
	}
	spec := t.Template
	spec.TemplateID = CustomTemplatePrefix + t.ID
	return spec, nil
}

func fieldAt(list string, i int, name string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, name)
}
