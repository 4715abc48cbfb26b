package api

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/report"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/review"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"bundle_version": s.svc.Bundle().Version(),
	})
}

// configView is what a client needs to render the selection flow.
type configView struct {
	BundleVersion string               `json:"bundle_version"`
	Manifest      bundle.Manifest      `json:"manifest"`
	AnalysisModes map[string][]string  `json:"analysis_modes"`
	Processes     []processView        `json:"processes"`
	Packs         []bundle.Pack        `json:"packs"`
	Overlays      []bundle.Overlay     `json:"overlays"`
	Roles         []bundle.Role        `json:"roles"`
	Templates     []model.TemplateSpec `json:"templates"`
	UI            bundle.UIBindings    `json:"ui"`
	Sections      []string             `json:"sections"`
}

type processView struct {
	ProcessID    string   `json:"process_id"`
	Label        string   `json:"label"`
	DefaultPacks []string `json:"default_packs"`
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	b := s.svc.Bundle()
	v := configView{
		BundleVersion: b.Version(),
		Manifest:      b.Manifest(),
		AnalysisModes: make(map[string][]string),
		Packs:         b.Packs(),
		Overlays:      b.Overlays(),
		Roles:         b.Roles(),
		UI:            b.UI(),
		Sections:      report.Sections(),
	}
	for _, id := range b.AnalysisModes() {
		v.AnalysisModes[id], _ = b.AnalysisMode(id)
	}
	for _, p := range b.Processes() {
		v.Processes = append(v.Processes, processView{ProcessID: p.ProcessID, Label: p.Label, DefaultPacks: p.DefaultPacks})
	}
	for _, t := range b.Templates() {
		v.Templates = append(v.Templates, t.Spec())
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	var req model.PlanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.svc.Plan(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runReview(r *http.Request) (*model.ReviewResponse, error) {
	var req model.ReviewRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return s.svc.Review(r.Context(), req)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	resp, err := s.runReview(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) exportReview(w http.ResponseWriter, r *http.Request) {
	resp, err := s.runReview(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, r, resp)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReviewFilter{ComponentRef: q.Get("component_ref")}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		writeError(w, r, err)
		return
	}
	runs, err := s.svc.ListReviews(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": runs})
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) exportStoredReview(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, r, run.Result)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	var builtin []model.TemplateSpec
	for _, t := range s.svc.Bundle().Templates() {
		builtin = append(builtin, t.Spec())
	}
	custom, err := s.svc.ListTemplates(r.Context())
	if err != nil && !eris.Is(err, review.ErrStoreDisabled) {
		writeError(w, r, err)
		return
	}
	if custom == nil {
		custom = []model.CustomTemplate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates":        builtin,
		"custom_templates": custom,
	})
}

func (s *Server) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var spec model.TemplateSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.SaveTemplate(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func writeWorkbook(w http.ResponseWriter, r *http.Request, resp *model.ReviewResponse) {
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, resp); err != nil {
		writeError(w, r, err)
		return
	}
	name := unsafeFilename.ReplaceAllString(resp.ComponentRef, "_")
	if name == "" {
		name = "review"
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, model.NewRequestError(name, "must be a non-negative integer")
	}
	return n, nil
}
