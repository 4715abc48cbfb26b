package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

const maxSheetName = 31

var (
	findingHeader  = []string{"Finding", "Type", "Severity", "Pack", "Rule", "Title", "Refs", "Missing inputs", "Observed", "Recommended action"}
	standardHeader = []string{"Route", "Ref", "Title", "Status", "Rules considered", "Design risks", "Evidence gaps", "Passed", "Not active"}
	costHeader     = []string{"Route", "Process", "Currency", "Quantity", "Unit cost", "Total cost", "Low", "High", "Confidence", "Level", "Assumptions"}
)

// WriteXLSX writes the review as a workbook: one findings sheet per route
// (ordered by the report's role lens) plus Standards and Cost sheets.
func WriteXLSX(w io.Writer, resp *model.ReviewResponse) error {
	f := xlsx.NewFile()

	for i, route := range resp.Routes {
		name := sheetName(fmt.Sprintf("Route %d %s", i+1, route.ProcessID))
		sheet, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", name)
		}
		addRow(sheet, findingHeader)
		for _, fd := range reportFindings(route) {
			addRow(sheet, []string{
				fd.FindingID,
				string(fd.FindingType),
				string(fd.Severity),
				fd.PackID,
				fd.RuleID,
				fd.Title,
				strings.Join(fd.Refs, ", "),
				strings.Join(fd.MissingInputs, ", "),
				formatObserved(fd.Observed),
				fd.RecommendedAction,
			})
		}
	}

	std, err := f.AddSheet("Standards")
	if err != nil {
		return eris.Wrap(err, "xlsx: add standards sheet")
	}
	addRow(std, standardHeader)
	for _, route := range resp.Routes {
		for _, tr := range route.StandardsTrace {
			row := std.AddRow()
			row.AddCell().SetString(string(route.RouteSource))
			row.AddCell().SetString(tr.RefID)
			row.AddCell().SetString(tr.Title)
			row.AddCell().SetString(string(tr.Status))
			row.AddCell().SetInt(tr.RulesConsidered)
			row.AddCell().SetInt(tr.DesignRiskFindings)
			row.AddCell().SetInt(tr.EvidenceGapFindings)
			row.AddCell().SetInt(tr.ChecksPassed)
			row.AddCell().SetInt(tr.RulesNotActiveInMode)
		}
	}

	cost, err := f.AddSheet("Cost")
	if err != nil {
		return eris.Wrap(err, "xlsx: add cost sheet")
	}
	addRow(cost, costHeader)
	for _, route := range resp.Routes {
		est := route.CostEstimate
		row := cost.AddRow()
		row.AddCell().SetString(string(route.RouteSource))
		row.AddCell().SetString(route.ProcessID)
		row.AddCell().SetString(est.Currency)
		row.AddCell().SetInt(est.Quantity)
		row.AddCell().SetFloat(est.UnitCost)
		row.AddCell().SetFloat(est.TotalCost)
		row.AddCell().SetFloat(est.CostRange.Low)
		row.AddCell().SetFloat(est.CostRange.High)
		row.AddCell().SetFloat(est.Confidence)
		row.AddCell().SetString(string(est.ConfidenceLevel))
		row.AddCell().SetString(strings.Join(est.Assumptions, "; "))
	}
	if cmp := resp.CostCompareRoutes; cmp != nil {
		cost.AddRow()
		addRow(cost, []string{"Delta (alternate - primary)", fmt.Sprintf("%.2f", cmp.DeltaAbs), fmt.Sprintf("%.2f%%", cmp.DeltaPct)})
		addRow(cost, []string{"Cheaper route", cmp.CheaperProcessID, cmp.CheaperPlanID})
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// reportFindings prefers the lens-ordered report sections and falls back to
// the raw findings when the template disabled them.
func reportFindings(route model.RouteReview) []model.Finding {
	var out []model.Finding
	found := false
	for _, s := range route.Report.Sections {
		if s.SectionID != SectionFindings && s.SectionID != SectionEvidenceGaps {
			continue
		}
		if fs, ok := s.Content.([]model.Finding); ok {
			out = append(out, fs...)
			found = true
		}
	}
	if !found {
		return route.Findings
	}
	return out
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func sheetName(s string) string {
	s = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "?", "_", "*", "_", "[", "(", "]", ")").Replace(s)
	if len(s) > maxSheetName {
		s = s[:maxSheetName]
	}
	return s
}

func formatObserved(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%g", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
