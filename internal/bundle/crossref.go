package bundle

import (
	"fmt"
	"sort"
)

var knownChannels = map[string]bool{
	ChannelGeometry: true,
	ChannelDrawing:  true,
	ChannelSpec:     true,
}

// crossCheck runs the cross-file integrity checks in a fixed order and
// returns the first violation.
func crossCheck(b *Bundle) error {
	checks := []func(*Bundle) error{
		checkUniqueIDs,
		checkAnalysisModes,
		checkRules,
		checkProcesses,
		checkOverlays,
		checkRoles,
		checkTemplates,
		checkUI,
		checkCostInputs,
		checkManifestCounts,
	}
	for _, check := range checks {
		if err := check(b); err != nil {
			return err
		}
	}
	return nil
}

func checkUniqueIDs(b *Bundle) error {
	type idList struct {
		file, field string
		ids         []string
	}
	var lists []idList

	refs := idList{file: b.file(DocReferences), field: "references"}
	for _, r := range b.refsDoc.References {
		refs.ids = append(refs.ids, r.RefID)
	}
	packs := idList{file: b.file(DocRuleLibrary), field: "packs"}
	for _, p := range b.library.Packs {
		packs.ids = append(packs.ids, p.PackID)
	}
	rules := idList{file: b.file(DocRuleLibrary), field: "rules"}
	for _, r := range b.library.Rules {
		rules.ids = append(rules.ids, r.RuleID)
	}
	procs := idList{file: b.file(DocProcessClassifier), field: "processes"}
	for _, p := range b.classifier.Processes {
		procs.ids = append(procs.ids, p.ProcessID)
	}
	overlays := idList{file: b.file(DocOverlays), field: "overlays"}
	for _, o := range b.overlaysDoc.Overlays {
		overlays.ids = append(overlays.ids, o.OverlayID)
	}
	roles := idList{file: b.file(DocRoles), field: "roles"}
	for _, r := range b.rolesDoc.Roles {
		roles.ids = append(roles.ids, r.RoleID)
	}
	templates := idList{file: b.file(DocReportTemplates), field: "templates"}
	for _, t := range b.templatesDoc.Templates {
		templates.ids = append(templates.ids, t.TemplateID)
	}
	profiles := idList{file: b.file(DocUIBindings), field: "profiles"}
	for _, p := range b.ui.Profiles {
		profiles.ids = append(profiles.ids, p.ProfileID)
	}
	lists = append(lists, refs, packs, rules, procs, overlays, roles, templates, profiles)

	for _, l := range lists {
		seen := make(map[string]bool, len(l.ids))
		for i, id := range l.ids {
			if seen[id] {
				ve := &ValidationError{
					File:    l.file,
					Field:   fmt.Sprintf("%s[%d]", l.field, i),
					ID:      id,
					Message: "duplicate id",
				}
				if l.field == "rules" {
					ve.RuleID = id
				}
				return ve
			}
			seen[id] = true
		}
	}
	return nil
}

func checkAnalysisModes(b *Bundle) error {
	for _, mode := range sortedKeys(b.library.AnalysisModes) {
		for i, ch := range b.library.AnalysisModes[mode] {
			if !knownChannels[ch] {
				return &ValidationError{
					File:    b.file(DocRuleLibrary),
					Field:   fmt.Sprintf("analysis_modes.%s[%d]", mode, i),
					ID:      mode,
					Message: fmt.Sprintf("unknown evidence channel %q", ch),
				}
			}
		}
	}
	return nil
}

func checkRules(b *Bundle) error {
	for i, r := range b.library.Rules {
		if _, ok := b.packs[r.PackID]; !ok {
			return &ValidationError{
				File:    b.file(DocRuleLibrary),
				Field:   fmt.Sprintf("rules[%d].pack_id", i),
				ID:      r.PackID,
				RuleID:  r.RuleID,
				Message: fmt.Sprintf("unknown pack %q", r.PackID),
			}
		}
		for j, ref := range r.Refs {
			if _, ok := b.refs[ref]; !ok {
				return &ValidationError{
					File:    b.file(DocRuleLibrary),
					Field:   fmt.Sprintf("rules[%d].refs[%d]", i, j),
					ID:      ref,
					RuleID:  r.RuleID,
					Message: fmt.Sprintf("reference %q not found in %s", ref, b.file(DocReferences)),
				}
			}
		}
		if err := checkEvaluator(b.file(DocRuleLibrary), i, r); err != nil {
			return err
		}
	}
	return nil
}

func checkEvaluator(file string, i int, r Rule) error {
	fail := func(field, msg string) error {
		return &ValidationError{
			File:    file,
			Field:   fmt.Sprintf("rules[%d].%s", i, field),
			RuleID:  r.RuleID,
			Message: msg,
		}
	}
	t := r.Thresholds
	switch r.EvaluatorKind {
	case EvalMin, EvalRatioMin:
		if t.Min == nil {
			return fail("thresholds.min", r.EvaluatorKind+" evaluator requires thresholds.min")
		}
	case EvalMax, EvalRatioMax:
		if t.Max == nil {
			return fail("thresholds.max", r.EvaluatorKind+" evaluator requires thresholds.max")
		}
	case EvalRange:
		if t.Min == nil || t.Max == nil {
			return fail("thresholds", "range evaluator requires thresholds.min and thresholds.max")
		}
		if *t.Min > *t.Max {
			return fail("thresholds", "range evaluator requires min <= max")
		}
	}
	switch r.EvaluatorKind {
	case EvalRatioMin, EvalRatioMax:
		if len(r.Inputs) != 2 {
			return fail("inputs", "ratio evaluators require exactly two inputs")
		}
	default:
		if len(r.Inputs) != 1 {
			return fail("inputs", r.EvaluatorKind+" evaluator requires exactly one input")
		}
	}
	return nil
}

func checkProcesses(b *Bundle) error {
	for i, p := range b.classifier.Processes {
		for j, pack := range p.DefaultPacks {
			if _, ok := b.packs[pack]; !ok {
				return &ValidationError{
					File:    b.file(DocProcessClassifier),
					Field:   fmt.Sprintf("processes[%d].default_packs[%d]", i, j),
					ID:      pack,
					Message: fmt.Sprintf("process %q references unknown pack %q", p.ProcessID, pack),
				}
			}
		}
	}
	for i, id := range b.classifier.PriorityOrder {
		if _, ok := b.processes[id]; !ok {
			return &ValidationError{
				File:    b.file(DocProcessClassifier),
				Field:   fmt.Sprintf("priority_order[%d]", i),
				ID:      id,
				Message: fmt.Sprintf("unknown process %q", id),
			}
		}
	}
	if len(b.priority) != len(b.classifier.PriorityOrder) {
		return &ValidationError{File: b.file(DocProcessClassifier), Field: "priority_order", Message: "duplicate process in priority order"}
	}
	for _, p := range b.classifier.Processes {
		if _, ok := b.priority[p.ProcessID]; !ok {
			return &ValidationError{
				File:    b.file(DocProcessClassifier),
				Field:   "priority_order",
				ID:      p.ProcessID,
				Message: fmt.Sprintf("process %q missing from priority order", p.ProcessID),
			}
		}
	}
	return nil
}

func checkOverlays(b *Bundle) error {
	for i, o := range b.overlaysDoc.Overlays {
		if _, ok := b.packs[o.PackID]; !ok {
			return &ValidationError{
				File:    b.file(DocOverlays),
				Field:   fmt.Sprintf("overlays[%d].pack_id", i),
				ID:      o.PackID,
				Message: fmt.Sprintf("overlay %q references unknown pack %q", o.OverlayID, o.PackID),
			}
		}
		for j, ref := range o.ExtraRefs {
			if _, ok := b.refs[ref]; !ok {
				return &ValidationError{
					File:    b.file(DocOverlays),
					Field:   fmt.Sprintf("overlays[%d].extra_refs[%d]", i, j),
					ID:      ref,
					Message: fmt.Sprintf("reference %q not found in %s", ref, b.file(DocReferences)),
				}
			}
		}
	}
	return nil
}

func checkRoles(b *Bundle) error {
	for i, r := range b.rolesDoc.Roles {
		for j, pack := range r.EmphasizedPacks {
			if _, ok := b.packs[pack]; !ok {
				return &ValidationError{
					File:    b.file(DocRoles),
					Field:   fmt.Sprintf("roles[%d].emphasized_packs[%d]", i, j),
					ID:      pack,
					Message: fmt.Sprintf("role %q emphasizes unknown pack %q", r.RoleID, pack),
				}
			}
		}
		for _, sev := range sortedKeys(r.SeverityWeights) {
			if !knownSeverity(sev) {
				return &ValidationError{
					File:    b.file(DocRoles),
					Field:   fmt.Sprintf("roles[%d].severity_weights.%s", i, sev),
					ID:      r.RoleID,
					Message: fmt.Sprintf("unknown severity %q", sev),
				}
			}
		}
	}
	return nil
}

func checkTemplates(b *Bundle) error {
	for i, t := range b.templatesDoc.Templates {
		if t.OverlayRequired == "" {
			continue
		}
		if _, ok := b.overlays[t.OverlayRequired]; !ok {
			return &ValidationError{
				File:    b.file(DocReportTemplates),
				Field:   fmt.Sprintf("templates[%d].overlay_required", i),
				ID:      t.OverlayRequired,
				Message: fmt.Sprintf("template %q requires unknown overlay %q", t.TemplateID, t.OverlayRequired),
			}
		}
	}
	return nil
}

func checkUI(b *Bundle) error {
	d := b.ui.Defaults
	if _, ok := b.roles[d.RoleID]; !ok {
		return &ValidationError{File: b.file(DocUIBindings), Field: "defaults.role_id", ID: d.RoleID, Message: "unknown role"}
	}
	if _, ok := b.templates[d.TemplateID]; !ok {
		return &ValidationError{File: b.file(DocUIBindings), Field: "defaults.template_id", ID: d.TemplateID, Message: "unknown template"}
	}
	if _, ok := b.library.AnalysisModes[d.AnalysisMode]; !ok {
		return &ValidationError{File: b.file(DocUIBindings), Field: "defaults.analysis_mode", ID: d.AnalysisMode, Message: "unknown analysis mode"}
	}
	for i, p := range b.ui.Profiles {
		if _, ok := b.processes[p.ProcessID]; !ok {
			return &ValidationError{
				File:    b.file(DocUIBindings),
				Field:   fmt.Sprintf("profiles[%d].process_id", i),
				ID:      p.ProcessID,
				Message: fmt.Sprintf("profile %q references unknown process %q", p.ProfileID, p.ProcessID),
			}
		}
	}
	return nil
}

func checkCostInputs(b *Bundle) error {
	for _, id := range sortedKeys(b.supplier.ProcessRates) {
		if _, ok := b.processes[id]; !ok {
			return &ValidationError{
				File:    b.file(DocSupplierProfile),
				Field:   "process_rates." + id,
				ID:      id,
				Message: "unknown process",
			}
		}
	}
	for _, id := range sortedKeys(b.costModel.Processes) {
		if _, ok := b.processes[id]; !ok {
			return &ValidationError{
				File:    b.file(DocCostModel),
				Field:   "processes." + id,
				ID:      id,
				Message: "unknown process",
			}
		}
	}
	if _, ok := b.supplier.MaterialRates[b.costModel.DefaultMaterial]; !ok {
		return &ValidationError{
			File:    b.file(DocCostModel),
			Field:   "default_material",
			ID:      b.costModel.DefaultMaterial,
			Message: fmt.Sprintf("default material has no rate in %s", b.file(DocSupplierProfile)),
		}
	}
	return nil
}

func checkManifestCounts(b *Bundle) error {
	m := b.manifest
	mismatch := func(field string, declared, actual int) *ValidationError {
		return &ValidationError{
			File:    b.file(DocManifest),
			Field:   field,
			Message: fmt.Sprintf("declared %d, loaded %d", declared, actual),
		}
	}
	if m.RuleCount != len(b.library.Rules) {
		return mismatch("rule_count", m.RuleCount, len(b.library.Rules))
	}
	if m.ReferenceCount != len(b.refsDoc.References) {
		return mismatch("reference_count", m.ReferenceCount, len(b.refsDoc.References))
	}
	if m.RolesCount != len(b.rolesDoc.Roles) {
		return mismatch("roles_count", m.RolesCount, len(b.rolesDoc.Roles))
	}
	if m.TemplatesCount != len(b.templatesDoc.Templates) {
		return mismatch("templates_count", m.TemplatesCount, len(b.templatesDoc.Templates))
	}
	for _, p := range b.library.Packs {
		declared, ok := m.PackCounts[p.PackID]
		if !ok {
			return &ValidationError{
				File:    b.file(DocManifest),
				Field:   "pack_counts." + p.PackID,
				ID:      p.PackID,
				Message: "pack missing from manifest",
			}
		}
		if actual := len(b.rulesByPack[p.PackID]); declared != actual {
			ve := mismatch("pack_counts."+p.PackID, declared, actual)
			ve.ID = p.PackID
			return ve
		}
	}
	for _, id := range sortedKeys(m.PackCounts) {
		if _, ok := b.packs[id]; !ok {
			return &ValidationError{
				File:    b.file(DocManifest),
				Field:   "pack_counts." + id,
				ID:      id,
				Message: "manifest declares unknown pack",
			}
		}
	}
	return nil
}

func knownSeverity(s string) bool {
	switch s {
	case "critical", "major", "minor", "info":
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
