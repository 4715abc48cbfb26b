// Package bundle loads the declarative rule, process, standards and cost
// documents into one immutable, cross-validated Bundle.
//
// A Bundle is created once at startup and shared read-only by every request.
// It has no mutation API; reloading requires a restart.
package bundle

import (
	"slices"
	"sort"
)

// Bundle is the immutable in-memory aggregate of all bundle documents.
type Bundle struct {
	manifest     Manifest
	refsDoc      referencesDoc
	library      ruleLibraryDoc
	classifier   Classifier
	overlaysDoc  overlaysDoc
	rolesDoc     rolesDoc
	templatesDoc templatesDoc
	ui           UIBindings
	supplier     SupplierProfile
	costModel    CostModel

	refs        map[string]int
	packs       map[string]int
	rules       map[string]int
	rulesByPack map[string][]int
	processes   map[string]int
	priority    map[string]int
	overlays    map[string]int
	roles       map[string]int
	templates   map[string]int
	profiles    map[string]int
	files       map[string]string
	fingerprint string
}

// file returns the on-disk file name a document was read from.
func (b *Bundle) file(doc string) string {
	if f, ok := b.files[doc]; ok {
		return f
	}
	return doc + ".json"
}

func (b *Bundle) index() {
	b.refs = make(map[string]int, len(b.refsDoc.References))
	for i, r := range b.refsDoc.References {
		if _, dup := b.refs[r.RefID]; !dup {
			b.refs[r.RefID] = i
		}
	}
	b.packs = make(map[string]int, len(b.library.Packs))
	for i, p := range b.library.Packs {
		if _, dup := b.packs[p.PackID]; !dup {
			b.packs[p.PackID] = i
		}
	}
	b.rules = make(map[string]int, len(b.library.Rules))
	b.rulesByPack = make(map[string][]int)
	for i, r := range b.library.Rules {
		if _, dup := b.rules[r.RuleID]; !dup {
			b.rules[r.RuleID] = i
		}
		b.rulesByPack[r.PackID] = append(b.rulesByPack[r.PackID], i)
	}
	b.processes = make(map[string]int, len(b.classifier.Processes))
	for i, p := range b.classifier.Processes {
		if _, dup := b.processes[p.ProcessID]; !dup {
			b.processes[p.ProcessID] = i
		}
	}
	b.priority = make(map[string]int, len(b.classifier.PriorityOrder))
	for i, id := range b.classifier.PriorityOrder {
		if _, dup := b.priority[id]; !dup {
			b.priority[id] = i
		}
	}
	b.overlays = make(map[string]int, len(b.overlaysDoc.Overlays))
	for i, o := range b.overlaysDoc.Overlays {
		if _, dup := b.overlays[o.OverlayID]; !dup {
			b.overlays[o.OverlayID] = i
		}
	}
	b.roles = make(map[string]int, len(b.rolesDoc.Roles))
	for i, r := range b.rolesDoc.Roles {
		if _, dup := b.roles[r.RoleID]; !dup {
			b.roles[r.RoleID] = i
		}
	}
	b.templates = make(map[string]int, len(b.templatesDoc.Templates))
	for i, t := range b.templatesDoc.Templates {
		if _, dup := b.templates[t.TemplateID]; !dup {
			b.templates[t.TemplateID] = i
		}
	}
	b.profiles = make(map[string]int, len(b.ui.Profiles))
	for i, p := range b.ui.Profiles {
		if _, dup := b.profiles[p.ProfileID]; !dup {
			b.profiles[p.ProfileID] = i
		}
	}
}

// Manifest returns the bundle manifest.
func (b *Bundle) Manifest() Manifest {
	m := b.manifest
	m.PackCounts = make(map[string]int, len(b.manifest.PackCounts))
	for k, v := range b.manifest.PackCounts {
		m.PackCounts[k] = v
	}
	return m
}

// Fingerprint is the SHA-256 of the normalised documents.
func (b *Bundle) Fingerprint() string { return b.fingerprint }

// Version identifies the bundle in responses: "<bundle_id>@<version>+<fp12>".
func (b *Bundle) Version() string {
	fp := b.fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return b.manifest.BundleID + "@" + b.manifest.Version + "+" + fp
}

// References returns all references in document order.
func (b *Bundle) References() []Reference {
	return slices.Clone(b.refsDoc.References)
}

// Reference looks up a reference by id.
func (b *Bundle) Reference(id string) (Reference, bool) {
	i, ok := b.refs[id]
	if !ok {
		return Reference{}, false
	}
	return b.refsDoc.References[i], true
}

// Packs returns all packs in canonical order.
func (b *Bundle) Packs() []Pack {
	return slices.Clone(b.library.Packs)
}

// Pack looks up a pack by id.
func (b *Bundle) Pack(id string) (Pack, bool) {
	i, ok := b.packs[id]
	if !ok {
		return Pack{}, false
	}
	return b.library.Packs[i], true
}

// PackOrder is the canonical position of a pack; unknown packs sort last.
func (b *Bundle) PackOrder(id string) int {
	if i, ok := b.packs[id]; ok {
		return i
	}
	return len(b.library.Packs)
}

// SortPacks orders pack ids canonically, ties by id.
func (b *Bundle) SortPacks(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		oi, oj := b.PackOrder(ids[i]), b.PackOrder(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
}

// Rules returns every rule in library order.
func (b *Bundle) Rules() []Rule {
	out := make([]Rule, len(b.library.Rules))
	for i, r := range b.library.Rules {
		out[i] = cloneRule(r)
	}
	return out
}

// Rule looks up a rule by id.
func (b *Bundle) Rule(id string) (Rule, bool) {
	i, ok := b.rules[id]
	if !ok {
		return Rule{}, false
	}
	return cloneRule(b.library.Rules[i]), true
}

// RulesInPack returns the rules of a pack in library order.
func (b *Bundle) RulesInPack(packID string) []Rule {
	idx := b.rulesByPack[packID]
	out := make([]Rule, len(idx))
	for i, j := range idx {
		out[i] = cloneRule(b.library.Rules[j])
	}
	return out
}

func cloneRule(r Rule) Rule {
	r.Refs = slices.Clone(r.Refs)
	r.ApplicableModes = slices.Clone(r.ApplicableModes)
	r.Inputs = slices.Clone(r.Inputs)
	return r
}

// AnalysisMode returns the evidence channels an analysis mode enables.
func (b *Bundle) AnalysisMode(id string) ([]string, bool) {
	ch, ok := b.library.AnalysisModes[id]
	return slices.Clone(ch), ok
}

// AnalysisModes returns the analysis mode ids, sorted.
func (b *Bundle) AnalysisModes() []string {
	ids := make([]string, 0, len(b.library.AnalysisModes))
	for id := range b.library.AnalysisModes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Classifier returns the process classifier document.
func (b *Bundle) Classifier() Classifier {
	c := b.classifier
	c.PriorityOrder = slices.Clone(c.PriorityOrder)
	c.Processes = b.Processes()
	return c
}

// Processes returns all processes in document order.
func (b *Bundle) Processes() []Process {
	out := make([]Process, len(b.classifier.Processes))
	for i, p := range b.classifier.Processes {
		p.DefaultPacks = slices.Clone(p.DefaultPacks)
		p.Heuristics = slices.Clone(p.Heuristics)
		out[i] = p
	}
	return out
}

// Process looks up a process by id.
func (b *Bundle) Process(id string) (Process, bool) {
	i, ok := b.processes[id]
	if !ok {
		return Process{}, false
	}
	p := b.classifier.Processes[i]
	p.DefaultPacks = slices.Clone(p.DefaultPacks)
	p.Heuristics = slices.Clone(p.Heuristics)
	return p, true
}

// Priority is the declared tie-break position of a process.
func (b *Bundle) Priority(id string) int {
	if i, ok := b.priority[id]; ok {
		return i
	}
	return len(b.priority)
}

// Overlays returns all overlays.
func (b *Bundle) Overlays() []Overlay {
	return slices.Clone(b.overlaysDoc.Overlays)
}

// Overlay looks up an overlay by id.
func (b *Bundle) Overlay(id string) (Overlay, bool) {
	i, ok := b.overlays[id]
	if !ok {
		return Overlay{}, false
	}
	o := b.overlaysDoc.Overlays[i]
	o.ExtraRefs = slices.Clone(o.ExtraRefs)
	return o, true
}

// Roles returns all roles.
func (b *Bundle) Roles() []Role {
	return slices.Clone(b.rolesDoc.Roles)
}

// Role looks up a role by id.
func (b *Bundle) Role(id string) (Role, bool) {
	i, ok := b.roles[id]
	if !ok {
		return Role{}, false
	}
	r := b.rolesDoc.Roles[i]
	r.EmphasizedPacks = slices.Clone(r.EmphasizedPacks)
	return r, true
}

// Templates returns all report templates.
func (b *Bundle) Templates() []ReportTemplate {
	return slices.Clone(b.templatesDoc.Templates)
}

// Template looks up a report template by id.
func (b *Bundle) Template(id string) (ReportTemplate, bool) {
	i, ok := b.templates[id]
	if !ok {
		return ReportTemplate{}, false
	}
	t := b.templatesDoc.Templates[i]
	t.Sections = slices.Clone(t.Sections)
	return t, true
}

// UI returns the UI bindings.
func (b *Bundle) UI() UIBindings {
	u := b.ui
	u.Flow = slices.Clone(u.Flow)
	u.Profiles = slices.Clone(u.Profiles)
	return u
}

// Profile looks up a shop profile by id.
func (b *Bundle) Profile(id string) (Profile, bool) {
	i, ok := b.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return b.ui.Profiles[i], true
}

// Supplier returns the supplier profile template.
func (b *Bundle) Supplier() SupplierProfile { return b.supplier }

// CostModel returns the cost model.
func (b *Bundle) CostModel() CostModel { return b.costModel }
