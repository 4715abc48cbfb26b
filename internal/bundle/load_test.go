package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const shippedBundle = "../../configs/bundle"

// copyBundle copies the shipped bundle into a temp dir so tests can mutate it.
func copyBundle(t *testing.T) string {
	t.Helper()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dst, DefaultSchemaDir), 0o755))
	for _, sub := range []string{"", DefaultSchemaDir} {
		entries, err := os.ReadDir(filepath.Join(shippedBundle, sub))
		require.NoError(t, err)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(shippedBundle, sub, e.Name()))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dst, sub, e.Name()), data, 0o644))
		}
	}
	return dst
}

// patchDoc decodes name.json, applies fn and writes it back.
func patchDoc(t *testing.T, dir, name string, fn func(doc map[string]any)) {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	fn(doc)
	out, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

func rulesOf(doc map[string]any) []any {
	return doc["rules"].([]any)
}

func ruleAt(doc map[string]any, i int) map[string]any {
	return rulesOf(doc)[i].(map[string]any)
}

func TestLoadShippedBundle(t *testing.T) {
	b, err := Load(shippedBundle)
	require.NoError(t, err)

	m := b.Manifest()
	assert.Equal(t, "dfm-core", m.BundleID)
	assert.Len(t, b.Rules(), m.RuleCount)
	assert.Len(t, b.References(), m.ReferenceCount)
	assert.Len(t, b.Roles(), m.RolesCount)
	assert.Len(t, b.Templates(), m.TemplatesCount)
	assert.Len(t, b.Fingerprint(), 64)
	assert.Contains(t, b.Version(), "dfm-core@1.4.0+")

	for _, p := range b.Packs() {
		assert.Len(t, b.RulesInPack(p.PackID), m.PackCounts[p.PackID], p.PackID)
	}

	channels, ok := b.AnalysisMode("full")
	require.True(t, ok)
	assert.Equal(t, []string{"geometry", "drawing", "spec"}, channels)

	_, ok = b.Process("sheet_metal_fabrication")
	assert.True(t, ok)
	assert.Equal(t, 0, b.Priority("cnc_milling"))
	assert.Equal(t, 0, b.PackOrder("core_dfm"))
}

func TestLoadIsDeterministic(t *testing.T) {
	a, err := Load(shippedBundle)
	require.NoError(t, err)
	b, err := Load(shippedBundle)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmp.AllowUnexported(Bundle{})); diff != "" {
		t.Fatalf("bundle differs between loads (-a +b):\n%s", diff)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	b, err := Load(shippedBundle)
	require.NoError(t, err)

	r, ok := b.Rule("CNC-001")
	require.True(t, ok)
	r.Refs[0] = "MUTATED"

	again, _ := b.Rule("CNC-001")
	assert.Equal(t, "ISO-286", again.Refs[0])

	m := b.Manifest()
	m.PackCounts["core_dfm"] = 99
	assert.Equal(t, 3, b.Manifest().PackCounts["core_dfm"])
}

func TestSortPacks(t *testing.T) {
	b, err := Load(shippedBundle)
	require.NoError(t, err)

	ids := []string{"medical_overlay", "drawing_completeness", "unknown_b", "core_dfm", "unknown_a"}
	b.SortPacks(ids)
	assert.Equal(t, []string{"core_dfm", "drawing_completeness", "medical_overlay", "unknown_a", "unknown_b"}, ids)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(t *testing.T, dir string)
		wantFile  string
		wantField string
		wantID    string
		wantRule  string
	}{
		{
			name: "rule cites missing reference",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 0)["refs"] = []any{"ISO-9999"}
				})
			},
			wantFile:  "rule_library.json",
			wantField: "rules[0].refs[0]",
			wantID:    "ISO-9999",
			wantRule:  "CORE-001",
		},
		{
			name: "rule in unknown pack",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 3)["pack_id"] = "ghost_pack"
				})
			},
			wantFile:  "rule_library.json",
			wantField: "rules[3].pack_id",
			wantID:    "ghost_pack",
			wantRule:  "CNC-001",
		},
		{
			name: "duplicate rule id",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 1)["rule_id"] = "CORE-001"
				})
			},
			wantFile: "rule_library.json",
			wantRule: "CORE-001",
		},
		{
			name: "range evaluator without max",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 8)["thresholds"] = map[string]any{"min": 0.5}
				})
			},
			wantFile:  "rule_library.json",
			wantField: "rules[8].thresholds",
			wantRule:  "SM-002",
		},
		{
			name: "process references unknown pack",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocProcessClassifier, func(doc map[string]any) {
					p := doc["processes"].([]any)[0].(map[string]any)
					p["default_packs"] = []any{"core_dfm", "missing_pack"}
				})
			},
			wantFile:  "process_classifier.json",
			wantField: "processes[0].default_packs[1]",
			wantID:    "missing_pack",
		},
		{
			name: "overlay extra ref unresolved",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocOverlays, func(doc map[string]any) {
					o := doc["overlays"].([]any)[1].(map[string]any)
					o["extra_refs"] = []any{"FDA-820"}
				})
			},
			wantFile:  "overlays.json",
			wantField: "overlays[1].extra_refs[0]",
			wantID:    "FDA-820",
		},
		{
			name: "manifest rule count mismatch",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocManifest, func(doc map[string]any) {
					doc["rule_count"] = 18
				})
			},
			wantFile:  "manifest.json",
			wantField: "rule_count",
		},
		{
			name: "manifest pack count mismatch",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocManifest, func(doc map[string]any) {
					doc["pack_counts"].(map[string]any)["sheet_metal_dfm"] = 5
				})
			},
			wantFile:  "manifest.json",
			wantField: "pack_counts.sheet_metal_dfm",
			wantID:    "sheet_metal_dfm",
		},
		{
			name: "unknown field rejected",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRoles, func(doc map[string]any) {
					doc["extra"] = true
				})
			},
			wantFile: "roles.json",
		},
		{
			name: "missing document",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "cost_model.json")))
			},
			wantFile: "cost_model.json",
		},
		{
			name: "struct validation names rule",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, DefaultSchemaDir, "rule_library.schema.json")))
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 2)["severity"] = "catastrophic"
				})
			},
			wantFile:  "rule_library.json",
			wantField: "rules[2].severity",
			wantRule:  "CORE-003",
		},
		{
			name: "schema violation",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocRuleLibrary, func(doc map[string]any) {
					ruleAt(doc, 4)["severity"] = "catastrophic"
				})
			},
			wantFile:  "rule_library.json",
			wantField: "rules[4].severity",
		},
		{
			name: "ui default role unknown",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocUIBindings, func(doc map[string]any) {
					doc["defaults"].(map[string]any)["role_id"] = "ceo"
				})
			},
			wantFile:  "ui_bindings.json",
			wantField: "defaults.role_id",
			wantID:    "ceo",
		},
		{
			name: "default material without rate",
			mutate: func(t *testing.T, dir string) {
				patchDoc(t, dir, DocCostModel, func(doc map[string]any) {
					doc["default_material"] = "unobtainium"
				})
			},
			wantFile:  "cost_model.json",
			wantField: "default_material",
			wantID:    "unobtainium",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := copyBundle(t)
			tt.mutate(t, dir)

			b, err := Load(dir)
			require.Error(t, err)
			assert.Nil(t, b)

			ve, ok := AsValidationError(err)
			require.True(t, ok, "want *ValidationError, got %T: %v", err, err)
			assert.Equal(t, tt.wantFile, ve.File)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, ve.Field)
			}
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, ve.ID)
				assert.Contains(t, err.Error(), tt.wantID)
			}
			if tt.wantRule != "" {
				assert.Equal(t, tt.wantRule, ve.RuleID)
				assert.Contains(t, err.Error(), tt.wantRule)
			}
		})
	}
}

func TestLoadYAMLDocument(t *testing.T) {
	dir := copyBundle(t)

	data, err := os.ReadFile(filepath.Join(dir, "roles.json"))
	require.NoError(t, err)
	var doc any
	require.NoError(t, json.Unmarshal(data, &doc))
	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "roles.json")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roles.yaml"), out, 0o644))

	b, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, b.Roles(), 4)

	// File names in errors follow the document's actual extension.
	patchRolesYAML := func() {
		raw, err := os.ReadFile(filepath.Join(dir, "roles.yaml"))
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, yaml.Unmarshal(raw, &m))
		r := m["roles"].([]any)[0].(map[string]any)
		r["emphasized_packs"] = []any{"nope"}
		raw, err = yaml.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "roles.yaml"), raw, 0o644))
	}
	patchRolesYAML()

	_, err = Load(dir)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "roles.yaml", ve.File)
	assert.Equal(t, "nope", ve.ID)
}

func TestLoadCustomSchemaDir(t *testing.T) {
	dir := copyBundle(t)
	schemas := t.TempDir()
	strict := `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {"bundle_id": {"const": "other-bundle"}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(schemas, "manifest.schema.json"), []byte(strict), 0o644))

	_, err := LoadWithOptions(dir, Options{SchemaDir: schemas})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "manifest.json", ve.File)
	assert.Equal(t, "bundle_id", ve.Field)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	dir := copyBundle(t)
	before, err := Load(dir)
	require.NoError(t, err)

	patchDoc(t, dir, DocReferences, func(doc map[string]any) {
		ref := doc["references"].([]any)[0].(map[string]any)
		ref["notes"] = "revised"
	})
	after, err := Load(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint(), after.Fingerprint())
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{File: "rule_library.json", Field: "rules[2].refs[0]", ID: "X", RuleID: "R-1", Message: "bad"}
	assert.Equal(t, "bundle: rule_library.json: rules[2].refs[0]: rule R-1: bad", err.Error())

	err = &ValidationError{File: "overlays.json", ID: "aero", Message: "bad"}
	assert.Equal(t, "bundle: overlays.json: id aero: bad", err.Error())
}

func TestPointerToField(t *testing.T) {
	assert.Equal(t, "rules[3].pack_id", pointerToField("/rules/3/pack_id"))
	assert.Equal(t, "", pointerToField(""))
	assert.Equal(t, "analysis_modes.full[0]", pointerToField("/analysis_modes/full/0"))
}
