package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "bundle", "plan", "review", "reviews", "templates"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "dfm", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPlanCommand_Flags(t *testing.T) {
	for _, name := range []string{"process", "profile", "overlay", "role", "template", "run-both"} {
		assert.NotNil(t, planCmd.Flags().Lookup(name), "plan command should have --%s flag", name)
	}
}

func TestReviewsListCommand_Flags(t *testing.T) {
	flag := reviewsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

// setupEnv points the CLI at the repo bundle and a temp store, from an empty
// working directory so no config.yaml is picked up.
func setupEnv(t *testing.T, driver string) string {
	t.Helper()
	bundleDir, err := filepath.Abs("../configs/bundle")
	require.NoError(t, err)

	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	t.Setenv("DFM_BUNDLE_DIR", bundleDir)
	t.Setenv("DFM_STORE_DRIVER", driver)
	t.Setenv("DFM_STORE_DATABASE_URL", filepath.Join(dir, "cli.db"))
	t.Setenv("DFM_LOG_LEVEL", "error")
	return dir
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	var data []byte
	switch b := v.(type) {
	case string:
		data = []byte(b)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

var mismatchPlanRequest = map[string]any{
	"extracted_part_facts":      map[string]any{"bends_present": true, "sheet_thickness_mm": 0.8},
	"selected_process_override": "cnc_milling",
	"run_both_if_mismatch":      true,
}

func TestBundleValidate(t *testing.T) {
	setupEnv(t, "none")

	out, err := execute(t, "", "bundle", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "bundle ok:")
}

func TestBundleValidate_MissingDir(t *testing.T) {
	dir := setupEnv(t, "none")

	_, err := execute(t, "", "bundle", "validate", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document missing")
}

func TestBundleInspect(t *testing.T) {
	setupEnv(t, "none")

	out, err := execute(t, "", "bundle", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "PACK")
	assert.Contains(t, out, "PROCESS")
	assert.Contains(t, out, "sheet_metal")
	assert.Contains(t, out, "TEMPLATE")
}

func TestPlanCommand_Mismatch(t *testing.T) {
	dir := setupEnv(t, "none")
	path := writeFile(t, dir, "plan.json", mismatchPlanRequest)

	out, err := execute(t, "", "plan", path)
	require.NoError(t, err)

	var resp model.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.True(t, resp.Mismatch.HasMismatch)
	assert.Len(t, resp.ExecutionPlans, 2)
	assert.NotEmpty(t, resp.BundleVersion)
}

func TestPlanCommand_FlagsOverrideFile(t *testing.T) {
	dir := setupEnv(t, "none")
	path := writeFile(t, dir, "plan.json", mismatchPlanRequest)

	out, err := execute(t, "", "plan", path, "--run-both=false")
	require.NoError(t, err)

	var resp model.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Len(t, resp.ExecutionPlans, 1)
}

func TestPlanCommand_Stdin(t *testing.T) {
	setupEnv(t, "none")
	data, err := json.Marshal(mismatchPlanRequest)
	require.NoError(t, err)

	out, err := execute(t, string(data), "plan", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "execution_plans")
}

func TestPlanCommand_RejectsManualStandards(t *testing.T) {
	dir := setupEnv(t, "none")
	path := writeFile(t, dir, "plan.json", map[string]any{
		"extracted_part_facts": map[string]any{},
		"standards":            []string{"ISO_2768"},
	})

	_, err := execute(t, "", "plan", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derived automatically")
}

func TestReviewFlow(t *testing.T) {
	dir := setupEnv(t, "sqlite")

	planPath := writeFile(t, dir, "plan.json", mismatchPlanRequest)
	out, err := execute(t, "", "plan", planPath)
	require.NoError(t, err)
	var planResp model.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &planResp), out)

	reviewPath := writeFile(t, dir, "review.json", map[string]any{
		"component_ref":        "bracket-01",
		"execution_plans":      planResp.ExecutionPlans,
		"extracted_part_facts": mismatchPlanRequest["extracted_part_facts"],
	})
	xlsxPath := filepath.Join(dir, "review.xlsx")

	out, err = execute(t, "", "review", reviewPath, "--quantity", "25", "--xlsx", xlsxPath)
	require.NoError(t, err)

	var resp model.ReviewResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "bracket-01", resp.ComponentRef)
	assert.Len(t, resp.Routes, 2)
	assert.NotNil(t, resp.CostCompareRoutes)
	assert.NotEmpty(t, resp.ReviewID)
	assert.FileExists(t, xlsxPath)

	out, err = execute(t, "", "reviews", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bracket-01")
	assert.Contains(t, out, truncateID(resp.ReviewID))

	out, err = execute(t, "", "reviews", "show", resp.ReviewID)
	require.NoError(t, err)
	assert.Contains(t, out, resp.ReviewID)

	exportPath := filepath.Join(dir, "export.xlsx")
	_, err = execute(t, "", "reviews", "export", resp.ReviewID, "--out", exportPath)
	require.NoError(t, err)
	assert.FileExists(t, exportPath)
}

func TestReviewCommand_MissingComponent(t *testing.T) {
	dir := setupEnv(t, "none")
	path := writeFile(t, dir, "review.json", map[string]any{
		"execution_plans":      []any{},
		"extracted_part_facts": map[string]any{},
	})

	_, err := execute(t, "", "review", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component_ref")
}

func TestTemplatesCommands(t *testing.T) {
	dir := setupEnv(t, "sqlite")
	path := writeFile(t, dir, "tmpl.yaml", `
template_id: quick
label: Quick look
sections:
  - section_id: summary
    title: Summary
    enabled: true
  - section_id: findings
    title: Findings
    enabled: true
`)

	out, err := execute(t, "", "templates", "save", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "quick"`)

	out, err = execute(t, "", "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "custom:quick")
	assert.Contains(t, out, "bundle")

	_, err = execute(t, "", "templates", "delete", "quick")
	require.NoError(t, err)

	out, err = execute(t, "", "templates", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "custom:quick")
}

func TestTemplatesList_NoStore(t *testing.T) {
	setupEnv(t, "none")

	out, err := execute(t, "", "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "TEMPLATE")
	assert.NotContains(t, out, "custom")
}

func TestReviewsList_NoStore(t *testing.T) {
	setupEnv(t, "none")

	_, err := execute(t, "", "reviews", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence disabled")
}

func TestReadRequest_UnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "req.json", `{"extracted_part_facts": {}, "bogus": 1}`)

	var req model.PlanRequest
	err := readRequest(path, nil, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestReadRequest_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "req.yml", "extracted_part_facts:\n  bends_present: true\nselected_role: quality\n")

	var req model.PlanRequest
	require.NoError(t, readRequest(path, nil, &req))
	assert.Equal(t, "quality", req.SelectedRole)
	assert.True(t, req.ExtractedPartFacts.Truthy("bends_present"))
}

func TestReadRequest_MissingFile(t *testing.T) {
	var req model.PlanRequest
	err := readRequest(filepath.Join(t.TempDir(), "none.json"), nil, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read request")
}
