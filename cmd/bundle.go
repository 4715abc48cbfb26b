package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Validate and inspect the rule bundle",
}

// -- bundle validate --

var bundleValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Load the bundle and report the first violation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cfg.Bundle.Dir = args[0]
		}
		b, err := loadBundle()
		if err != nil {
			if ve, ok := bundle.AsValidationError(err); ok {
				formatValidationError(cmd.ErrOrStderr(), ve)
			}
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bundle ok: %s\n", b.Version())
		return nil
	},
}

// -- bundle inspect --

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Summarize the packs, processes, roles and templates of the bundle",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cfg.Bundle.Dir = args[0]
		}
		b, err := loadBundle()
		if err != nil {
			return err
		}
		formatBundleSummary(cmd.OutOrStdout(), b)
		return nil
	},
}

func init() {
	bundleCmd.AddCommand(bundleValidateCmd)
	bundleCmd.AddCommand(bundleInspectCmd)
	rootCmd.AddCommand(bundleCmd)
}

func formatValidationError(out io.Writer, ve *bundle.ValidationError) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "File:\t%s\n", ve.File)
	if ve.Field != "" {
		_, _ = fmt.Fprintf(w, "Field:\t%s\n", ve.Field)
	}
	if ve.ID != "" {
		_, _ = fmt.Fprintf(w, "ID:\t%s\n", ve.ID)
	}
	if ve.RuleID != "" {
		_, _ = fmt.Fprintf(w, "Rule:\t%s\n", ve.RuleID)
	}
	_, _ = fmt.Fprintf(w, "Problem:\t%s\n", ve.Message)
	_ = w.Flush()
}

// formatBundleSummary writes a tabular overview of b to out.
func formatBundleSummary(out io.Writer, b *bundle.Bundle) {
	m := b.Manifest()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Bundle:\t%s\n", b.Version())
	_, _ = fmt.Fprintf(w, "Rules:\t%d\n", m.RuleCount)
	_, _ = fmt.Fprintf(w, "References:\t%d\n", len(b.References()))
	_, _ = fmt.Fprintf(w, "Analysis modes:\t%s\n", strings.Join(b.AnalysisModes(), ", "))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "PACK\tTITLE\tRULES")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----")
	for _, p := range b.Packs() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", p.PackID, p.Title, len(b.RulesInPack(p.PackID)))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "PROCESS\tLABEL\tDEFAULT_PACKS")
	_, _ = fmt.Fprintln(w, "-------\t-----\t-------------")
	for _, p := range b.Processes() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.ProcessID, p.Label, strings.Join(p.DefaultPacks, ","))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "ROLE\tLABEL\tEMPHASIS")
	_, _ = fmt.Fprintln(w, "----\t-----\t--------")
	for _, r := range b.Roles() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.RoleID, r.Label, strings.Join(r.EmphasizedPacks, ","))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "TEMPLATE\tLABEL\tSECTIONS\tOVERLAY")
	_, _ = fmt.Fprintln(w, "--------\t-----\t--------\t-------")
	for _, t := range b.Templates() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.TemplateID, t.Label, len(t.Sections), t.OverlayRequired)
	}
	_ = w.Flush()
}
