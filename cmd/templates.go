package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/review"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage report templates",
}

// -- templates list --

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundle and custom report templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		custom, err := env.Service.ListTemplates(ctx)
		if err != nil && !eris.Is(err, review.ErrStoreDisabled) {
			return eris.Wrap(err, "templates list")
		}

		builtin := make([]model.TemplateSpec, 0, len(env.Bundle.Templates()))
		for _, t := range env.Bundle.Templates() {
			builtin = append(builtin, t.Spec())
		}
		formatTemplatesList(cmd.OutOrStdout(), builtin, custom)
		return nil
	},
}

// -- templates save --

var templatesSaveCmd = &cobra.Command{
	Use:   "save <template.json|template.yaml|->",
	Short: "Create or replace a custom report template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var spec model.TemplateSpec
		if err := readRequest(args[0], cmd.InOrStdin(), &spec); err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		saved, err := env.Service.SaveTemplate(ctx, spec)
		if err != nil {
			return eris.Wrap(err, "templates save")
		}
		return writeIndentedJSON(cmd.OutOrStdout(), saved)
	},
}

// -- templates delete --

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a custom report template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.DeleteTemplate(ctx, args[0]); err != nil {
			return eris.Wrap(err, "templates delete")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesSaveCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
	rootCmd.AddCommand(templatesCmd)
}

// formatTemplatesList writes bundle templates followed by custom ones.
func formatTemplatesList(out io.Writer, builtin []model.TemplateSpec, custom []model.CustomTemplate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TEMPLATE\tLABEL\tSECTIONS\tOVERLAY\tSOURCE")
	_, _ = fmt.Fprintln(w, "--------\t-----\t--------\t-------\t------")
	for _, t := range builtin {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\tbundle\n", t.TemplateID, t.Label, len(t.EnabledSections()), t.OverlayRequired)
	}
	for _, c := range custom {
		_, _ = fmt.Fprintf(w, "%s%s\t%s\t%d\t%s\tcustom\n",
			review.CustomTemplatePrefix, c.ID, c.Template.Label, len(c.Template.EnabledSections()), c.Template.OverlayRequired)
	}
	_ = w.Flush()
}
