package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Inspect saved review history",
	Long:  "Commands for listing, viewing, and exporting persisted reviews.",
}

// -- reviews list --

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reviews, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		component, _ := cmd.Flags().GetString("component")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := env.Service.ListReviews(ctx, store.ReviewFilter{
			ComponentRef: component,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return eris.Wrap(err, "reviews list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No reviews found.")
			return nil
		}

		formatReviewsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- reviews show --

var reviewsShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show a saved review as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.GetReview(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reviews show")
		}
		return writeIndentedJSON(cmd.OutOrStdout(), run)
	},
}

// -- reviews export --

var reviewsExportCmd = &cobra.Command{
	Use:   "export <review-id>",
	Short: "Write a saved review as an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.GetReview(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reviews export")
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = run.ID + ".xlsx"
		}
		if err := writeWorkbookFile(out, run.Result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
		return nil
	},
}

func init() {
	reviewsListCmd.Flags().String("component", "", "filter by component reference")
	reviewsListCmd.Flags().Int("limit", 50, "max number of reviews to display")
	reviewsListCmd.Flags().Int("offset", 0, "number of reviews to skip")

	reviewsExportCmd.Flags().String("out", "", "output path (default <review-id>.xlsx)")

	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	reviewsCmd.AddCommand(reviewsExportCmd)
	rootCmd.AddCommand(reviewsCmd)
}

// formatReviewsList writes a tabular list of reviews to w.
func formatReviewsList(out io.Writer, runs []model.ReviewRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPONENT\tANALYSIS_RUN\tBUNDLE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---------\t------------\t------\t-------")

	for _, r := range runs {
		component := r.ComponentRef
		if len(component) > 30 {
			component = component[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			component,
			r.AnalysisRunID,
			r.BundleVersion,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
