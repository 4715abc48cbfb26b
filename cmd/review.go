package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/report"
)

var reviewCmd = &cobra.Command{
	Use:   "review <request.json|request.yaml|->",
	Short: "Evaluate execution plans and print the review",
	Long:  "Reads a review request (component, one or two execution plans and part facts), evaluates the rule packs, derives standards, estimates cost and prints the composed review as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var req model.ReviewRequest
		if err := readRequest(args[0], cmd.InOrStdin(), &req); err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("mode") {
			req.AnalysisMode, _ = flags.GetString("mode")
		}
		if flags.Changed("quantity") {
			req.Quantity, _ = flags.GetInt("quantity")
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.Review(ctx, req)
		if err != nil {
			return eris.Wrap(err, "review")
		}

		if path, _ := flags.GetString("xlsx"); path != "" {
			if err := writeWorkbookFile(path, resp); err != nil {
				return err
			}
			zap.L().Info("review: workbook written", zap.String("path", path))
		}
		return writeIndentedJSON(cmd.OutOrStdout(), resp)
	},
}

func writeWorkbookFile(path string, resp *model.ReviewResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := report.WriteXLSX(f, resp); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	reviewCmd.Flags().String("mode", "", "analysis mode (default from config or bundle)")
	reviewCmd.Flags().Int("quantity", 0, "production quantity for cost estimation")
	reviewCmd.Flags().String("xlsx", "", "also write the review as an Excel workbook to this path")
	rootCmd.AddCommand(reviewCmd)
}
