package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan <request.json|request.yaml|->",
	Short: "Classify a part and print its execution plans",
	Long:  "Reads a plan request (extracted part facts plus optional selections), runs process classification and mismatch detection, and prints the resulting execution plans as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var req model.PlanRequest
		if err := readRequest(args[0], cmd.InOrStdin(), &req); err != nil {
			return err
		}
		applyPlanFlags(cmd, &req)

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.Plan(ctx, req)
		if err != nil {
			return eris.Wrap(err, "plan")
		}
		return writeIndentedJSON(cmd.OutOrStdout(), resp)
	},
}

// applyPlanFlags lets explicitly set flags override the request file.
func applyPlanFlags(cmd *cobra.Command, req *model.PlanRequest) {
	flags := cmd.Flags()
	if flags.Changed("process") {
		req.SelectedProcessOverride, _ = flags.GetString("process")
	}
	if flags.Changed("profile") {
		req.SelectedProfile, _ = flags.GetString("profile")
	}
	if flags.Changed("overlay") {
		req.SelectedOverlay, _ = flags.GetString("overlay")
	}
	if flags.Changed("role") {
		req.SelectedRole, _ = flags.GetString("role")
	}
	if flags.Changed("template") {
		req.SelectedTemplate, _ = flags.GetString("template")
	}
	if flags.Changed("run-both") {
		req.RunBothIfMismatch, _ = flags.GetBool("run-both")
	}
}

func init() {
	planCmd.Flags().String("process", "", "process override (skips the profile)")
	planCmd.Flags().String("profile", "", "shop profile id")
	planCmd.Flags().String("overlay", "", "industry overlay id")
	planCmd.Flags().String("role", "", "reviewer role id")
	planCmd.Flags().String("template", "", "report template id (custom:<id> for saved templates)")
	planCmd.Flags().Bool("run-both", false, "plan both routes when the selection disagrees with the classifier")
	rootCmd.AddCommand(planCmd)
}
