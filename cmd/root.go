package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dfm",
	Short: "Manufacturability rule planning and review engine",
	Long:  "Plans manufacturing routes for a part, evaluates the rule bundle against extracted part facts, derives the standards used, estimates cost and composes role-aware reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
