package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "market-pricing",
	Short: "Fair price bands and offer scoring for a services marketplace",
	Long: "Estimates a fair price band for every job and scores provider offers against it, " +
		"using a language model when configured and deterministic heuristics otherwise.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
