package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studyspot-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "studyspot",
	Short: "Recommend study spots near Sinseol-dong and Dongdaemun",
	Long: "Matches study spots against travel limits and preferences. Strict mode keeps exact matches; " +
		"weighted mode scores every spot, explains each preference, and ranks the results.",
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
