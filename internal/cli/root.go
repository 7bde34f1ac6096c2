// Package cli implements the churnd command-line interface: training,
// serving, one-off scoring and run history.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/churnml/churnd/internal/config"
)

// NewRootCmd assembles the churnd command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "churnd",
		Short:         "Train and serve a telco churn prediction model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "churnd.yaml", "path to churnd config file")

	cmd.AddCommand(NewTrainCmd(&configPath))
	cmd.AddCommand(NewServeCmd(&configPath))
	cmd.AddCommand(NewPredictCmd(&configPath))
	cmd.AddCommand(NewRunsCmd(&configPath))
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
