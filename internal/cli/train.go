package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/churnml/churnd/internal/dataset"
	"github.com/churnml/churnd/internal/tracking"
	"github.com/churnml/churnd/internal/training"
)

// NewTrainCmd creates the 'train' command.
func NewTrainCmd(configPath *string) *cobra.Command {
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the feature transformer and candidate models, persist the best as an artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if datasetPath != "" {
				cfg.Training.Dataset = datasetPath
			}
			if cfg.Training.Dataset == "" {
				return fmt.Errorf("no dataset configured; set training.dataset or pass --dataset")
			}

			s, err := cfg.BuildSchema()
			if err != nil {
				return err
			}
			data, err := dataset.Load(cfg.Training.Dataset, s, cfg.Training.Target)
			if err != nil {
				return err
			}

			store, err := tracking.Open(cfg.Tracking.DB)
			if err != nil {
				// Tracking is best-effort; training must still produce an artifact.
				log.Printf("train: run tracking unavailable: %v", err)
				store = nil
			} else {
				defer store.Close()
			}

			a, err := training.Run(cfg, s, data, store)
			if err != nil {
				return err
			}
			fmt.Print(training.Describe(a))
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "labeled CSV path (overrides training.dataset)")
	return cmd
}
