package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/churnml/churnd/internal/tracking"
)

// NewRunsCmd creates the 'runs' command listing recent training runs.
func NewRunsCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent training runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := tracking.Open(cfg.Tracking.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no training runs recorded")
				return nil
			}
			fmt.Printf("%-36s  %-20s  %-18s  %-8s  %s\n", "RUN", "TRAINED", "SELECTED", "ROC-AUC", "ARTIFACT")
			for _, r := range runs {
				fmt.Printf("%-36s  %-20s  %-18s  %-8.4f  %s\n",
					r.RunID, r.CreatedAt.Format(time.DateTime), r.Selected, r.ROCAUC, r.ArtifactVersion)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
