package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/churnml/churnd/internal/artifact"
	"github.com/churnml/churnd/internal/schema"
)

// NewPredictCmd creates the 'predict' command: score a single record from a
// JSON file (or stdin) against the current artifact, without a server.
func NewPredictCmd(configPath *string) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one record against the current artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := artifact.Load(cfg.Artifacts.Dir)
			if err != nil {
				return err
			}

			var data []byte
			if input == "" || input == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(input)
			}
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}

			var req struct {
				CustomerID string           `json:"customer_id"`
				Record     schema.RawRecord `json:"record"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if len(req.Record) == 0 {
				// Allow a bare field map as well as the request envelope.
				if err := json.Unmarshal(data, &req.Record); err != nil {
					return fmt.Errorf("decode record: %w", err)
				}
			}

			pred, err := a.Score(req.Record, req.CustomerID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(pred, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON file with the record to score ('-' for stdin)")
	return cmd
}
