package cli

import (
	"github.com/spf13/cobra"

	"github.com/churnml/churnd/internal/artifact"
	"github.com/churnml/churnd/internal/server"
)

// NewServeCmd creates the 'serve' command.
func NewServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the current artifact over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			// Refusing to start on a missing or corrupted artifact beats
			// serving under a broken mapping.
			a, err := artifact.Load(cfg.Artifacts.Dir)
			if err != nil {
				return err
			}
			listen := cfg.Server.Addr
			if addr != "" {
				listen = addr
			}
			return server.New(cfg, a).Start(listen)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}
