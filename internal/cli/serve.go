package cli

import (
	"github.com/spf13/cobra"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entrypoint"
)

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return entrypoint.Run(cfg, version, logger)
		},
	}
}
