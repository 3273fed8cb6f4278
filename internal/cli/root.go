// Package cli holds the command line interface.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/logging"
)

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "cardforge",
		Short:         "Import card decks from JSON or Markdown and review them with AI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	serve := newServeCommand(version)
	root.RunE = serve.RunE

	root.AddCommand(serve)
	root.AddCommand(newImportCommand())
	root.AddCommand(newDetectCommand())
	return root
}

// loadRuntime loads configuration from the environment and builds the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg := config.NewConfig()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
