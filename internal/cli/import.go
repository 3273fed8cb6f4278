package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entrypoint"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
)

type importFlags struct {
	category   string
	enhance    bool
	commit     bool
	archiveDir string
}

// importReport is what the import command prints.
type importReport struct {
	importers.Outcome
	Run     *entities.ImportRun `json:"run,omitempty"`
	Archive string              `json:"archive,omitempty"`
}

func newImportCommand() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Run a card file through the import pipeline and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			category := entrypoint.DefaultCategory(cfg)
			if flags.category != "" {
				category, _ = entities.ParseCategory(flags.category)
			}

			var opts []importers.Option
			var storage *entrypoint.Storage
			if flags.commit {
				storage, err = entrypoint.OpenStorage(cfg, logger)
				if err != nil {
					return err
				}
				defer storage.Close()
				opts = append(opts, importers.WithAuditor(storage.Audit), importers.WithCardSaver(storage.Cards))
			}

			orchestrator, err := entrypoint.NewPipeline(cfg, logger, opts...)
			if err != nil {
				return err
			}

			var processOpts []importers.ProcessOption
			if cmd.Flags().Changed("enhance") {
				processOpts = append(processOpts, importers.WithAI(flags.enhance))
			}

			report, err := runImport(cmd.Context(), orchestrator, args[0], category, flags, processOpts, logger)
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.category, "category", "", "Target card type (defaults to IMPORT_DEFAULT_CATEGORY)")
	f.BoolVar(&flags.enhance, "enhance", false, "Run AI enhancement (defaults to IMPORT_AI_ENABLED)")
	f.BoolVar(&flags.commit, "commit", false, "Save the cards to the database when the import has no errors")
	f.StringVar(&flags.archiveDir, "archive-dir", "", "Also write the report as JSON into this directory")

	return cmd
}

func runImport(ctx context.Context, o *importers.Orchestrator, path string, category entities.Category, flags importFlags, opts []importers.ProcessOption, logger *zap.Logger) (*importReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := importers.NewSession("cli")
	out, err := o.ProcessFile(ctx, s, importers.RawFile{Name: filepath.Base(path), Reader: f}, category, opts...)
	if err != nil {
		return nil, err
	}
	report := &importReport{Outcome: out}

	var runErr error
	if len(out.Errors) > 0 {
		runErr = fmt.Errorf("import finished with %d errors", len(out.Errors))
	} else if flags.commit {
		report.Run, runErr = o.Commit(ctx, s)
	}

	if flags.archiveDir != "" {
		name, err := audit.NewArchive(flags.archiveDir).SaveJSON(report)
		if err != nil {
			logger.Warn("failed to archive import report", zap.Error(err))
		} else {
			report.Archive = filepath.Join(flags.archiveDir, name)
		}
	}

	return report, runErr
}
