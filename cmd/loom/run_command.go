package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loom/internal/logging"
	"loom/internal/pipeline"
	"loom/internal/runs"
)

// newRunCommand executes the full pipeline in-process without a daemon.
func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Crawl a site and generate its dataset in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			run, err := pipeline.Submit(signalCtx, cfg, store, runs.Submission{
				SourceURL: args[0],
				MaxPages:  maxPages,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s started\n", run.ID)

			runCfg := pipeline.RunConfig(cfg, run)
			executor := pipeline.NewExecutor(runCfg, store, logger, pipeline.NewStageSet(runCfg, logger))
			if err := executor.Execute(signalCtx, run); err != nil {
				return err
			}

			fmt.Fprintf(out, "Run %s complete\n", run.ID)
			fmt.Fprintf(out, "Artifacts: %s\n", run.WorkspaceDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Override the crawl page budget")
	return cmd
}
