package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunList(listStatuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						run.ID,
						run.SourceURL,
						run.Status,
						run.ProgressStage,
						run.CreatedAt.Local().Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]string{"ID", "Source", "Status", "Stage", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by run status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Describe a single run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunDescribe(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Run)
				}
				printRunDetails(cmd, resp.Run)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func printRunDetails(cmd *cobra.Command, run ipc.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Source:     %s\n", run.SourceURL)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	if run.ProgressStage != "" {
		progress := run.ProgressStage
		if run.ProgressMessage != "" {
			progress += " - " + run.ProgressMessage
		}
		fmt.Fprintf(out, "Progress:   %s\n", progress)
	}
	if run.FailedStage != "" {
		fmt.Fprintf(out, "Failed at:  %s\n", run.FailedStage)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
	}
	fmt.Fprintf(out, "Workspace:  %s\n", run.WorkspaceDir)
	fmt.Fprintf(out, "Created:    %s\n", run.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Updated:    %s\n", run.UpdatedAt.Local().Format(time.RFC3339))
	if len(run.StageResults) > 0 {
		fmt.Fprintln(out, "Stages:")
		for _, outcome := range run.StageResults {
			line := fmt.Sprintf("  %-12s %-9s %s", outcome.Stage, stageOutcomeLabel(outcome), outcome.Elapsed.Round(time.Millisecond))
			if outcome.Error != "" {
				line += "  " + outcome.Error
			}
			fmt.Fprintln(out, line)
		}
	}
	if run.StatsJSON != "" {
		fmt.Fprintf(out, "Stats:      %s\n", run.StatsJSON)
	}
}

func stageOutcomeLabel(outcome ipc.StageOutcome) string {
	if outcome.Success {
		return "ok"
	}
	return "failed"
}
