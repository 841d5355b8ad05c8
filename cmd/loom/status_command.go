package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
	"loom/internal/preflight"
	"loom/internal/runs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				if cfg, err := ctx.ensureConfig(); err == nil {
					for _, line := range renderSectionHeader("System", colorize) {
						fmt.Fprintln(stdout, line)
					}
					checks := preflight.RunAll(cmd.Context(), cfg, preflight.Options{IncludeLLM: checkLLM})
					for _, check := range checks {
						kind := statusError
						if check.Passed {
							kind = statusOK
						}
						fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
					}
					fmt.Fprintln(stdout)
				}

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if status.Running {
					fmt.Fprintln(stdout, renderStatusLine("State", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("State", statusWarn, "Not running", colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DBPath, colorize))
				if status.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Runs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildRunStatsRows(status.RunStats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No runs recorded")
					return nil
				}
				fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Also verify LLM API reachability")
	return cmd
}

// buildRunStatsRows orders counts by pipeline progression so the table
// reads created through failed instead of alphabetically.
func buildRunStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}

	order := []runs.Status{
		runs.StatusCreated,
		runs.StatusFetching,
		runs.StatusCleaning,
		runs.StatusSlicing,
		runs.StatusTagging,
		runs.StatusGenerating,
		runs.StatusComplete,
		runs.StatusFailed,
	}
	position := make(map[string]int, len(order))
	for i, status := range order {
		position[string(status)] = i
	}

	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, iKnown := position[keys[i]]
		pj, jKnown := position[keys[j]]
		if iKnown != jKnown {
			return iKnown
		}
		if iKnown {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		if stats[key] == 0 {
			continue
		}
		rows = append(rows, []string{key, strconv.Itoa(stats[key])})
	}
	return rows
}
