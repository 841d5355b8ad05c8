package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var maxPages int
	var delayMillis int
	var maxBlockChars int
	var minBlockChars int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a site for processing by the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					SourceURL:     args[0],
					MaxPages:      maxPages,
					DelayMillis:   delayMillis,
					MaxBlockChars: maxBlockChars,
					MinBlockChars: minBlockChars,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submitted run %s\n", resp.RunID)
				fmt.Fprintf(out, "Workspace: %s\n", resp.WorkspaceDir)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Override the crawl page budget for this run")
	cmd.Flags().IntVar(&delayMillis, "delay-millis", 0, "Override the per-request crawl delay for this run")
	cmd.Flags().IntVar(&maxBlockChars, "max-block-chars", 0, "Override the maximum block size for this run")
	cmd.Flags().IntVar(&minBlockChars, "min-block-chars", 0, "Override the minimum block size for this run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}
