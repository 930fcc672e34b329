package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded actions",
	}

	var action string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent actions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.History(cmd.Context(), action, limit)
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No recorded actions")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				outcome := e.Message
				if !e.Success {
					outcome = "failed: " + e.Error
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.DateTime),
					e.Action,
					strconv.FormatInt(e.DurationMS, 10) + "ms",
					e.Focus,
					outcome,
				})
			}
			fmt.Fprint(out, renderTable([]string{"Time", "Action", "Took", "Focus", "Result"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			fmt.Fprintln(out)
			return nil
		},
	}
	listCmd.Flags().StringVar(&action, "action", "", "Only entries for this action")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	historyCmd.AddCommand(listCmd)

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			n, err := client.ClearHistory(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			return nil
		},
	})
	return historyCmd
}
