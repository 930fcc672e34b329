package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders an action envelope: the message, or the raw JSON
// with --json.
func printResult(cmd *cobra.Command, ctx *commandContext, res map[string]any) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, res)
	}
	msg, _ := res["message"].(string)
	if msg == "" {
		msg = "ok"
	}
	out := cmd.OutOrStdout()
	if focus, _ := res["focus"].(string); focus != "" && focus != "game" {
		fmt.Fprintf(out, "%s (game focus: %s)\n", msg, focus)
		return nil
	}
	fmt.Fprintln(out, msg)
	return nil
}
