package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rustactions/internal/keybinds"
)

func newBindsCommand(ctx *commandContext) *cobra.Command {
	var showCrafts bool
	bindsCmd := &cobra.Command{
		Use:   "binds",
		Short: "Show the keys.cfg bind layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			binds, err := client.Binds(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, binds)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			s := binds.Summary
			for _, line := range renderSectionHeader("Binds", colorize) {
				fmt.Fprintln(out, line)
			}
			fileKind := statusOK
			if !s.FileExists {
				fileKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("keys.cfg", fileKind, s.Path, colorize))
			fmt.Fprintln(out, renderStatusLine("Read only", statusInfo, yesNo(s.ReadOnly), colorize))
			fmt.Fprintln(out, renderStatusLine("Craft items", statusInfo, strconv.Itoa(s.CraftItems), colorize))
			fmt.Fprintln(out, renderStatusLine("API commands", statusInfo, strconv.Itoa(s.APICommands), colorize))
			fmt.Fprintln(out, renderStatusLine("Dynamic binds", statusInfo,
				fmt.Sprintf("%d used, %d free", s.DynamicBinds, s.DynamicAvailable), colorize))
			fmt.Fprintln(out)

			if len(binds.DynamicBinds) > 0 {
				rows := make([][]string, 0, len(binds.DynamicBinds))
				for _, d := range binds.DynamicBinds {
					rows = append(rows, []string{strconv.Itoa(d.Slot), d.Combo, d.Kind, d.Value})
				}
				fmt.Fprint(out, renderTable([]string{"Slot", "Combo", "Kind", "Value"}, rows, []columnAlignment{alignRight}))
				fmt.Fprintln(out)
			}
			if showCrafts {
				rows := make([][]string, 0, len(binds.CraftBinds))
				for _, c := range binds.CraftBinds {
					rows = append(rows, []string{c.ItemID, c.Name, strconv.Itoa(c.Craft), strconv.Itoa(c.Cancel)})
				}
				fmt.Fprint(out, renderTable([]string{"Item", "Name", "Craft slot", "Cancel slot"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	bindsCmd.Flags().BoolVar(&showCrafts, "crafts", false, "Also list craft binds")

	resolveCmd := &cobra.Command{
		Use:   "resolve <action>",
		Short: "Print the key combination bound to an action",
		Long: "Resolve an API command name, craft:<item_id>, cancel:<item_id>, or slot:<n>\n" +
			"to the key combination written in keys.cfg.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			combo, err := client.ResolveBind(cmd.Context(), args[0])
			if err != nil {
				return daemonError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), combo)
			return nil
		},
	}
	bindsCmd.AddCommand(resolveCmd)

	ops := []struct {
		use, short, op string
	}{
		{"generate", "Rebuild craft binds from the item database", "generate"},
		{"regenerate", "Drop dynamic binds and rewrite keys.cfg", "regenerate"},
		{"reload", "Reload dynamic binds from keys.cfg", "reload"},
		{"clear-cache", "Forget cached bind resolutions", "clear-cache"},
	}
	for _, o := range ops {
		bindsCmd.AddCommand(&cobra.Command{
			Use:   o.use,
			Short: o.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				res, err := client.BindsOp(cmd.Context(), o.op)
				if err != nil {
					return daemonError(err)
				}
				return printResult(cmd, ctx, res)
			},
		})
	}

	apiCmd := &cobra.Command{
		Use:         "api",
		Short:       "List the fixed API command slots",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds := keybinds.APICommands()
			if ctx.jsonOutput() {
				return writeJSON(cmd, cmds)
			}
			rows := make([][]string, 0, len(cmds))
			for _, c := range cmds {
				rows = append(rows, []string{strconv.Itoa(c.Slot), c.Combo, c.Name, c.Command})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Slot", "Combo", "Name", "Command"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	bindsCmd.AddCommand(apiCmd)
	return bindsCmd
}
