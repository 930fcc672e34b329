package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rustactions/internal/dispatch"
)

func newActionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the actions the daemon can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := client.Actions(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list.Actions))
			for _, a := range list.Actions {
				params := make([]string, 0, len(a.Params))
				for _, p := range a.Params {
					label := p.Name + ":" + p.Type
					if !p.Required {
						label = "[" + label + "]"
					}
					params = append(params, label)
				}
				rows = append(rows, []string{a.Name, strings.Join(params, " "), a.Help})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"Action", "Params", "Description"}, rows, nil))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Gestures: %s\n", strings.Join(list.Gestures, ", "))
			return nil
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <action> [key=value...]",
		Short: "Run an action with parameters",
		Example: `  rustactions run suicide
  rustactions run chat_global message="gg all"
  rustactions run set_master_volume volume=0.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := client.Actions(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			types := map[string]string{}
			for _, a := range list.Actions {
				if a.Name == args[0] {
					for _, p := range a.Params {
						types[p.Name] = p.Type
					}
				}
			}
			params, err := parseParams(args[1:], types)
			if err != nil {
				return err
			}
			res, err := client.Execute(cmd.Context(), args[0], params)
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
}

func newCraftCommand(ctx *commandContext) *cobra.Command {
	var cancel bool
	cmd := &cobra.Command{
		Use:   "craft <item name or id> [quantity]",
		Short: "Queue (or cancel) crafts of an item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("quantity must be a positive integer")
				}
				quantity = n
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			action := "craft_by_name"
			if cancel {
				action = "cancel_craft_by_name"
			}
			params := map[string]any{"item_name": args[0], "quantity": quantity}
			if _, lookupErr := client.Item(cmd.Context(), args[0]); lookupErr == nil {
				action = strings.Replace(action, "by_name", "by_id", 1)
				params = map[string]any{"item_id": args[0], "quantity": quantity}
			}
			res, err := client.Execute(cmd.Context(), action, params)
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
	cmd.Flags().BoolVar(&cancel, "cancel", false, "Cancel queued crafts instead")
	return cmd
}

func newTaskCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "task <anti_afk|continuous_stack> <on|off>",
		Short:     "Start or stop a periodic task",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"anti_afk", "continuous_stack"},
		RunE: func(cmd *cobra.Command, args []string) error {
			enable, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			res, err := client.Execute(cmd.Context(), args[0], map[string]any{"enable": enable})
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
}

// parseParams turns key=value pairs into action parameters. String
// parameters stay verbatim, json parameters decode when they can, and other
// values that parse as JSON scalars keep their type.
func parseParams(pairs []string, types map[string]string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q must be key=value", pair)
		}
		var decoded any
		err := json.Unmarshal([]byte(value), &decoded)
		switch {
		case types[key] == dispatch.TypeString:
			params[key] = value
			continue
		case types[key] == dispatch.TypeJSON && err == nil:
			params[key] = decoded
			continue
		case err == nil:
			switch decoded.(type) {
			case float64, bool, string:
				params[key] = decoded
				continue
			}
		}
		params[key] = value
	}
	return params, nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "start", "true", "1", "enable":
		return true, nil
	case "off", "stop", "false", "0", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}
