package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rustactions/internal/apiclient"
	"rustactions/internal/daemonctl"
	"rustactions/internal/deps"
	"rustactions/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the rustactions daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonLaunchOptions(ctx), 10*time.Second)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the rustactions daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cmd.Context(), client, ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the rustactions daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(cmd.Context(), client, ctx.configValue(), exe, daemonLaunchOptions(ctx), 5*time.Second, 10*time.Second)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintf(stdout, "Daemon restarted (pid %d)\n", result.Start.PID)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, environment, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("API", statusKindFromCheck(snap.DaemonCheck, false), snap.DaemonCheck.Detail, colorize))
			if st := snap.Daemon; st != nil {
				fmt.Fprintln(stdout, renderStatusLine("Uptime", statusInfo, st.Uptime, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Input backend", statusInfo, st.InputBackend, colorize))
				focusKind := statusOK
				if st.Focus != "game" {
					focusKind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine("Game focus", focusKind, st.Focus, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Items", statusInfo, strconv.Itoa(st.ItemCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Craft binds", statusInfo, strconv.Itoa(st.Binds.CraftItems), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Dynamic binds", statusInfo,
					fmt.Sprintf("%d used, %d free", st.Binds.DynamicBinds, st.Binds.DynamicAvailable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("History", statusInfo, yesNo(st.HistoryEnabled), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Syncing", statusInfo, yesNo(st.Syncing), colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, check := range snap.Checks {
				fmt.Fprintln(stdout, renderStatusLine(check.Name, statusKindFromCheck(check, false), check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snap.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if st := snap.Daemon; st != nil && len(st.Tasks) > 0 {
				fmt.Fprintln(stdout)
				rows := make([][]string, 0, len(st.Tasks))
				for _, task := range st.Tasks {
					rows = append(rows, []string{task.Name, task.State, task.Interval, strconv.Itoa(task.Runs), task.LastError})
				}
				fmt.Fprint(stdout, renderTable([]string{"Task", "State", "Interval", "Runs", "Last error"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
				fmt.Fprintln(stdout)
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func statusKindFromCheck(r preflight.Result, optional bool) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
}

// daemonError adds a start hint when no daemon answered.
func daemonError(err error) error {
	if errors.Is(err, apiclient.ErrUnavailable) {
		return fmt.Errorf("%w; start it with `rustactions start`", err)
	}
	return err
}
