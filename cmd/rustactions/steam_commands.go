package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rustactions/internal/steam"
)

const steamPasswordEnv = "RUSTACTIONS_STEAM_PASSWORD"

func newSteamCommand(ctx *commandContext) *cobra.Command {
	steamCmd := &cobra.Command{
		Use:   "steam",
		Short: "Steam login and item database sync",
	}
	steamCmd.AddCommand(newSteamLoginCommand(ctx))
	steamCmd.AddCommand(newSteamStatusCommand(ctx))
	steamCmd.AddCommand(newSteamResetCommand(ctx))

	simple := []struct {
		use, short, op string
	}{
		{"logout", "Forget the steam session", "logout"},
		{"sync", "Download the game files and rebuild the item database", "sync"},
	}
	for _, s := range simple {
		steamCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				res, err := client.Steam(cmd.Context(), s.op)
				if err != nil {
					return daemonError(err)
				}
				return printResult(cmd, ctx, res)
			},
		})
	}

	steamCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Check that steamcmd runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var res map[string]any
			if err := client.Do(cmd.Context(), http.MethodGet, "/steam/test-installation", nil, &res); err != nil {
				return daemonError(err)
			}
			if err := printResult(cmd, ctx, res); err != nil {
				return err
			}
			if ok, _ := res["success"].(bool); !ok {
				return errors.New("steamcmd installation check failed")
			}
			return nil
		},
	})
	return steamCmd
}

func newSteamLoginCommand(ctx *commandContext) *cobra.Command {
	var username, guard string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log steamcmd in",
		Long: "Log steamcmd in. The password is read from stdin with --password-stdin\n" +
			"or from $" + steamPasswordEnv + "; it is never written to disk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSteamPassword(cmd.InOrStdin(), passwordStdin)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			res, err := client.SteamLogin(cmd.Context(), username, password, guard)
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Steam account (defaults to steam.username)")
	cmd.Flags().StringVar(&guard, "guard-code", "", "Steam Guard code")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func readSteamPassword(in io.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errors.New("empty password on stdin")
		}
		return line, nil
	}
	if pw := os.Getenv(steamPasswordEnv); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("no password: use --password-stdin or set %s", steamPasswordEnv)
}

func newSteamStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show steam login and item database state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var res struct {
				Status steam.Status `json:"status"`
			}
			if err := client.Do(cmd.Context(), http.MethodGet, "/steam/status", nil, &res); err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res.Status)
			}
			st := res.Status
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Steam", colorize) {
				fmt.Fprintln(out, line)
			}
			loginKind, loginMsg := statusWarn, "Not logged in"
			if st.LoggedIn {
				loginKind, loginMsg = statusOK, st.Username
				if !st.LastLogin.IsZero() {
					loginMsg += " since " + st.LastLogin.Local().Format(time.DateTime)
				}
			}
			fmt.Fprintln(out, renderStatusLine("Login", loginKind, loginMsg, colorize))

			cmdKind, cmdMsg := statusError, "steamcmd not found"
			if st.SteamCMD.Available {
				cmdKind, cmdMsg = statusOK, st.SteamCMD.Command
			} else if st.SteamCMD.Detail != "" {
				cmdMsg = st.SteamCMD.Detail
			}
			fmt.Fprintln(out, renderStatusLine("steamcmd", cmdKind, cmdMsg, colorize))

			dbMsg := strconv.Itoa(st.ItemCount) + " items"
			if st.Source != "" {
				dbMsg += " from " + st.Source
			}
			if !st.LastUpdated.IsZero() {
				dbMsg += ", updated " + st.LastUpdated.Local().Format(time.DateTime)
			}
			fmt.Fprintln(out, renderStatusLine("Item database", statusInfo, dbMsg, colorize))
			if st.Syncing {
				fmt.Fprintln(out, renderStatusLine("Sync", statusInfo, "in progress", colorize))
			}
			return nil
		},
	}
}

func newSteamResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-database",
		Short: "Clear the item database and steam session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			res, err := client.Steam(cmd.Context(), "reset-database")
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
