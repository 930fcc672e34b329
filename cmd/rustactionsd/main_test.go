package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandFlags(t *testing.T) {
	t.Setenv("RUSTACTIONS_CONFIG", "/etc/rustactions.toml")

	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--log-level", "debug", "--development"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if got, _ := cmd.Flags().GetString("config"); got != "/etc/rustactions.toml" {
		t.Fatalf("expected config from env, got %q", got)
	}
	if got, _ := cmd.Flags().GetString("log-level"); got != "debug" {
		t.Fatalf("unexpected log level %q", got)
	}
	if got, _ := cmd.Flags().GetBool("development"); !got {
		t.Fatal("expected development flag set")
	}

	cmd = newRootCommand()
	if err := cmd.ParseFlags([]string{"--config", "/tmp/other.toml"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if got, _ := cmd.Flags().GetString("config"); got != "/tmp/other.toml" {
		t.Fatalf("flag should override env, got %q", got)
	}
}

func TestRootCommandRejectsArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for positional argument")
	}

	var out bytes.Buffer
	cmd = newRootCommand()
	cmd.SetArgs([]string{"--help"})
	cmd.SetOut(&out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "--log-level") {
		t.Fatalf("usage should list flags, got %q", out.String())
	}
}

func TestRunReportsConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path})
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}
