package preflight

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"rustactions/internal/config"
	"rustactions/internal/deps"
	"rustactions/internal/input"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the startup checks for cfg. Binary checks are reported
// through CheckSystemDeps and are not repeated here.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("keys.cfg directory", filepath.Dir(cfg.Paths.KeysCfg)),
		CheckBindAddress(ctx, cfg.Paths.APIBind),
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.HistoryPath())))
	}
	return results
}

// CheckSystemDeps evaluates the external binaries for cfg. steamcmd is
// optional because syncing is the only feature that needs it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var results []deps.Status
	backend := strings.ToLower(strings.TrimSpace(cfg.Input.Backend))
	if runtime.GOOS != "windows" && (backend == "" || backend == input.BackendAuto || backend == input.BackendXdotool) {
		results = append(results, deps.CheckBinaries([]deps.Requirement{{
			Name:        "xdotool",
			Command:     "xdotool",
			Description: "Required to send key presses to the game window",
			Optional:    backend != input.BackendXdotool,
		}})...)
	}
	results = append(results, deps.ResolveSteamCMD(cfg.Steam.SteamCMDPath, cfg.Steam.InstallDir))
	return results
}
