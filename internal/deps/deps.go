package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Requirement defines an external dependency rustactions relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ResolveSteamCMD reports the steamcmd executable a sync will run.
//
// An explicit path wins. Otherwise the install directory's parent (where
// steamcmd is usually unpacked next to the game files) is searched before
// PATH, covering both "steamcmd" and the "steamcmd.sh" wrapper.
func ResolveSteamCMD(configured, installDir string) Status {
	result := Status{
		Name:        "SteamCMD",
		Description: "Used to download item data and images",
		Optional:    true,
	}

	if configured = strings.TrimSpace(configured); configured != "" && configured != "steamcmd" {
		result.Command = configured
		if info, err := os.Stat(configured); err == nil && isExecutable(info) {
			result.Available = true
			return result
		}
		if resolved, err := exec.LookPath(configured); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("binary %q not found", configured)
		return result
	}

	for _, candidate := range sidecarCandidates(installDir) {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}
	for _, name := range []string{executableName("steamcmd"), "steamcmd.sh"} {
		if resolved, err := exec.LookPath(name); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
	}

	result.Command = "steamcmd"
	result.Detail = `binary "steamcmd" not found`
	return result
}

func sidecarCandidates(installDir string) []string {
	installDir = strings.TrimSpace(installDir)
	if installDir == "" {
		return nil
	}
	var out []string
	for _, dir := range []string{filepath.Dir(installDir), installDir} {
		out = append(out, filepath.Join(dir, executableName("steamcmd")))
		if runtime.GOOS != "windows" {
			out = append(out, filepath.Join(dir, "steamcmd.sh"))
		}
	}
	return out
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
