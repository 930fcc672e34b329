package steam

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"rustactions/internal/logging"
	"rustactions/internal/services"
)

const (
	maskedSecret  = "********"
	outputTailLen = 40
)

var progressPattern = regexp.MustCompile(`Update state \(0x[0-9a-fA-F]+\) ([^,]+), progress: ([0-9.]+)`)

// Credentials are forwarded to steamcmd and never written to disk.
type Credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	GuardCode string `json:"guard_code,omitempty"`
}

// Progress reports a sampled steamcmd update state.
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// FetchResult describes the files a fetch left on disk.
type FetchResult struct {
	ItemsDir string
}

// Fetcher downloads authoritative item assets.
type Fetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// SteamCMD drives the steamcmd binary.
type SteamCMD struct {
	binary     string
	installDir string
	appID      int
	exec       Executor
	logger     *slog.Logger
	onProgress func(Progress)

	mu    sync.Mutex
	creds Credentials
}

// Option configures a SteamCMD.
type Option func(*SteamCMD)

// WithExecutor overrides the command runner.
func WithExecutor(exec Executor) Option {
	return func(s *SteamCMD) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithProgress registers a callback for sampled download progress.
func WithProgress(fn func(Progress)) Option {
	return func(s *SteamCMD) {
		s.onProgress = fn
	}
}

// NewSteamCMD constructs a steamcmd driver installing appID into installDir.
func NewSteamCMD(binary, installDir string, appID int, logger *slog.Logger, opts ...Option) *SteamCMD {
	s := &SteamCMD{
		binary:     strings.TrimSpace(binary),
		installDir: installDir,
		appID:      appID,
		exec:       commandExecutor{},
		logger:     logging.NewComponentLogger(logger, "steamcmd"),
	}
	if s.binary == "" {
		s.binary = "steamcmd"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binary returns the executable steamcmd resolves to.
func (s *SteamCMD) Binary() string {
	return s.binary
}

// InstallDir returns the game file download location.
func (s *SteamCMD) InstallDir() string {
	return s.installDir
}

// Remember keeps credentials in memory for later fetches.
func (s *SteamCMD) Remember(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// Forget drops in-memory credentials.
func (s *SteamCMD) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
}

func (s *SteamCMD) credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Login verifies credentials with steamcmd. On success they are remembered
// and steamcmd caches its own login token for later password-less runs.
func (s *SteamCMD) Login(ctx context.Context, creds Credentials) error {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return services.Validation("steam", "username and password are required")
	}
	args := append(loginArgs(creds), "+quit")
	if _, err := s.run(ctx, "login", args, creds); err != nil {
		return err
	}
	s.Remember(creds)
	return nil
}

// CachedLogin reports whether steamcmd can log username in without a
// password.
func (s *SteamCMD) CachedLogin(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}
	var lines []string
	err := s.exec.Run(ctx, s.binary, []string{"+login", username, "+quit"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil && isMissingBinary(err) {
		return false, services.Wrap(services.ErrSync, "steam", "check login", fmt.Sprintf("steamcmd binary not found: %s", s.binary), err)
	}
	return cachedLoginSucceeded(lines, username), nil
}

func cachedLoginSucceeded(lines []string, username string) bool {
	output := strings.Join(lines, "\n")
	if strings.Contains(output, "Logging in using cached credentials") {
		return true
	}
	if strings.Contains(output, "Cached credentials not found") ||
		strings.Contains(output, "password:") ||
		strings.Contains(output, "FAILED") {
		return false
	}
	return strings.Contains(output, fmt.Sprintf("Logging in user '%s'", username))
}

// Fetch downloads or validates the game files and locates the item
// definitions.
func (s *SteamCMD) Fetch(ctx context.Context) (FetchResult, error) {
	creds := s.credentials()
	if strings.TrimSpace(creds.Username) == "" {
		return FetchResult{}, services.Wrap(services.ErrSync, "steam", "fetch", "steam login required", nil)
	}
	if err := os.MkdirAll(s.installDir, 0o755); err != nil {
		return FetchResult{}, services.Wrap(services.ErrSync, "steam", "fetch", "create install directory", err)
	}

	args := []string{"+force_install_dir", s.installDir}
	args = append(args, loginArgs(creds)...)
	args = append(args, "+app_update", strconv.Itoa(s.appID), "validate", "+quit")
	if _, err := s.run(ctx, "fetch", args, creds); err != nil {
		return FetchResult{}, err
	}

	dir, ok := LocateItemsDir(s.installDir)
	if !ok {
		return FetchResult{}, services.Wrap(services.ErrSync, "steam", "fetch", fmt.Sprintf("item definitions not found under %s", s.installDir), nil)
	}
	return FetchResult{ItemsDir: dir}, nil
}

func loginArgs(creds Credentials) []string {
	args := []string{"+login", creds.Username}
	if creds.Password != "" {
		args = append(args, creds.Password)
		if code := strings.TrimSpace(creds.GuardCode); code != "" {
			args = append(args, code)
		}
	}
	return args
}

func (s *SteamCMD) run(ctx context.Context, op string, args []string, creds Credentials) ([]string, error) {
	s.logger.Info("running steamcmd",
		logging.String(logging.FieldEventType, "steamcmd_start"),
		logging.String("operation", op),
		logging.String("args", strings.Join(maskArgs(args, creds), " ")),
	)

	sampler := logging.NewProgressSampler(10)
	var (
		tail   []string
		failed string
	)
	err := s.exec.Run(ctx, s.binary, args, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		if len(tail) == outputTailLen {
			tail = tail[1:]
		}
		tail = append(tail, line)
		if failed == "" && strings.Contains(line, "FAILED") {
			failed = line
		}
		if p, ok := parseProgress(line); ok && sampler.ShouldLog(p.Percent, p.Stage) {
			s.logger.Info("steamcmd progress",
				logging.String("status", p.Stage),
				logging.Float64(logging.FieldProgressPercent, p.Percent),
			)
			if s.onProgress != nil {
				s.onProgress(p)
			}
		}
		s.logger.Debug("steamcmd output", logging.String("line", maskLine(line, creds)))
	})

	if err != nil || failed != "" {
		cause := failureCause(err, failed, s.binary)
		s.logger.Error("steamcmd failed",
			logging.String(logging.FieldEventType, "steamcmd_failed"),
			logging.String(logging.FieldErrorHint, cause),
			logging.String("operation", op),
			logging.String("output_tail", maskLine(strings.Join(tail, " | "), creds)),
			logging.Error(err),
		)
		return tail, services.Wrap(services.ErrSync, "steam", op, cause, err)
	}
	s.logger.Info("steamcmd finished", logging.String(logging.FieldEventType, "steamcmd_complete"), logging.String("operation", op))
	return tail, nil
}

func parseProgress(line string) (Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	percent, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Progress{}, false
	}
	return Progress{Stage: strings.TrimSpace(m[1]), Percent: percent, Message: line}, true
}

// failureCause turns a steamcmd failure into a single readable cause.
func failureCause(err error, failedLine, binary string) string {
	if err != nil && isMissingBinary(err) {
		return fmt.Sprintf("steamcmd binary not found: %s", binary)
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return "steamcmd timed out"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch code := exitErr.ExitCode(); code {
		case 5:
			return "steam error 5: app not available (account may not own Rust or Steam Guard blocked the login)"
		case 8:
			return "steam error 8: account has no subscription for this app"
		case 10:
			return "steam error 10: app not available in this region"
		default:
			if failedLine != "" {
				return failedLine
			}
			return fmt.Sprintf("steamcmd exited with code %d", code)
		}
	}
	if failedLine != "" {
		return failedLine
	}
	if err != nil {
		return err.Error()
	}
	return "steamcmd failed"
}

func isMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func maskArgs(args []string, creds Credentials) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if (creds.Password != "" && arg == creds.Password) || (creds.GuardCode != "" && arg == creds.GuardCode) {
			out[i] = maskedSecret
			continue
		}
		out[i] = arg
	}
	return out
}

func maskLine(line string, creds Credentials) string {
	if creds.Password != "" {
		line = strings.ReplaceAll(line, creds.Password, maskedSecret)
	}
	return line
}

// LocateItemsDir returns the first known Bundles/items location under dir.
func LocateItemsDir(dir string) (string, bool) {
	for _, rel := range []string{
		filepath.Join("Bundles", "items"),
		filepath.Join("RustClient_Data", "Bundles", "items"),
		filepath.Join("data", "rustclient", "Bundles", "items"),
	} {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
