// Package grm contains the Cobra command tree for the grm CLI.
package grm

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/skaphos/grm/internal/config"
	"github.com/skaphos/grm/internal/engine"
	"github.com/skaphos/grm/internal/logging"
	"github.com/skaphos/grm/internal/registry"
	"github.com/skaphos/grm/internal/runner"
	"github.com/skaphos/grm/internal/vcs"
)

// skipSetupAnnotation marks commands that run without loading settings.
const skipSetupAnnotation = "grm/skip-setup"

var (
	// Global flags
	flagConfig      string
	flagQuiet       bool
	flagNoColor     bool
	flagLogLevel    string
	flagLogFormat   string
	flagGitBinary   string
	flagConcurrency int
	// exitCode tracks the highest severity observed during a command run.
	exitCode int
	// isTerminalFD is overridable in tests.
	isTerminalFD = term.IsTerminal
	// exitFunc is overridable in tests.
	exitFunc = os.Exit
	// newRunner is overridable in tests.
	newRunner = func() runner.Runner { return runner.NewExecRunner() }

	// Per-invocation state populated by the root pre-run.
	paths    config.Paths
	settings = config.DefaultSettings()
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "grm",
	Short:         "Track and synchronize a set of local git repositories",
	Long:          "grm keeps a named registry of local git repositories and runs status checks and fetch/pull/push syncs across them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// `NO_COLOR` is a standard opt-out and should behave like --no-color.
		if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
			flagNoColor = true
		}
		if _, skip := cmd.Annotations[skipSetupAnnotation]; skip {
			return nil
		}
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config directory, or registry file when ending in .yaml (env GRM_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "diagnostic log format: console, json")
	rootCmd.PersistentFlags().StringVar(&flagGitBinary, "git-binary", "", "git executable to run")
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "maximum parallel status probes")
}

func setup(cmd *cobra.Command) error {
	resolved, err := config.ResolvePaths(flagConfig)
	if err != nil {
		return err
	}
	loaded, err := config.LoadSettings(resolved.Settings, cmd.Flags())
	if err != nil {
		return err
	}
	built, err := logging.New(loaded.LogLevel, loaded.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	paths, settings, logger = resolved, loaded, built
	logger.Debug("settings loaded",
		zap.String("config_dir", paths.Dir),
		zap.String("registry", paths.RegistryPath(settings)))
	return nil
}

// Execute runs the root command.
func Execute() {
	exitFunc(ExecuteWithExitCode())
}

// ExecuteWithExitCode runs the root command and returns a shell-friendly exit
// code. SIGINT and SIGTERM cancel the running command.
func ExecuteWithExitCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return executeContext(ctx)
}

func executeContext(ctx context.Context) int {
	exitCode = 0
	paths = config.Paths{}
	settings = config.DefaultSettings()
	logger = zap.NewNop()
	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
		return 3
	}
	return exitCode
}

func raiseExitCode(code int) {
	// Keep the highest severity: 0 success, 1 warning, 2 error, 3 fatal.
	if code > exitCode {
		exitCode = code
	}
}

func infof(cmd *cobra.Command, format string, args ...any) {
	if flagQuiet {
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func shouldUseColorOutput(cmd *cobra.Command) bool {
	if flagNoColor {
		return false
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}

func openRegistry() *registry.Registry {
	return registry.Load(paths.RegistryPath(settings), registry.Options{Logger: logger})
}

func newEngine() (*engine.Engine, error) {
	backend, err := vcs.NewBackend(settings.VCS, settings.GitBinary)
	if err != nil {
		return nil, err
	}
	return engine.New(backend, newRunner(), logger, settings.StatusConcurrency), nil
}

// selectEntries resolves selectors against reg. Without selectors it returns
// the enabled entries.
func selectEntries(reg *registry.Registry, selectors []string) ([]registry.Entry, error) {
	if len(selectors) == 0 {
		return reg.Enabled(), nil
	}
	return reg.Select(selectors)
}
