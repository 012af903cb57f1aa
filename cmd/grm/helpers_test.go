package grm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skaphos/grm/internal/runner"
)

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// runCLI executes the command tree with fresh flag state and captured output.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	resetFlags(rootCmd)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	code := executeContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), code: code}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// testEnv isolates a config directory and fakes the command runner.
type testEnv struct {
	configDir string
	root      string
	runner    *fakeRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRM_CONFIG", filepath.Join(root, "config"))
	t.Setenv("NO_COLOR", "")
	for _, key := range []string{"GRM_LOG_LEVEL", "GRM_LOG_FORMAT", "GRM_GIT_BINARY", "GRM_STATUS_CONCURRENCY", "GRM_REGISTRY_PATH", "GRM_VCS"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	fake := &fakeRunner{responses: map[string]fakeResponse{}}
	prev := newRunner
	newRunner = func() runner.Runner { return fake }
	t.Cleanup(func() { newRunner = prev })
	return &testEnv{configDir: filepath.Join(root, "config"), root: root, runner: fake}
}

// repo creates a directory under the env root and returns its path.
func (e *testEnv) repo(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(e.root, "repos", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func (e *testEnv) respond(dir string, argv string, code int, lines ...string) {
	e.runner.mu.Lock()
	defer e.runner.mu.Unlock()
	e.runner.responses[dir+":"+argv] = fakeResponse{lines: lines, code: code}
}

type fakeResponse struct {
	lines []string
	code  int
}

type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
}

func (f *fakeRunner) Stream(_ context.Context, dir string, argv []string) <-chan runner.Event {
	f.mu.Lock()
	resp, ok := f.responses[dir+":"+strings.Join(argv, " ")]
	f.mu.Unlock()
	out := make(chan runner.Event, len(resp.lines)+1)
	defer close(out)
	if !ok {
		out <- runner.Event{Done: true, ExitCode: runner.ExitSpawnFailure, Err: &runner.SpawnError{Command: strings.Join(argv, " "), Err: errors.New("not scripted")}}
		return out
	}
	for _, line := range resp.lines {
		out <- runner.Event{Line: line}
	}
	var err error
	if resp.code != 0 {
		err = errors.New("exit status")
	}
	out <- runner.Event{Done: true, ExitCode: resp.code, Err: err}
	return out
}
