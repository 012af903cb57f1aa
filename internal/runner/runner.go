// SPDX-License-Identifier: MIT
// Package runner executes external commands and streams their output line by
// line, finishing with a single exit event.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	// ExitSpawnFailure is the synthetic exit code reported when a command
	// could not be started.
	ExitSpawnFailure = 127
	// ExitInterrupted is the exit code reported when the context was
	// cancelled before the command finished.
	ExitInterrupted = -1

	defaultWaitDelay = 2 * time.Second
	eventBufferSize  = 64
	maxLineBytes     = 1024 * 1024
)

// ErrEmptyCommand is wrapped in a SpawnError when argv is empty.
var ErrEmptyCommand = errors.New("empty command")

// SpawnError reports that a command never started, for example because the
// executable is missing or the working directory does not exist.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Event is either one output line or, when Done is set, the final exit status.
type Event struct {
	Line string
	Done bool
	// ExitCode and Err are only meaningful on the Done event.
	ExitCode int
	Err      error
}

// Runner streams the output of argv run in dir. The returned channel yields
// output lines followed by exactly one Done event, then closes. Consumers
// either drain the channel or cancel ctx; cancelling kills the process.
type Runner interface {
	Stream(ctx context.Context, dir string, argv []string) <-chan Event
}

// ExecRunner is the default Runner, backed by os/exec.
type ExecRunner struct {
	// WaitDelay bounds how long output pipes are held open after the process
	// exits or is killed. Defaults to two seconds.
	WaitDelay time.Duration
}

// NewExecRunner returns an ExecRunner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Stream starts argv in dir and returns its event channel. Stderr lines are
// merged into the same stream as stdout.
func (r *ExecRunner) Stream(ctx context.Context, dir string, argv []string) <-chan Event {
	out := make(chan Event, eventBufferSize)
	go r.run(ctx, dir, argv, out)
	return out
}

func (r *ExecRunner) run(ctx context.Context, dir string, argv []string, out chan<- Event) {
	defer close(out)
	if len(argv) == 0 {
		out <- Event{Done: true, ExitCode: ExitSpawnFailure, Err: &SpawnError{Err: ErrEmptyCommand}}
		return
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if strings.TrimSpace(dir) != "" {
		cmd.Dir = dir
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		if ctx.Err() != nil {
			out <- Event{Done: true, ExitCode: ExitInterrupted, Err: ctx.Err()}
			return
		}
		out <- Event{Done: true, ExitCode: ExitSpawnFailure, Err: &SpawnError{Command: strings.Join(argv, " "), Err: err}}
		return
	}

	lines := make(chan string)
	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(stdoutR, lines, &wg)
	go scanLines(stderrR, lines, &wg)
	go func() {
		wg.Wait()
		close(lines)
	}()

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		waitErr <- err
	}()

	// Lines keep flowing after cancellation so the copy goroutines can
	// finish; they are dropped instead of delivered.
	for line := range lines {
		if ctx.Err() != nil {
			continue
		}
		select {
		case out <- Event{Line: line}:
		case <-ctx.Done():
		}
	}

	final := exitEvent(ctx, cmd, <-waitErr)
	if ctx.Err() != nil {
		select {
		case out <- final:
		default:
		}
		return
	}
	out <- final
}

func exitEvent(ctx context.Context, cmd *exec.Cmd, err error) Event {
	if err == nil {
		return Event{Done: true}
	}
	if ctx.Err() != nil {
		return Event{Done: true, ExitCode: ExitInterrupted, Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Event{Done: true, ExitCode: exitErr.ExitCode(), Err: err}
	}
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		return Event{Done: true, ExitCode: cmd.ProcessState.ExitCode()}
	}
	return Event{Done: true, ExitCode: ExitInterrupted, Err: err}
}

func scanLines(r io.Reader, lines chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	// An overlong line stops scanning; keep consuming so the writer never blocks.
	_, _ = io.Copy(io.Discard, r)
}

// Collect drains events and returns the output lines and the final event.
func Collect(events <-chan Event) ([]string, Event) {
	lines := []string{}
	var final Event
	for ev := range events {
		if ev.Done {
			final = ev
			continue
		}
		lines = append(lines, ev.Line)
	}
	return lines, final
}
