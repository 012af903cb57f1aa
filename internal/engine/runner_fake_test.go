package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/skaphos/grm/internal/runner"
)

type fakeResponse struct {
	lines []string
	code  int
	err   error
}

// fakeRunner answers commands keyed by "dir:argv" and records every call.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
}

func newFakeRunner(responses map[string]fakeResponse) *fakeRunner {
	return &fakeRunner{responses: responses}
}

func (f *fakeRunner) Stream(_ context.Context, dir string, argv []string) <-chan runner.Event {
	key := dir + ":" + strings.Join(argv, " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	resp, ok := f.responses[key]
	f.mu.Unlock()
	if !ok {
		resp = fakeResponse{code: runner.ExitSpawnFailure, err: &runner.SpawnError{Command: key, Err: errors.New("unexpected call")}}
	} else if resp.code != 0 && resp.err == nil {
		resp.err = errors.New("exit status")
	}

	out := make(chan runner.Event, len(resp.lines)+1)
	for _, line := range resp.lines {
		out <- runner.Event{Line: line}
	}
	out <- runner.Event{Done: true, ExitCode: resp.code, Err: resp.err}
	close(out)
	return out
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// blockingRunner emits one line and then blocks until ctx is cancelled.
type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Stream(ctx context.Context, _ string, _ []string) <-chan runner.Event {
	out := make(chan runner.Event, 2)
	go func() {
		defer close(out)
		out <- runner.Event{Line: "working"}
		select {
		case b.started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		out <- runner.Event{Done: true, ExitCode: runner.ExitInterrupted, Err: ctx.Err()}
	}()
	return out
}
