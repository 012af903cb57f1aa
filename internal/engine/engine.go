// Package engine orchestrates the per-repository command pipelines: sequential
// sync runs with live progress events, and concurrent read-only status probes.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skaphos/grm/internal/model"
	"github.com/skaphos/grm/internal/registry"
	"github.com/skaphos/grm/internal/runner"
	"github.com/skaphos/grm/internal/vcs"
)

// DefaultStatusConcurrency bounds concurrent status probes when no limit is set.
const DefaultStatusConcurrency = 8

// Engine runs VCS pipelines against registry entries. It holds no per-run
// state, so one Engine can serve many runs.
type Engine struct {
	backend           vcs.Backend
	runner            runner.Runner
	logger            *zap.Logger
	statusConcurrency int

	newRunID func() string
}

// New creates an Engine. Nil arguments fall back to the git backend, the
// os/exec runner, and a no-op logger.
func New(backend vcs.Backend, run runner.Runner, logger *zap.Logger, statusConcurrency int) *Engine {
	if backend == nil {
		backend = vcs.NewGit("")
	}
	if run == nil {
		run = runner.NewExecRunner()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statusConcurrency <= 0 {
		statusConcurrency = DefaultStatusConcurrency
	}
	return &Engine{
		backend:           backend,
		runner:            run,
		logger:            logger,
		statusConcurrency: statusConcurrency,
		newRunID:          uuid.NewString,
	}
}

// Backend returns the engine's VCS backend.
func (e *Engine) Backend() vcs.Backend { return e.backend }

// SyncOne runs the sync pipeline for a single entry. Events are delivered to
// handler, which may be nil, on the calling goroutine.
func (e *Engine) SyncOne(ctx context.Context, entry registry.Entry, handler model.EventHandler) model.SyncResult {
	return e.syncEntry(ctx, e.newRunID(), entry, emitter(handler))
}

// SyncAll runs the sync pipeline for each entry strictly in order. A failed
// repository never stops the batch. When ctx is cancelled the results gathered
// so far, including the interrupted repository, are returned with ctx.Err().
func (e *Engine) SyncAll(ctx context.Context, entries []registry.Entry, handler model.EventHandler) ([]model.SyncResult, error) {
	runID := e.newRunID()
	emit := emitter(handler)
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("sync run started", zap.Int("repos", len(entries)))

	results := make([]model.SyncResult, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			logger.Warn("sync run cancelled", zap.Int("completed", len(results)))
			return results, err
		}
		res := e.syncEntry(ctx, runID, entry, emit)
		results = append(results, res)
		if res.Interrupted {
			logger.Warn("sync run cancelled", zap.Int("completed", len(results)-1), zap.String("repo", entry.Name))
			return results, ctx.Err()
		}
	}

	failed := 0
	for _, res := range results {
		if !res.Succeeded {
			failed++
		}
	}
	logger.Info("sync run finished", zap.Int("repos", len(results)), zap.Int("failed", failed))
	return results, nil
}

func (e *Engine) syncEntry(ctx context.Context, runID string, entry registry.Entry, emit model.EventHandler) model.SyncResult {
	res := model.SyncResult{
		RunID:    runID,
		RepoName: entry.Name,
		Path:     entry.Path,
		Steps:    []model.StepResult{},
	}
	emit(model.Event{Kind: model.EventRepoStarted, RunID: runID, Repo: entry.Name})

	steps := e.backend.SyncSteps()
	for _, step := range steps {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}
		sr := e.runStep(ctx, runID, entry, step, emit)
		res.Steps = append(res.Steps, sr)
		if !sr.Success {
			res.Interrupted = ctx.Err() != nil && sr.ExitCode == runner.ExitInterrupted
			break
		}
	}
	res.Succeeded = !res.Interrupted && len(res.Steps) == len(steps) && res.FailedStep() == nil

	finished := res
	emit(model.Event{Kind: model.EventRepoFinished, RunID: runID, Repo: entry.Name, Success: res.Succeeded, Result: &finished})
	return res
}

func (e *Engine) runStep(ctx context.Context, runID string, entry registry.Entry, step vcs.Step, emit model.EventHandler) model.StepResult {
	command := step.Command()
	emit(model.Event{Kind: model.EventCommandStarted, RunID: runID, Repo: entry.Name, Label: step.Label, Command: command})
	started := time.Now()

	output := []string{}
	var final runner.Event
	for ev := range e.runner.Stream(ctx, entry.Path, step.Argv) {
		if ev.Done {
			final = ev
			continue
		}
		output = append(output, ev.Line)
		emit(model.Event{Kind: model.EventOutputLine, RunID: runID, Repo: entry.Name, Label: step.Label, Text: ev.Line})
	}
	if !final.Done {
		final = runner.Event{Done: true, ExitCode: runner.ExitInterrupted, Err: ctx.Err()}
	}

	sr := model.StepResult{
		Label:    step.Label,
		Command:  command,
		Output:   output,
		Success:  final.ExitCode == 0 && final.Err == nil,
		ExitCode: final.ExitCode,
	}
	if !sr.Success {
		sr.ErrorClass = vcs.Classify(output, final.ExitCode, final.Err)
		if final.Err != nil && len(output) == 0 {
			sr.Error = final.Err.Error()
		}
	}
	emit(model.Event{Kind: model.EventCommandFinished, RunID: runID, Repo: entry.Name, Label: step.Label, Command: command, Success: sr.Success})

	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("repo", entry.Name),
		zap.String("step", step.Label),
		zap.Int("exit_code", sr.ExitCode),
		zap.Duration("elapsed", time.Since(started)),
	}
	if sr.Success {
		e.logger.Debug("sync step succeeded", fields...)
	} else {
		e.logger.Warn("sync step failed", append(fields, zap.String("error_class", sr.ErrorClass))...)
	}
	return sr
}

// StatusOne runs the status command for entry. Spawn failures and non-zero
// exits are reported as not clean, with the reason in Output.
func (e *Engine) StatusOne(ctx context.Context, entry registry.Entry) model.StatusResult {
	step := e.backend.StatusStep()
	lines, final := runner.Collect(e.runner.Stream(ctx, entry.Path, step.Argv))
	res := model.StatusResult{
		Name:     entry.Name,
		Path:     entry.Path,
		Output:   strings.Join(lines, "\n"),
		ExitCode: final.ExitCode,
	}
	if !final.Done {
		res.ExitCode = runner.ExitInterrupted
	}
	if res.ExitCode != 0 || final.Err != nil || !final.Done {
		if res.Output == "" && final.Err != nil {
			res.Output = final.Err.Error()
		}
		e.logger.Debug("status probe failed", zap.String("repo", entry.Name), zap.Int("exit_code", res.ExitCode))
		return res
	}
	res.Clean = e.backend.IsClean(lines)
	return res
}

// StatusAll probes entries concurrently and returns results in entry order.
func (e *Engine) StatusAll(ctx context.Context, entries []registry.Entry) []model.StatusResult {
	results := make([]model.StatusResult, len(entries))
	var g errgroup.Group
	g.SetLimit(e.statusConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = e.StatusOne(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func emitter(handler model.EventHandler) model.EventHandler {
	if handler == nil {
		return func(model.Event) {}
	}
	return handler
}
