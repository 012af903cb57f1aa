// Package model defines the result and event types shared by the engine and
// its callers.
package model

// StepResult is the outcome of one pipeline command for one repository.
type StepResult struct {
	// Label is the pipeline step name (for example, "fetch").
	Label string `json:"label" yaml:"label"`
	// Command is the rendered command line that was run.
	Command string `json:"command" yaml:"command"`
	// Output holds stdout and stderr lines in arrival order.
	Output []string `json:"output" yaml:"output"`
	// Success is true when the command exited with status zero.
	Success bool `json:"success" yaml:"success"`
	// ExitCode is the process exit status, 127 for spawn failures and -1 when
	// the command was interrupted.
	ExitCode int `json:"exit_code" yaml:"exit_code"`
	// ErrorClass is a coarse failure category for unsuccessful steps.
	ErrorClass string `json:"error_class,omitempty" yaml:"error_class,omitempty"`
	// Error describes a failure that produced no output, such as a spawn error.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SyncResult is the outcome of one repository's sync pipeline. It is never
// persisted.
type SyncResult struct {
	// RunID correlates the result with the events of the same run.
	RunID string `json:"run_id" yaml:"run_id"`
	// RepoName is the registry name of the repository.
	RepoName string `json:"repo" yaml:"repo"`
	// Path is the working directory the pipeline ran in.
	Path string `json:"path" yaml:"path"`
	// Steps lists executed steps in order. Skipped steps are absent.
	Steps []StepResult `json:"steps" yaml:"steps"`
	// Succeeded is true only when every pipeline step succeeded.
	Succeeded bool `json:"succeeded" yaml:"succeeded"`
	// Interrupted is true when cancellation stopped the pipeline early.
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// FailedStep returns the step that ended the pipeline, or nil on success.
func (r SyncResult) FailedStep() *StepResult {
	for i := range r.Steps {
		if !r.Steps[i].Success {
			return &r.Steps[i]
		}
	}
	return nil
}

// StatusResult is the outcome of a status probe for one repository.
type StatusResult struct {
	// Name is the registry name of the repository.
	Name string `json:"repo" yaml:"repo"`
	// Path is the working directory the probe ran in.
	Path string `json:"path" yaml:"path"`
	// Clean is true when the working tree has nothing to commit.
	Clean bool `json:"clean" yaml:"clean"`
	// Output is the raw status text, or the failure reason.
	Output string `json:"output" yaml:"output"`
	// ExitCode is the status command's exit code.
	ExitCode int `json:"exit_code" yaml:"exit_code"`
}

// EventKind enumerates the progress events emitted during a sync run.
type EventKind string

const (
	EventRepoStarted     EventKind = "repo_started"
	EventCommandStarted  EventKind = "command_started"
	EventOutputLine      EventKind = "output_line"
	EventCommandFinished EventKind = "command_finished"
	EventRepoFinished    EventKind = "repo_finished"
)

// Event is one progress notification from a sync run. Fields beyond Kind,
// RunID, and Repo are set according to Kind.
type Event struct {
	Kind  EventKind
	RunID string
	Repo  string
	// Label is set for command events and output lines.
	Label string
	// Command is the rendered command line for EventCommandStarted.
	Command string
	// Text is the output line for EventOutputLine.
	Text string
	// Success is set for EventCommandFinished.
	Success bool
	// Result is set for EventRepoFinished.
	Result *SyncResult
}

// EventHandler receives events in emission order on the caller's goroutine.
type EventHandler func(Event)
