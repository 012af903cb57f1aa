// Package vcs describes the version-control commands the engine runs and how
// their output is interpreted. Only the command shape matters: a backend is a
// list of argv pipelines plus a clean-tree check over line-oriented output.
package vcs

import (
	"fmt"
	"strings"
)

// Step is one command in a pipeline.
type Step struct {
	// Label names the step in events and results, for example "fetch".
	Label string
	Argv  []string
}

// Command renders the step's argv for display.
func (s Step) Command() string {
	return strings.Join(s.Argv, " ")
}

// Backend defines the VCS command surface the engine relies on.
type Backend interface {
	Name() string
	// SyncSteps returns the ordered sync pipeline.
	SyncSteps() []Step
	// StatusStep returns the working-tree status command.
	StatusStep() Step
	// IsClean reports whether status output describes a clean working tree.
	IsClean(output []string) bool
}

// CleanPhrase is the git status text printed for a clean working tree.
const CleanPhrase = "nothing to commit, working tree clean"

// Git implements Backend using the git CLI.
type Git struct {
	// Bin is the path to the git binary. Defaults to "git".
	Bin string
}

// NewGit returns a Git backend running bin.
func NewGit(bin string) *Git {
	return &Git{Bin: bin}
}

// Name returns "git".
func (g *Git) Name() string { return "git" }

func (g *Git) bin() string {
	if strings.TrimSpace(g.Bin) == "" {
		return "git"
	}
	return g.Bin
}

// SyncSteps returns fetch, pull, and push in that order.
func (g *Git) SyncSteps() []Step {
	return []Step{
		{Label: "fetch", Argv: []string{g.bin(), "fetch"}},
		{Label: "pull", Argv: []string{g.bin(), "pull"}},
		{Label: "push", Argv: []string{g.bin(), "push"}},
	}
}

// StatusStep returns the plain `git status` probe.
func (g *Git) StatusStep() Step {
	return Step{Label: "status", Argv: []string{g.bin(), "status"}}
}

// IsClean reports whether any status line carries CleanPhrase.
func (g *Git) IsClean(output []string) bool {
	for _, line := range output {
		if strings.Contains(line, CleanPhrase) {
			return true
		}
	}
	return false
}

// NewBackend returns the backend registered under name.
func NewBackend(name, bin string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "git":
		return NewGit(bin), nil
	default:
		return nil, fmt.Errorf("unsupported vcs %q (supported: git)", name)
	}
}
