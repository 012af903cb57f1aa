// SPDX-License-Identifier: MIT
package vcs

import (
	"context"
	"errors"
	"strings"

	"github.com/skaphos/grm/internal/runner"
)

// Error classes attached to failed steps.
const (
	ClassAuth          = "auth"
	ClassNetwork       = "network"
	ClassTimeout       = "timeout"
	ClassCorrupt       = "corrupt"
	ClassMissingRemote = "missing_remote"
	ClassConflict      = "conflict"
	ClassSpawn         = "spawn"
	ClassCancelled     = "cancelled"
	ClassUnknown       = "unknown"
)

// Classify maps a finished command into a broad actionable category. It
// returns "" for a successful command.
func Classify(output []string, exitCode int, err error) string {
	if exitCode == 0 && err == nil {
		return ""
	}
	var spawnErr *runner.SpawnError
	switch {
	case errors.As(err, &spawnErr):
		return ClassSpawn
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	}

	msg := strings.ToLower(strings.Join(output, "\n"))
	switch {
	case containsAny(msg, "permission denied", "authentication failed", "access denied", "publickey", "could not read username", "credential"):
		return ClassAuth
	case containsAny(msg, "could not resolve host", "network is unreachable", "connection timed out", "failed to connect", "temporary failure in name resolution", "tls handshake timeout", "connection refused"):
		return ClassNetwork
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ClassTimeout
	case containsAny(msg, "not a git repository", "bad object", "corrupt", "object file"):
		return ClassCorrupt
	case containsAny(msg, "repository not found", "couldn't find remote ref", "remote ref does not exist", "no such remote", "no configured push destination", "no tracking information", "does not appear to be a git repository"):
		return ClassMissingRemote
	case containsAny(msg, "conflict", "not possible to fast-forward", "divergent branches", "would be overwritten", "[rejected]", "non-fast-forward"):
		return ClassConflict
	default:
		return ClassUnknown
	}
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
