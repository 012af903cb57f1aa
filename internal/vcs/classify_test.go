// SPDX-License-Identifier: MIT
package vcs_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/grm/internal/runner"
	"github.com/skaphos/grm/internal/vcs"
)

var _ = Describe("Classify", func() {
	failed := errors.New("exit status 1")

	DescribeTable("maps output to a class",
		func(line string, expected string) {
			Expect(vcs.Classify([]string{"noise", line}, 1, failed)).To(Equal(expected))
		},
		Entry("auth", "git@github.com: Permission denied (publickey).", vcs.ClassAuth),
		Entry("network", "fatal: unable to access: Could not resolve host: github.com", vcs.ClassNetwork),
		Entry("timeout", "ssh: connect to host example.com port 22: Operation timed out", vcs.ClassTimeout),
		Entry("corrupt", "fatal: not a git repository (or any of the parent directories): .git", vcs.ClassCorrupt),
		Entry("missing remote", "fatal: couldn't find remote ref main", vcs.ClassMissingRemote),
		Entry("no upstream", "There is no tracking information for the current branch.", vcs.ClassMissingRemote),
		Entry("conflict", "CONFLICT (content): Merge conflict in README.md", vcs.ClassConflict),
		Entry("rejected push", " ! [rejected]        main -> main (fetch first)", vcs.ClassConflict),
		Entry("unknown", "something odd happened", vcs.ClassUnknown),
	)

	It("returns empty for success", func() {
		Expect(vcs.Classify([]string{"Already up to date."}, 0, nil)).To(BeEmpty())
	})

	It("classifies spawn failures", func() {
		err := &runner.SpawnError{Command: "git fetch", Err: errors.New("executable file not found")}
		Expect(vcs.Classify(nil, runner.ExitSpawnFailure, err)).To(Equal(vcs.ClassSpawn))
	})

	It("classifies cancellation and deadlines", func() {
		Expect(vcs.Classify(nil, runner.ExitInterrupted, context.Canceled)).To(Equal(vcs.ClassCancelled))
		Expect(vcs.Classify(nil, runner.ExitInterrupted, context.DeadlineExceeded)).To(Equal(vcs.ClassTimeout))
	})
})
