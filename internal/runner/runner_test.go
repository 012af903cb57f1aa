// SPDX-License-Identifier: MIT
package runner_test

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/grm/internal/runner"
)

var _ = Describe("ExecRunner", func() {
	var r *runner.ExecRunner

	BeforeEach(func() {
		if _, err := exec.LookPath("sh"); err != nil {
			Skip("sh not available")
		}
		r = runner.NewExecRunner()
	})

	It("streams stdout lines in order including blanks", func() {
		lines, final := runner.Collect(r.Stream(context.Background(), "", []string{"sh", "-c", `printf 'a\n\nb\r\n'`}))
		Expect(lines).To(Equal([]string{"a", "", "b"}))
		Expect(final.Done).To(BeTrue())
		Expect(final.ExitCode).To(Equal(0))
		Expect(final.Err).NotTo(HaveOccurred())
	})

	It("merges stderr and reports the exit code", func() {
		lines, final := runner.Collect(r.Stream(context.Background(), "", []string{"sh", "-c", "echo out; echo err 1>&2; exit 3"}))
		Expect(lines).To(ConsistOf("out", "err"))
		Expect(final.ExitCode).To(Equal(3))
		Expect(final.Err).To(HaveOccurred())
	})

	It("runs in the given working directory", func() {
		dir, err := filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		lines, final := runner.Collect(r.Stream(context.Background(), dir, []string{"sh", "-c", "pwd -P"}))
		Expect(final.ExitCode).To(Equal(0))
		Expect(lines).To(Equal([]string{dir}))
	})

	It("reports a missing executable as a spawn failure with no output", func() {
		lines, final := runner.Collect(r.Stream(context.Background(), "", []string{"/nonexistent/grm-test-binary"}))
		Expect(lines).To(BeEmpty())
		Expect(final.Done).To(BeTrue())
		Expect(final.ExitCode).To(Equal(runner.ExitSpawnFailure))
		var spawnErr *runner.SpawnError
		Expect(errors.As(final.Err, &spawnErr)).To(BeTrue())
		Expect(spawnErr.Command).To(Equal("/nonexistent/grm-test-binary"))
	})

	It("reports a missing working directory as a spawn failure", func() {
		_, final := runner.Collect(r.Stream(context.Background(), "/nonexistent/grm-dir", []string{"sh", "-c", "true"}))
		Expect(final.ExitCode).To(Equal(runner.ExitSpawnFailure))
	})

	It("rejects an empty argv", func() {
		_, final := runner.Collect(r.Stream(context.Background(), "", nil))
		Expect(final.ExitCode).To(Equal(runner.ExitSpawnFailure))
		Expect(errors.Is(final.Err, runner.ErrEmptyCommand)).To(BeTrue())
	})

	It("kills the process when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		started := time.Now()
		events := r.Stream(ctx, "", []string{"sh", "-c", "echo started; exec sleep 30"})

		first := <-events
		Expect(first.Line).To(Equal("started"))
		cancel()

		_, final := runner.Collect(events)
		Expect(time.Since(started)).To(BeNumerically("<", 10*time.Second))
		Expect(final.Done).To(BeTrue())
		Expect(final.ExitCode).To(Equal(runner.ExitInterrupted))
		Expect(errors.Is(final.Err, context.Canceled)).To(BeTrue())
	})

	It("does not start a command for an already cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		lines, final := runner.Collect(r.Stream(ctx, "", []string{"sh", "-c", "echo never"}))
		Expect(lines).To(BeEmpty())
		Expect(final.ExitCode).To(Equal(runner.ExitInterrupted))
	})
})
