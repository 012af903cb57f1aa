// SPDX-License-Identifier: MIT
package grm

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/cliio"
	"github.com/skaphos/grm/internal/model"
	"github.com/skaphos/grm/internal/termstyle"
)

var syncCmd = &cobra.Command{
	Use:   "sync [selector...]",
	Short: "Fetch, pull, and push each repository in turn",
	Long: "Runs fetch, pull, and push for each selected repository (all enabled repositories by default), one repository at a time. " +
		"A repository stops at its first failing step; the run continues with the next one. Exits 2 when any repository failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		entries, err := selectEntries(openRegistry(), args)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			infof(cmd, "no repositories to sync")
			if format != cliio.FormatTable {
				logOutputWriteFailure("sync", cliio.Write(cmd.OutOrStdout(), format, []model.SyncResult{}))
			}
			return nil
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}

		var handler model.EventHandler
		if format == cliio.FormatTable {
			handler = liveSyncView(cmd.OutOrStdout(), shouldUseColorOutput(cmd))
		}
		results, runErr := eng.SyncAll(cmd.Context(), entries, handler)

		for _, res := range results {
			if !res.Succeeded {
				raiseExitCode(2)
			}
		}
		if format != cliio.FormatTable {
			logOutputWriteFailure("sync", cliio.Write(cmd.OutOrStdout(), format, results))
		} else {
			_, err := fmt.Fprintln(cmd.OutOrStdout())
			logOutputWriteFailure("sync", err)
			writeSyncTable(cmd, results, noHeaders)
		}

		if runErr != nil {
			return fmt.Errorf("sync interrupted after %d of %d repositories: %w", completed(results), len(entries), runErr)
		}
		return nil
	},
}

func completed(results []model.SyncResult) int {
	n := 0
	for _, res := range results {
		if !res.Interrupted {
			n++
		}
	}
	return n
}

// liveSyncView renders sync events as they arrive: a header per repository,
// each command line, its indented output, and a closing mark.
func liveSyncView(out io.Writer, color bool) model.EventHandler {
	write := func(format string, args ...any) {
		_, err := fmt.Fprintf(out, format, args...)
		logOutputWriteFailure("sync progress", err)
	}
	return func(ev model.Event) {
		switch ev.Kind {
		case model.EventRepoStarted:
			write("%s\n", termstyle.Paint(color, "=== "+ev.Repo+" ===", termstyle.Header))
		case model.EventCommandStarted:
			write("$ %s\n", ev.Command)
		case model.EventOutputLine:
			write("    %s\n", ev.Text)
		case model.EventRepoFinished:
			summary := "synced"
			if ev.Result != nil && !ev.Result.Succeeded {
				summary = failureSummary(*ev.Result)
			}
			write("%s %s %s\n", termstyle.Mark(color, ev.Success), ev.Repo, summary)
		}
	}
}

func failureSummary(res model.SyncResult) string {
	if res.Interrupted {
		return "interrupted"
	}
	step := res.FailedStep()
	if step == nil {
		return "failed"
	}
	if step.ErrorClass != "" {
		return fmt.Sprintf("%s failed (%s)", step.Label, step.ErrorClass)
	}
	return step.Label + " failed"
}

func writeSyncTable(cmd *cobra.Command, results []model.SyncResult, noHeaders bool) {
	color := shouldUseColorOutput(cmd)
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		outcome := termstyle.Colorize(color, "ok", termstyle.Clean)
		failedStep, errorClass := "-", "-"
		switch {
		case res.Interrupted:
			outcome = termstyle.Colorize(color, "interrupted", termstyle.Dirty)
		case !res.Succeeded:
			outcome = termstyle.Colorize(color, "failed", termstyle.Failed)
		}
		if step := res.FailedStep(); step != nil {
			failedStep = step.Label
			if step.ErrorClass != "" {
				errorClass = step.ErrorClass
			}
		}
		rows = append(rows, []string{res.RepoName, outcome, failedStep, errorClass})
	}
	err := cliio.WriteTable(cmd.OutOrStdout(), color, noHeaders, []string{"NAME", "RESULT", "FAILED_STEP", "ERROR_CLASS"}, rows)
	logOutputWriteFailure("sync table", err)
}

func init() {
	addFormatFlag(syncCmd)
	addNoHeadersFlag(syncCmd)
	rootCmd.AddCommand(syncCmd)
}
