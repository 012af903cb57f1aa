// SPDX-License-Identifier: MIT
package grm

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/cliio"
	"github.com/skaphos/grm/internal/model"
	"github.com/skaphos/grm/internal/termstyle"
)

const (
	stateClean = "clean"
	stateDirty = "dirty"
	stateError = "error"
)

var statusCmd = &cobra.Command{
	Use:   "status [selector...]",
	Short: "Report whether each repository's working tree is clean",
	Long:  "Runs the status command for each selected repository (all enabled repositories by default). Exits 1 when any tree is dirty and 2 when a probe fails.",
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
		eng, err := newEngine()
		if err != nil {
			return err
		}
		results := eng.StatusAll(cmd.Context(), entries)

		for _, res := range results {
			switch statusState(res) {
			case stateDirty:
				raiseExitCode(1)
			case stateError:
				raiseExitCode(2)
			}
		}

		if format != cliio.FormatTable {
			logOutputWriteFailure("status", cliio.Write(cmd.OutOrStdout(), format, results))
			return nil
		}
		if len(results) == 0 {
			infof(cmd, "no repositories to check")
			return nil
		}
		writeStatusTable(cmd, results, noHeaders)
		if len(results) == 1 && !results[0].Clean {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", results[0].Output)
			logOutputWriteFailure("status detail", err)
		}
		return nil
	},
}

func statusState(res model.StatusResult) string {
	switch {
	case res.Clean:
		return stateClean
	case res.ExitCode != 0:
		return stateError
	default:
		return stateDirty
	}
}

func writeStatusTable(cmd *cobra.Command, results []model.StatusResult, noHeaders bool) {
	color := shouldUseColorOutput(cmd)
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		state := statusState(res)
		shade := termstyle.Clean
		switch state {
		case stateDirty:
			shade = termstyle.Dirty
		case stateError:
			shade = termstyle.Failed
		}
		rows = append(rows, []string{res.Name, termstyle.Colorize(color, state, shade), res.Path})
	}
	err := cliio.WriteTable(cmd.OutOrStdout(), color, noHeaders, []string{"NAME", "STATE", "PATH"}, rows)
	logOutputWriteFailure("status table", err)
}

func init() {
	addFormatFlag(statusCmd)
	addNoHeadersFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}
