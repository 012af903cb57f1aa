package grm

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/cliio"
	"github.com/skaphos/grm/internal/registry"
	"github.com/skaphos/grm/internal/termstyle"
)

var listCmd = &cobra.Command{
	Use:     "list [selector...]",
	Aliases: []string{"ls"},
	Short:   "List registered repositories in registry order",
	Long:    "Lists registered repositories. Selectors are names or glob patterns matched case-insensitively.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		reg := openRegistry()
		entries := reg.All()
		if len(args) > 0 {
			if entries, err = reg.Select(args); err != nil {
				return err
			}
		}
		if entries == nil {
			entries = []registry.Entry{}
		}

		if format != cliio.FormatTable {
			logOutputWriteFailure("list", cliio.Write(cmd.OutOrStdout(), format, entries))
			return nil
		}
		if len(entries) == 0 {
			infof(cmd, "no repositories registered (add one with: grm add <name> <path>)")
			return nil
		}
		writeListTable(cmd, entries, noHeaders)
		return nil
	},
}

func writeListTable(cmd *cobra.Command, entries []registry.Entry, noHeaders bool) {
	color := shouldUseColorOutput(cmd)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		enabled := "yes"
		if !e.Enabled {
			enabled = termstyle.Colorize(color, "no", termstyle.Disabled)
		}
		plugins := strings.Join(e.Plugins, ",")
		if plugins == "" {
			plugins = "-"
		}
		rows = append(rows, []string{e.Name, e.Path, enabled, plugins})
	}
	err := cliio.WriteTable(cmd.OutOrStdout(), color, noHeaders, []string{"NAME", "PATH", "ENABLED", "PLUGINS"}, rows)
	logOutputWriteFailure("list table", err)
}

func init() {
	addFormatFlag(listCmd)
	addNoHeadersFlag(listCmd)
	rootCmd.AddCommand(listCmd)
}
