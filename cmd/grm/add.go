// SPDX-License-Identifier: MIT
package grm

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register an existing local repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		plugins, _ := cmd.Flags().GetStringArray("plugin")

		reg := openRegistry()
		if err := reg.Add(args[0], args[1], plugins...); err != nil {
			return err
		}
		entry, _ := reg.Find(args[0])
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", entry.Name, entry.Path); err != nil {
			logOutputWriteFailure("add", err)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringArray("plugin", nil, "plugin tag to attach (repeatable; defaults to the registry's default plugins)")
	rootCmd.AddCommand(addCmd)
}
