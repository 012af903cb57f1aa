// SPDX-License-Identifier: MIT
package grm

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/names"
	"github.com/skaphos/grm/internal/registry"
	"github.com/skaphos/grm/internal/strutil"
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Rename a repository or change its path, plugins, or enabled state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		enable, _ := flags.GetBool("enable")
		disable, _ := flags.GetBool("disable")
		if enable && disable {
			return errors.New("--enable and --disable are mutually exclusive")
		}
		if !flags.Changed("name") && !flags.Changed("path") && !flags.Changed("plugins") && !enable && !disable {
			return errors.New("nothing to change (use --name, --path, --plugins, --enable, or --disable)")
		}

		reg := openRegistry()
		entry, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("no repository named %q", args[0])
		}

		change := registry.Change{}
		change.Name, _ = flags.GetString("name")
		change.Path, _ = flags.GetString("path")
		if flags.Changed("plugins") {
			raw, _ := flags.GetString("plugins")
			change.Plugins = strutil.SplitCSV(raw)
		}
		if enable || disable {
			change.Enabled = &enable
		}
		if flags.Changed("name") {
			if err := names.Validate(change.Name); err != nil {
				return fmt.Errorf("%w %q: %v", registry.ErrInvalidName, change.Name, err)
			}
		}
		if err := reg.Edit(entry.Name, change); err != nil {
			return err
		}

		name := entry.Name
		if change.Name != "" {
			name = change.Name
		}
		updated, _ := reg.Find(name)
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", updated.Name, updated.Path); err != nil {
			logOutputWriteFailure("edit", err)
		}
		return nil
	},
}

func init() {
	editCmd.Flags().String("name", "", "new repository name")
	editCmd.Flags().String("path", "", "new repository path")
	editCmd.Flags().String("plugins", "", "comma-separated plugin tags replacing the current ones")
	editCmd.Flags().Bool("enable", false, "include the repository in default status and sync runs")
	editCmd.Flags().Bool("disable", false, "exclude the repository from default status and sync runs")
	rootCmd.AddCommand(editCmd)
}
