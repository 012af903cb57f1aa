package grm

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/cliio"
)

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a repository from the registry",
	Long:    "Removes a repository from the registry. Files on disk are not touched.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		reg := openRegistry()
		entry, ok := reg.Find(args[0])
		if !ok {
			infof(cmd, "no repository named %q", args[0])
			raiseExitCode(1)
			return nil
		}
		if !yes {
			confirmed, err := cliio.PromptYesNo(cmd.ErrOrStderr(), cmd.InOrStdin(), fmt.Sprintf("Remove %s (%s) from the registry? [y/N]: ", entry.Name, entry.Path))
			if err != nil {
				return err
			}
			if !confirmed {
				infof(cmd, "remove cancelled")
				return nil
			}
		}

		removed, err := reg.Remove(entry.Name)
		if err != nil {
			return err
		}
		if !removed {
			infof(cmd, "no repository named %q", args[0])
			raiseExitCode(1)
			return nil
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", entry.Name, entry.Path); err != nil {
			logOutputWriteFailure("remove", err)
		}
		return nil
	},
}

func init() {
	removeCmd.Flags().BoolP("yes", "y", false, "do not prompt for confirmation")
	rootCmd.AddCommand(removeCmd)
}
