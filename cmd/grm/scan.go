// SPDX-License-Identifier: MIT
package grm

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skaphos/grm/internal/discovery"
	"github.com/skaphos/grm/internal/registry"
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>...",
	Short: "Find git working trees under roots and register them",
	Long:  "Walks each root for git working trees and registers every one found under its directory name. Trees already registered, or whose name is taken or invalid, are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exclude, _ := cmd.Flags().GetStringArray("exclude")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		followSymlinks, _ := cmd.Flags().GetBool("follow-symlinks")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !cmd.Flags().Changed("exclude") {
			exclude = settings.Exclude
		}

		found, err := discovery.Scan(cmd.Context(), discovery.Options{
			Roots:          args,
			Exclude:        exclude,
			FollowSymlinks: followSymlinks,
			MaxDepth:       maxDepth,
		})
		if err != nil {
			return err
		}

		reg := openRegistry()
		added, known, skipped := 0, 0, 0
		for _, res := range found {
			if dryRun {
				report(cmd, "would add %s (%s)", res.Name, res.Path)
				continue
			}
			err := reg.Add(res.Name, res.Path)
			switch {
			case err == nil:
				added++
				report(cmd, "added %s (%s)", res.Name, res.Path)
			case errors.Is(err, registry.ErrPersistence):
				return err
			case errors.Is(err, registry.ErrDuplicatePath):
				known++
				logger.Debug("scan skipped registered path", zap.String("path", res.Path))
			default:
				skipped++
				infof(cmd, "skipped %s: %s", res.Path, skipReason(err))
			}
		}
		infof(cmd, "scan found %d repositories: %d added, %d already registered, %d skipped", len(found), added, known, skipped)
		if skipped > 0 {
			raiseExitCode(1)
		}
		return nil
	},
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrDuplicateName):
		return "name already in use (add it manually under another name)"
	case errors.Is(err, registry.ErrInvalidName):
		return "directory name is not a valid repository name"
	default:
		return err.Error()
	}
}

func report(cmd *cobra.Command, format string, args ...any) {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	logOutputWriteFailure("scan", err)
}

func init() {
	scanCmd.Flags().StringArray("exclude", nil, "glob pattern of directories to skip (repeatable; defaults to the exclude setting)")
	scanCmd.Flags().Int("max-depth", 0, "maximum directory depth below each root (0 for unlimited)")
	scanCmd.Flags().Bool("follow-symlinks", false, "descend into symlinked directories")
	scanCmd.Flags().Bool("dry-run", false, "print what would be added without changing the registry")
	rootCmd.AddCommand(scanCmd)
}
