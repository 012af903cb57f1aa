// SPDX-License-Identifier: MIT
package grm

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/grm/internal/config"
	"github.com/skaphos/grm/internal/registry"
	"github.com/skaphos/grm/internal/strutil"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty registry and default settings",
	Long:  "Creates the config directory with an empty repository registry and a settings file holding the defaults.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		defaultPlugins, _ := cmd.Flags().GetString("default-plugins")

		registryPath := paths.RegistryPath(settings)
		if _, err := os.Stat(registryPath); err == nil && !force {
			return fmt.Errorf("registry already exists at %q (use --force to overwrite)", registryPath)
		} else if err != nil && !os.IsNotExist(err) {
			return err
		}

		reg := registry.New(registryPath, registry.Options{Logger: logger})
		if err := reg.Save(); err != nil {
			return err
		}
		if plugins := strutil.SplitCSV(defaultPlugins); len(plugins) > 0 {
			if err := reg.SetDefaultPlugins(plugins); err != nil {
				return err
			}
		}

		if _, err := os.Stat(paths.Settings); os.IsNotExist(err) || force {
			if err := config.SaveSettings(config.DefaultSettings(), paths.Settings); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote registry to %s\n", registryPath); err != nil {
			logOutputWriteFailure("init", err)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing registry with an empty one")
	initCmd.Flags().String("default-plugins", "", "comma-separated plugin tags applied to newly added repositories")
	rootCmd.AddCommand(initCmd)
}
