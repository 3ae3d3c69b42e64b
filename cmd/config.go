package cmd

import (
	"fmt"

	"github.com/inovacc/recstore/internal/application"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage recstore configuration",
	Long: `Commands for managing recstore configuration.

Available Commands:
  show    Print the effective configuration
  init    Write the effective configuration to a file`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after applying the config file and command line flags.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.cfg.WriteTo(cmd.OutOrStdout())
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write the effective configuration to a file",
	Long: `Write the effective configuration to PATH, or to config.ini in the
application directory. An existing file is only replaced with --force.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			def, err := application.DefaultConfigPath()
			if err != nil {
				return err
			}

			path = def
		}

		force, _ := cmd.Flags().GetBool("force")
		if encoding.FileExists(path) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := current.cfg.Save(path); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
