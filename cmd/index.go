package cmd

import (
	"fmt"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage secondary indexes",
	Long: `Commands for managing the secondary indexes of a collection.

Available Commands:
  create    Create an index and populate it from existing records
  drop      Delete an index`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var indexCreateCmd = &cobra.Command{
	Use:   "create COLLECTION NAME",
	Short: "Create an index and populate it from existing records",
	Long: `Create an index on a collection. Existing records are indexed in the same
transaction; a unique index fails if two records already share a value.

Examples:
  recstore index create users by_name --key-path name
  recstore index create users by_email --key-path email --unique
  recstore index create posts by_tag --key-path tags --multi-entry`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		paths, _ := flags.GetStringSlice("key-path")
		unique, _ := flags.GetBool("unique")
		multi, _ := flags.GetBool("multi-entry")

		idx := engine.IndexSchema{Name: args[1], Unique: unique, MultiEntry: multi}
		if len(paths) == 1 {
			idx.KeyPath = engine.Path(paths[0])
		} else {
			idx.KeyPath = engine.CompositePath(paths...)
		}

		return withDB(cmd, func(db *engine.DB) error {
			if err := db.CreateIndex(args[0], idx); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created index %q on %q\n", idx.Name, args[0])

			return nil
		})
	},
}

var indexDropCmd = &cobra.Command{
	Use:   "drop COLLECTION NAME",
	Short: "Delete an index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *engine.DB) error {
			if err := db.DeleteIndex(args[0], args[1]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dropped index %q on %q\n", args[1], args[0])

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexCreateCmd, indexDropCmd)

	indexCreateCmd.Flags().StringSlice("key-path", nil, "indexed field; repeat or comma separate for a composite key")
	indexCreateCmd.Flags().Bool("unique", false, "reject records that share an index key")
	indexCreateCmd.Flags().Bool("multi-entry", false, "index each element of an array value")
	_ = indexCreateCmd.MarkFlagRequired("key-path")
}
