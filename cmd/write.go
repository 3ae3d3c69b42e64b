package cmd

import (
	"fmt"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write COLLECTION",
	Short: "Insert a record, failing if its key is taken",
	Long: `Insert one JSON object. The command fails with a ConstraintError when a
record with the same key, or the same value in a unique index, already exists.

The record comes from --data, --file, or stdin.

Examples:
  recstore write users --data '{"id": "1", "name": "Alice"}'
  recstore write users --file alice.json --durability strict
  echo '{"id": "2", "name": "Bob"}' | recstore write users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayloadAction(cmd, action.Write, args[0])
	},
}

var updateCmd = &cobra.Command{
	Use:   "update COLLECTION",
	Short: "Replace the record stored under the payload's key",
	Long: `Replace the whole record whose key equals the key field of the payload,
inserting it when no such record exists. The collection must have a single
field key path and the payload must carry that field.

Examples:
  recstore update users --data '{"id": "1", "name": "Alice Updated"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayloadAction(cmd, action.Update, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{writeCmd, updateCmd} {
		rootCmd.AddCommand(c)
		addDocumentFlags(c.Flags())
		addDurabilityFlag(c)
	}
}

func runPayloadAction(cmd *cobra.Command, kind action.Kind, collection string) error {
	doc, err := readDocument(cmd)
	if err != nil {
		return err
	}

	return withDB(cmd, func(db *engine.DB) error {
		ex, err := newExecutor(cmd, kind, db, collection)
		if err != nil {
			return err
		}

		if _, err := ex.WithPayload(doc).Execute(cmd.Context()); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %q: ok\n", kind, collection)

		return nil
	})
}
