package cmd

import (
	"fmt"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec ACTION COLLECTION",
	Short: "Run any action by name",
	Long: `Run one of read, write, update, delete or clear by name. Flags that do not
apply to the action are ignored: --index only affects read, --data and
--file only write and update, and --key only delete.

Examples:
  recstore exec write users --data '{"id": "1"}'
  recstore exec delete users --key '"1"'
  recstore exec read users --index by_name`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := action.ParseKind(args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()

		var doc any
		if kind == action.Write || kind == action.Update {
			if doc, err = readDocument(cmd); err != nil {
				return err
			}
		}

		return withDB(cmd, func(db *engine.DB) error {
			ex, err := newExecutor(cmd, kind, db, args[1])
			if err != nil {
				return err
			}

			if flags.Changed("index") {
				index, _ := flags.GetString("index")
				ex.WithIndex(index)
			}

			if doc != nil {
				ex.WithPayload(doc)
			}

			if flags.Changed("key") {
				key, _ := flags.GetString("key")
				ex.WithDeleteKey(encoding.ParseLiteral(key))
			}

			records, err := ex.Execute(cmd.Context())
			if err != nil {
				return err
			}

			if kind != action.Read {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %q: ok\n", kind, args[1])
				return nil
			}

			data, err := encoding.MarshalIndent(records)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(execCmd)

	flags := execCmd.Flags()
	flags.StringP("index", "i", "", "index to read through")
	flags.String("key", "", "key to delete")
	addDocumentFlags(flags)
	addDurabilityFlag(execCmd)
}
