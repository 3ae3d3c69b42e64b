package cmd

import (
	"fmt"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete COLLECTION [KEY]",
	Short: "Delete one key or a key range",
	Long: `Delete the record stored under KEY, or every record whose key falls in the
range given by --lower and --upper. Deleting a key that does not exist
succeeds.

Keys are parsed as JSON literals when valid, else taken as strings, so 1 is
the number one and '"1"' or 1a are strings.

Examples:
  recstore delete users '"1"'
  recstore delete events --lower 10 --upper 20 --upper-open`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := deleteQuery(cmd, args[1:])
		if err != nil {
			return err
		}

		return withDB(cmd, func(db *engine.DB) error {
			ex, err := newExecutor(cmd, action.Delete, db, args[0])
			if err != nil {
				return err
			}

			if _, err := ex.WithDeleteKey(key).Execute(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "delete %q: ok\n", args[0])

			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear COLLECTION",
	Short: "Delete every record, keeping the schema and indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *engine.DB) error {
			ex, err := newExecutor(cmd, action.Clear, db, args[0])
			if err != nil {
				return err
			}

			if _, err := ex.Execute(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "clear %q: ok\n", args[0])

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd, clearCmd)

	flags := deleteCmd.Flags()
	flags.String("lower", "", "lower bound of the key range")
	flags.String("upper", "", "upper bound of the key range")
	flags.Bool("lower-open", false, "exclude the lower bound")
	flags.Bool("upper-open", false, "exclude the upper bound")
	addDurabilityFlag(deleteCmd)
	addDurabilityFlag(clearCmd)
}

// deleteQuery builds the delete key from the KEY argument or the range flags.
func deleteQuery(cmd *cobra.Command, args []string) (any, error) {
	flags := cmd.Flags()
	hasLower, hasUpper := flags.Changed("lower"), flags.Changed("upper")

	if len(args) == 1 {
		if hasLower || hasUpper {
			return nil, fmt.Errorf("KEY and --lower/--upper are mutually exclusive")
		}

		return encoding.ParseLiteral(args[0]), nil
	}

	lowerOpen, _ := flags.GetBool("lower-open")
	upperOpen, _ := flags.GetBool("upper-open")
	lower, _ := flags.GetString("lower")
	upper, _ := flags.GetString("upper")

	switch {
	case hasLower && hasUpper:
		return engine.Bound(encoding.ParseLiteral(lower), encoding.ParseLiteral(upper), lowerOpen, upperOpen)
	case hasLower:
		return engine.LowerBound(encoding.ParseLiteral(lower), lowerOpen)
	case hasUpper:
		return engine.UpperBound(encoding.ParseLiteral(upper), upperOpen)
	default:
		return nil, fmt.Errorf("a KEY argument or --lower/--upper is required")
	}
}
