package cmd

import (
	"fmt"
	"sort"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/inovacc/recstore/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export --to FILE [COLLECTION...]",
	Short: "Copy collections into a SQLite file",
	Long: `Copy collections into tables of a SQLite database. Each table is named
after its collection and holds (seq INTEGER PRIMARY KEY, doc TEXT) rows in
primary key order. Existing tables of the same name are replaced. With no
collection arguments every collection is exported.

Examples:
  recstore export --to backup.sqlite
  recstore export --to users.sqlite users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("to")

		return withDB(cmd, func(db *engine.DB) error {
			counts, err := export.ToSQLite(cmd.Context(), db, dest, export.Options{
				Logger:   current.logger,
				Recorder: current.metrics,
			}, args...)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}

			sort.Strings(names)

			for _, name := range names {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records\n", name, counts[name])
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("to", "", "destination SQLite file")
	_ = exportCmd.MarkFlagRequired("to")
}
