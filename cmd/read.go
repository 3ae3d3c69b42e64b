package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxCellWidth = 40

var readCmd = &cobra.Command{
	Use:   "read COLLECTION",
	Short: "Print every record of a collection",
	Long: `Print every record of a collection in primary key order, or in the order
of an index when --index names one that exists. An unknown index falls back
to primary key order.

Output is a table on a terminal and JSON otherwise; --format overrides.

Examples:
  recstore read users
  recstore read users --index by_name --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = defaultFormat(cmd.OutOrStdout())
		}

		if format != "json" && format != "table" {
			return fmt.Errorf("invalid format %q: must be json or table", format)
		}

		return withDB(cmd, func(db *engine.DB) error {
			ex, err := newExecutor(cmd, action.Read, db, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("index") {
				index, _ := cmd.Flags().GetString("index")
				ex.WithIndex(index)
			}

			records, err := ex.Execute(cmd.Context())
			if err != nil {
				return err
			}

			if format == "table" {
				return printTable(cmd.OutOrStdout(), records)
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
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringP("index", "i", "", "read in the order of this index")
	readCmd.Flags().String("format", "", "output format: json or table (default table on a terminal)")
}

func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}

	return "json"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// printTable renders records with one column per top-level field.
func printTable(w io.Writer, records []engine.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, countStyle.Render("(0 records)"))
		return err
	}

	columns := recordColumns(records)
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := rec[col]; ok {
				row[i] = truncateString(formatCell(v), maxCellWidth)
			}
		}

		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		}).
		Headers(columns...).
		Rows(rows...)

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.String(), countStyle.Render(fmt.Sprintf("(%d records)", len(records))))

	return err
}

func recordColumns(records []engine.Record) []string {
	seen := make(map[string]struct{})

	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}

	sort.Strings(cols)

	return cols
}

func formatCell(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(data)
}
