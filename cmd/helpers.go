package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// withDB opens the configured database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(db *engine.DB) error) error {
	defer flushMetrics(cmd)

	cfg := current.cfg

	db, err := engine.Open(cfg.Database.Path,
		engine.WithLogger(current.logger),
		engine.WithTimeout(cfg.Database.OpenTimeout),
	)
	if err != nil {
		return err
	}

	defer func() {
		if err := db.Close(); err != nil {
			current.logger.Warn("failed to close database", "path", cfg.Database.Path, "error", err)
		}
	}()

	return fn(db)
}

// newExecutor builds an executor wired to the session logger, metrics and
// the durability chosen by flag or config.
func newExecutor(cmd *cobra.Command, kind action.Kind, db *engine.DB, collection string) (*action.Executor, error) {
	ex, err := action.New(kind, db, collection)
	if err != nil {
		return nil, err
	}

	ex.WithLogger(current.logger).WithRecorder(current.metrics)

	if !kind.ReadOnly() {
		ex.WithDurability(resolveDurability(cmd))
	}

	return ex, nil
}

// durabilityValue is a pflag.Value for engine.Durability.
type durabilityValue engine.Durability

func (d *durabilityValue) String() string { return engine.Durability(*d).String() }
func (d *durabilityValue) Type() string { return "durability" }

func (d *durabilityValue) Set(s string) error {
	v, err := engine.ParseDurability(s)
	if err != nil {
		return err
	}

	*d = durabilityValue(v)

	return nil
}

func addDurabilityFlag(cmd *cobra.Command) {
	v := durabilityValue(engine.DurabilityRelaxed)
	cmd.Flags().Var(&v, "durability", "commit durability: strict or relaxed (default from config)")
}

func resolveDurability(cmd *cobra.Command) engine.Durability {
	f := cmd.Flags().Lookup("durability")
	if f == nil || !f.Changed {
		return current.cfg.Durability()
	}

	return engine.Durability(*f.Value.(*durabilityValue))
}

// readDocument returns the JSON document given by --data, --file, or stdin.
func readDocument(cmd *cobra.Command) (any, error) {
	data, _ := cmd.Flags().GetString("data")
	file, _ := cmd.Flags().GetString("file")

	if data != "" && file != "" {
		return nil, fmt.Errorf("--data and --file are mutually exclusive")
	}

	var r io.Reader

	switch {
	case data != "":
		r = strings.NewReader(data)
	case file == "-" || file == "":
		r = cmd.InOrStdin()
	default:
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer func() { _ = f.Close() }()

		r = f
	}

	return encoding.DecodeJSON[any](r)
}

func addDocumentFlags(flags *pflag.FlagSet) {
	flags.String("data", "", "record as inline JSON")
	flags.StringP("file", "f", "", "read the record from a JSON file (- for stdin)")
}

// truncateString truncates a string to maxLen runes with ellipsis
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return string(r[:maxLen])
	}

	return string(r[:maxLen-3]) + "..."
}
