// Package export copies collections into other storage formats.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Options tunes ToSQLite.
type Options struct {
	Logger   *slog.Logger
	Recorder action.Recorder
}

// ToSQLite copies each collection into a table of the same name in the
// SQLite file at dest, replacing tables that already exist. Records are read
// with a Read action and stored as JSON in primary key order. With no
// collections named, every collection is exported. It returns the number of
// rows written per collection.
func ToSQLite(ctx context.Context, db *engine.DB, dest string, opts Options, collections ...string) (map[string]int, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if len(collections) == 0 {
		names, err := db.Collections()
		if err != nil {
			return nil, err
		}

		collections = names
	}

	if err := encoding.EnsureParentDir(dest); err != nil {
		return nil, err
	}

	out, err := sql.Open("sqlite", dest+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open export database: %w", err)
	}
	defer func() { _ = out.Close() }()

	out.SetMaxOpenConns(1)

	counts := make(map[string]int, len(collections))

	for _, name := range collections {
		ex, err := action.New(action.Read, db, name)
		if err != nil {
			return counts, err
		}

		records, err := ex.WithLogger(opts.Logger).WithRecorder(opts.Recorder).Execute(ctx)
		if err != nil {
			return counts, fmt.Errorf("failed to read %q: %w", name, err)
		}

		if err := writeTable(ctx, out, name, records); err != nil {
			return counts, fmt.Errorf("failed to export %q: %w", name, err)
		}

		counts[name] = len(records)
		opts.Logger.Debug("collection exported", "collection", name, "rows", len(records), "dest", dest)
	}

	return counts, nil
}

func writeTable(ctx context.Context, out *sql.DB, name string, records []engine.Record) error {
	tx, err := out.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	table := quoteIdent(name)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" (seq INTEGER PRIMARY KEY, doc TEXT NOT NULL)"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (seq, doc) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}

		if _, err := stmt.ExecContext(ctx, i+1, string(doc)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
