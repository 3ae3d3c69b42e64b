package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inovacc/recstore/internal/engine"
)

// Recorder observes finished executions.
type Recorder interface {
	Observe(action string, elapsed time.Duration, err error)
}

// transaction is the part of *engine.Tx an execution drives.
type transaction interface {
	ID() string
	Collection(name string) (*engine.Collection, error)
	Commit() error
	Abort() error
}

// recordSource is satisfied by both collections and indexes.
type recordSource interface {
	GetAll() ([]engine.Record, error)
}

// Executor performs one action against one collection. Configure it with the
// With* methods before calling Execute; a rejected setting is kept in Err and
// makes Execute fail without opening a transaction.
type Executor struct {
	kind       Kind
	collection string

	index        string
	durability   engine.Durability
	payload      engine.Record
	deleteKey    any
	hasDeleteKey bool
	err          error

	logger   *slog.Logger
	recorder Recorder

	begin func(scope []string, mode engine.Mode, d engine.Durability) (transaction, error)
}

// New returns an executor for kind on collection. The handle must be open
// and the collection name non-empty.
func New(kind Kind, db *engine.DB, collection string) (*Executor, error) {
	if !db.Valid() {
		return nil, fmt.Errorf("%w: database handle is nil or closed", ErrTypeMismatch)
	}

	if collection == "" {
		return nil, fmt.Errorf("%w: collection name must be a non-empty string", ErrTypeMismatch)
	}

	return &Executor{
		kind:       kind,
		collection: collection,
		durability: engine.DurabilityRelaxed,
		logger:     slog.Default(),
		begin: func(scope []string, mode engine.Mode, d engine.Durability) (transaction, error) {
			tx, err := db.Begin(scope, mode, d)
			if err != nil {
				return nil, err
			}

			return tx, nil
		},
	}, nil
}

func (e *Executor) Kind() Kind { return e.kind }
func (e *Executor) Collection() string { return e.collection }
func (e *Executor) Durability() engine.Durability { return e.durability }

// Err returns the first configuration error, if any.
func (e *Executor) Err() error {
	return e.err
}

// WithIndex reads through the named index when it exists. Only Read uses it.
func (e *Executor) WithIndex(name string) *Executor {
	if name == "" {
		e.fail(fmt.Errorf("%w: index name must be a non-empty string", ErrInvalidIndexName))
		return e
	}

	e.index = name

	return e
}

// WithDurability sets the commit durability of the transaction.
func (e *Executor) WithDurability(d engine.Durability) *Executor {
	if !d.Valid() {
		e.fail(fmt.Errorf("%w: %s", ErrInvalidDurability, d))
		return e
	}

	e.durability = d

	return e
}

// WithPayload sets the document written by Write and Update. doc may be any
// value whose JSON encoding is an object; nil clears the payload.
func (e *Executor) WithPayload(doc any) *Executor {
	if doc == nil {
		e.payload = nil
		return e
	}

	rec, err := engine.CloneRecord(doc)
	if err != nil {
		e.fail(fmt.Errorf("%w: %w", ErrInvalidPayload, err))
		return e
	}

	e.payload = rec

	return e
}

// WithDeleteKey sets the key, or engine.KeyRange, removed by Delete.
func (e *Executor) WithDeleteKey(key any) *Executor {
	switch k := key.(type) {
	case engine.KeyRange:
		e.deleteKey = k
	case *engine.KeyRange:
		if k == nil {
			e.fail(fmt.Errorf("%w: nil key range", ErrMissingDeleteKey))
			return e
		}

		e.deleteKey = *k
	default:
		n, err := engine.NormalizeKey(key)
		if err != nil {
			e.fail(err)
			return e
		}

		e.deleteKey = n
	}

	e.hasDeleteKey = true

	return e
}

// WithLogger replaces the default logger.
func (e *Executor) WithLogger(l *slog.Logger) *Executor {
	if l != nil {
		e.logger = l
	}

	return e
}

// WithRecorder reports every execution to r.
func (e *Executor) WithRecorder(r Recorder) *Executor {
	e.recorder = r
	return e
}

func (e *Executor) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Execute runs the action. Read returns the records; the other kinds return
// nil records. Execute returns only once the transaction has committed or
// failed, and a transaction failure wins over a request that succeeded.
func (e *Executor) Execute(ctx context.Context) (records []engine.Record, err error) {
	if e.err != nil {
		return nil, e.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	defer func() {
		elapsed := time.Since(start)

		if e.recorder != nil {
			e.recorder.Observe(e.kind.String(), elapsed, err)
		}

		if err != nil {
			e.logger.Debug("action failed", "action", e.kind.String(), "collection", e.collection, "error", err)
			return
		}

		e.logger.Debug("action complete", "action", e.kind.String(), "collection", e.collection, "elapsed", elapsed)
	}()

	switch e.kind {
	case Read:
		return e.read()
	case Write:
		return nil, e.write()
	case Update:
		return nil, e.update()
	case Delete:
		return nil, e.delete()
	case Clear:
		return nil, e.clear()
	default:
		return nil, &InvalidActionError{Value: e.kind.String()}
	}
}

func (e *Executor) read() ([]engine.Record, error) {
	var out []engine.Record

	err := e.inTx(engine.ModeReadOnly, func(c *engine.Collection) error {
		src, err := e.source(c)
		if err != nil {
			return err
		}

		recs, err := src.GetAll()
		if err != nil {
			if engine.IsEngineError(err) {
				return err
			}

			return fmt.Errorf("%w: %w", ErrReadFailed, err)
		}

		out = recs

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// source picks the index named by the hint, falling back to the collection
// when the index does not exist.
func (e *Executor) source(c *engine.Collection) (recordSource, error) {
	if e.index == "" {
		return c, nil
	}

	idx, err := c.Index(e.index)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			e.logger.Debug("index not found, scanning collection", "collection", e.collection, "index", e.index)
			return c, nil
		}

		return nil, err
	}

	return idx, nil
}

func (e *Executor) write() error {
	if e.payload == nil {
		return fmt.Errorf("%w for %s on %q", ErrMissingPayload, e.kind, e.collection)
	}

	return e.inTx(engine.ModeReadWrite, func(c *engine.Collection) error {
		_, err := c.Add(e.payload)
		return err
	})
}

func (e *Executor) update() error {
	if e.payload == nil {
		return fmt.Errorf("%w for %s on %q", ErrMissingPayload, e.kind, e.collection)
	}

	return e.inTx(engine.ModeReadWrite, func(c *engine.Collection) error {
		kp := c.KeyPath()

		switch {
		case kp.IsZero():
			return fmt.Errorf("%w: %q", ErrNoKeyPath, e.collection)
		case kp.IsComposite():
			return fmt.Errorf("%w: %q uses %s", ErrCompositeKeyPath, e.collection, kp)
		}

		if _, ok := kp.Extract(e.payload); !ok {
			return fmt.Errorf("%w %q", ErrMissingKeyField, kp)
		}

		_, err := c.Put(e.payload)

		return err
	})
}

func (e *Executor) delete() error {
	if !e.hasDeleteKey {
		return fmt.Errorf("%w for %s on %q", ErrMissingDeleteKey, e.kind, e.collection)
	}

	return e.inTx(engine.ModeReadWrite, func(c *engine.Collection) error {
		n, err := c.Delete(e.deleteKey)
		if err != nil {
			return err
		}

		e.logger.Debug("records deleted", "collection", e.collection, "count", n)

		return nil
	})
}

func (e *Executor) clear() error {
	return e.inTx(engine.ModeReadWrite, func(c *engine.Collection) error {
		return c.Clear()
	})
}

// inTx runs fn in a transaction scoped to the target collection. A failing
// request aborts the transaction; otherwise the commit result is returned.
func (e *Executor) inTx(mode engine.Mode, fn func(*engine.Collection) error) error {
	tx, err := e.begin([]string{e.collection}, mode, e.durability)
	if err != nil {
		return err
	}

	c, err := tx.Collection(e.collection)
	if err != nil {
		_ = tx.Abort()
		return err
	}

	if err := fn(c); err != nil {
		if abortErr := tx.Abort(); abortErr != nil {
			e.logger.Warn("abort failed", "tx", tx.ID(), "error", abortErr)
		}

		return err
	}

	return tx.Commit()
}
