package engine

import (
	"log/slog"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

type txState int

const (
	txActive txState = iota
	txCommitted
	txAborted
)

// Tx is a transaction scoped to a fixed set of collections. Exactly one of
// Commit or Abort ends it; its result is the authoritative outcome of every
// request made through it.
type Tx struct {
	db         *DB
	btx        *bbolt.Tx
	id         string
	mode       Mode
	durability Durability
	scope      map[string]CollectionSchema
	state      txState
	logger     *slog.Logger
}

// Begin opens a transaction over scope. Read-write transactions are
// serialized by the storage engine; Begin blocks while another one is open.
func (db *DB) Begin(scope []string, mode Mode, durability Durability) (*Tx, error) {
	if !db.Valid() {
		return nil, newError(NameInvalidState, "database is closed")
	}

	if len(scope) == 0 {
		return nil, newError(NameInvalidState, "transaction scope is empty")
	}

	if mode != ModeReadOnly && mode != ModeReadWrite {
		return nil, newError(NameData, "invalid transaction mode %s", mode)
	}

	if !durability.Valid() {
		return nil, newError(NameData, "invalid durability %s", durability)
	}

	btx, err := db.bolt.Begin(mode == ModeReadWrite)
	if err != nil {
		return nil, wrapError(NameInvalidState, err, "begin %s transaction", mode)
	}

	schemas := make(map[string]CollectionSchema, len(scope))

	for _, name := range scope {
		schema, ok, err := loadSchema(btx, name)
		if err != nil {
			_ = btx.Rollback()
			return nil, err
		}

		if !ok {
			_ = btx.Rollback()
			return nil, newError(NameNotFound, "collection %q does not exist", name)
		}

		schemas[name] = schema
	}

	tx := &Tx{
		db:         db,
		btx:        btx,
		id:         uuid.NewString(),
		mode:       mode,
		durability: durability,
		scope:      schemas,
	}
	tx.logger = db.logger.With("tx", tx.id)

	tx.logger.Debug("transaction started", "mode", mode.String(), "durability", durability.String(), "scope", scope)

	return tx, nil
}

func (tx *Tx) ID() string { return tx.id }
func (tx *Tx) Mode() Mode { return tx.mode }
func (tx *Tx) Durability() Durability { return tx.durability }

// Active reports whether the transaction still accepts requests.
func (tx *Tx) Active() bool {
	return tx.state == txActive
}

// Collection returns a handle on a collection within the transaction scope.
func (tx *Tx) Collection(name string) (*Collection, error) {
	if err := tx.checkActive(); err != nil {
		return nil, err
	}

	schema, ok := tx.scope[name]
	if !ok {
		return nil, newError(NameNotFound, "collection %q is not in the transaction scope", name)
	}

	b := tx.btx.Bucket(collectionKey(name))
	if b == nil {
		return nil, newError(NameNotFound, "collection %q does not exist", name)
	}

	return &Collection{tx: tx, schema: schema, bucket: b}, nil
}

// Commit ends the transaction. For read-write transactions the changes are
// durable according to the transaction's durability once Commit returns nil.
func (tx *Tx) Commit() error {
	if err := tx.checkActive(); err != nil {
		return err
	}

	if tx.mode == ModeReadOnly {
		tx.state = txCommitted

		if err := tx.btx.Rollback(); err != nil {
			return wrapError(NameAbort, err, "finish transaction %s", tx.id)
		}

		tx.logger.Debug("transaction complete")

		return nil
	}

	if err := tx.btx.Commit(); err != nil {
		tx.state = txAborted
		tx.logger.Debug("transaction aborted", "error", err)

		return wrapError(NameAbort, err, "commit transaction %s", tx.id)
	}

	tx.state = txCommitted

	if tx.durability == DurabilityStrict {
		if err := tx.db.bolt.Sync(); err != nil {
			return wrapError(NameUnknown, err, "sync transaction %s", tx.id)
		}
	}

	tx.logger.Debug("transaction complete")

	return nil
}

// Abort discards every change made in the transaction.
func (tx *Tx) Abort() error {
	if err := tx.checkActive(); err != nil {
		return err
	}

	tx.state = txAborted
	tx.logger.Debug("transaction aborted")

	if err := tx.btx.Rollback(); err != nil {
		return wrapError(NameUnknown, err, "roll back transaction %s", tx.id)
	}

	return nil
}

func (tx *Tx) checkActive() error {
	if tx.state != txActive {
		return newError(NameTransactionInactive, "transaction %s has finished", tx.id)
	}

	return nil
}

func (tx *Tx) checkWritable() error {
	if err := tx.checkActive(); err != nil {
		return err
	}

	if tx.mode != ModeReadWrite {
		return newError(NameReadOnly, "transaction %s is read-only", tx.id)
	}

	return nil
}
