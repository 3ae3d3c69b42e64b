package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const (
	metaBucket       = "__meta__" // key: collection name -> CollectionSchema JSON
	collectionPrefix = "c:"       // c:<name> -> {records, indexes/<name>}
	recordsBucket    = "records"  // key: encoded primary key -> record JSON
	indexesBucket    = "indexes"  // key: encoded index key + primary key -> primary key
)

// Mode selects whether a transaction may write.
type Mode int

const (
	ModeReadOnly Mode = iota
	ModeReadWrite
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "readonly"
	case ModeReadWrite:
		return "readwrite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Durability trades commit latency for persistence. Relaxed commits return
// once the pages are written; strict commits also fsync the file.
type Durability int

const (
	DurabilityRelaxed Durability = iota
	DurabilityStrict
)

func (d Durability) String() string {
	switch d {
	case DurabilityRelaxed:
		return "relaxed"
	case DurabilityStrict:
		return "strict"
	default:
		return fmt.Sprintf("Durability(%d)", int(d))
	}
}

// Valid reports whether d is one of the declared values.
func (d Durability) Valid() bool {
	return d == DurabilityRelaxed || d == DurabilityStrict
}

// ParseDurability converts "strict" or "relaxed" (case-insensitive).
func ParseDurability(s string) (Durability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relaxed", "":
		return DurabilityRelaxed, nil
	case "strict":
		return DurabilityStrict, nil
	default:
		return 0, fmt.Errorf("invalid durability %q: must be strict or relaxed", s)
	}
}

type options struct {
	logger   *slog.Logger
	timeout  time.Duration
	fileMode os.FileMode
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used for transaction lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeout bounds how long Open waits for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithFileMode sets the permissions of a newly created database file.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.fileMode = mode }
}

// DB is a handle to an open database file.
type DB struct {
	bolt   *bbolt.DB
	path   string
	logger *slog.Logger
	closed atomic.Bool
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*DB, error) {
	o := options{
		logger:   slog.Default(),
		timeout:  1 * time.Second,
		fileMode: 0600,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, wrapError(NameUnknown, err, "create database directory")
	}

	// Durability is decided per transaction, see Tx.Commit.
	instance, err := bbolt.Open(path, o.fileMode, &bbolt.Options{Timeout: o.timeout, NoSync: true})
	if err != nil {
		return nil, wrapError(NameUnknown, err, "open database %s", path)
	}

	db := &DB{bolt: instance, path: path, logger: o.logger}

	if err := db.update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		return err
	}); err != nil {
		_ = instance.Close()

		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Valid reports whether the handle can still open transactions.
func (db *DB) Valid() bool {
	return db != nil && db.bolt != nil && !db.closed.Load()
}

// Close flushes and closes the database. Closing twice is a no-op.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}

	if err := db.bolt.Sync(); err != nil {
		_ = db.bolt.Close()

		return wrapError(NameUnknown, err, "sync database")
	}

	return db.bolt.Close()
}

// update runs a schema change and always syncs it.
func (db *DB) update(fn func(*bbolt.Tx) error) error {
	if !db.Valid() {
		return newError(NameInvalidState, "database is closed")
	}

	if err := db.bolt.Update(fn); err != nil {
		if IsEngineError(err) {
			return err
		}

		return wrapError(NameUnknown, err, "update schema")
	}

	if err := db.bolt.Sync(); err != nil {
		return wrapError(NameUnknown, err, "sync schema")
	}

	return nil
}

// CreateCollection creates an empty collection with its indexes.
func (db *DB) CreateCollection(schema CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	return db.update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta.Get([]byte(schema.Name)) != nil {
			return newError(NameConstraint, "collection %q already exists", schema.Name)
		}

		b, err := tx.CreateBucket(collectionKey(schema.Name))
		if err != nil {
			return wrapError(NameUnknown, err, "create collection %q", schema.Name)
		}

		if _, err := b.CreateBucket([]byte(recordsBucket)); err != nil {
			return err
		}

		idxs, err := b.CreateBucket([]byte(indexesBucket))
		if err != nil {
			return err
		}

		for _, idx := range schema.Indexes {
			if _, err := idxs.CreateBucket([]byte(idx.Name)); err != nil {
				return err
			}
		}

		db.logger.Debug("collection created", "collection", schema.Name, "key_path", schema.KeyPath.String())

		return saveSchema(tx, schema)
	})
}

// DeleteCollection drops a collection and all of its records.
func (db *DB) DeleteCollection(name string) error {
	return db.update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta.Get([]byte(name)) == nil {
			return newError(NameNotFound, "collection %q does not exist", name)
		}

		if err := tx.DeleteBucket(collectionKey(name)); err != nil {
			return wrapError(NameUnknown, err, "delete collection %q", name)
		}

		db.logger.Debug("collection deleted", "collection", name)

		return meta.Delete([]byte(name))
	})
}

// CreateIndex adds an index to an existing collection and fills it from the
// records already stored.
func (db *DB) CreateIndex(collection string, idx IndexSchema) error {
	if err := idx.Validate(); err != nil {
		return err
	}

	return db.update(func(tx *bbolt.Tx) error {
		schema, ok, err := loadSchema(tx, collection)
		if err != nil {
			return err
		}

		if !ok {
			return newError(NameNotFound, "collection %q does not exist", collection)
		}

		if _, dup := schema.Index(idx.Name); dup {
			return newError(NameConstraint, "index %q already exists on collection %q", idx.Name, collection)
		}

		cb := tx.Bucket(collectionKey(collection))

		ib, err := cb.Bucket([]byte(indexesBucket)).CreateBucket([]byte(idx.Name))
		if err != nil {
			return wrapError(NameUnknown, err, "create index %q", idx.Name)
		}

		if err := cb.Bucket([]byte(recordsBucket)).ForEach(func(pk, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}

			for _, ik := range indexKeys(idx, rec) {
				if idx.Unique {
					if err := checkUnique(ib, idx, ik, pk); err != nil {
						return err
					}
				}

				if err := ib.Put(entryKey(ik, pk), pk); err != nil {
					return err
				}
			}

			return nil
		}); err != nil {
			return err
		}

		schema.Indexes = append(schema.Indexes, idx)

		db.logger.Debug("index created", "collection", collection, "index", idx.Name)

		return saveSchema(tx, schema)
	})
}

// DeleteIndex removes an index; the records are untouched.
func (db *DB) DeleteIndex(collection, name string) error {
	return db.update(func(tx *bbolt.Tx) error {
		schema, ok, err := loadSchema(tx, collection)
		if err != nil {
			return err
		}

		if !ok {
			return newError(NameNotFound, "collection %q does not exist", collection)
		}

		kept := schema.Indexes[:0]
		found := false

		for _, idx := range schema.Indexes {
			if idx.Name == name {
				found = true
				continue
			}

			kept = append(kept, idx)
		}

		if !found {
			return newError(NameNotFound, "index %q does not exist on collection %q", name, collection)
		}

		schema.Indexes = kept

		if err := tx.Bucket(collectionKey(collection)).Bucket([]byte(indexesBucket)).DeleteBucket([]byte(name)); err != nil {
			return wrapError(NameUnknown, err, "delete index %q", name)
		}

		return saveSchema(tx, schema)
	})
}

// Collections lists collection names in sorted order.
func (db *DB) Collections() ([]string, error) {
	if !db.Valid() {
		return nil, newError(NameInvalidState, "database is closed")
	}

	var names []string

	err := db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})

	return names, err
}

// Schema returns the definition of a collection.
func (db *DB) Schema(name string) (CollectionSchema, error) {
	if !db.Valid() {
		return CollectionSchema{}, newError(NameInvalidState, "database is closed")
	}

	var schema CollectionSchema

	err := db.bolt.View(func(tx *bbolt.Tx) error {
		s, ok, err := loadSchema(tx, name)
		if err != nil {
			return err
		}

		if !ok {
			return newError(NameNotFound, "collection %q does not exist", name)
		}

		schema = s

		return nil
	})

	return schema, err
}

func collectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

func loadSchema(tx *bbolt.Tx, name string) (CollectionSchema, bool, error) {
	data := tx.Bucket([]byte(metaBucket)).Get([]byte(name))
	if data == nil {
		return CollectionSchema{}, false, nil
	}

	var schema CollectionSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return CollectionSchema{}, false, wrapError(NameUnknown, err, "decode schema of %q", name)
	}

	return schema, true, nil
}

func saveSchema(tx *bbolt.Tx, schema CollectionSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	return tx.Bucket([]byte(metaBucket)).Put([]byte(schema.Name), data)
}
