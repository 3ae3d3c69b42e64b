package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.etcd.io/bbolt"
)

// maxSafeSequence is the largest integer a float64 key holds exactly.
const maxSafeSequence = 1 << 53

// Collection is a collection handle bound to one transaction.
type Collection struct {
	tx     *Tx
	schema CollectionSchema
	bucket *bbolt.Bucket
}

func (c *Collection) Name() string { return c.schema.Name }
func (c *Collection) KeyPath() KeyPath { return c.schema.KeyPath }
func (c *Collection) AutoIncrement() bool { return c.schema.AutoIncrement }
func (c *Collection) Schema() CollectionSchema { return c.schema }
func (c *Collection) IndexNames() []string { return c.schema.IndexNames() }

// Index returns a read-only view over the named index.
func (c *Collection) Index(name string) (*Index, error) {
	if err := c.tx.checkActive(); err != nil {
		return nil, err
	}

	schema, ok := c.schema.Index(name)
	if !ok {
		return nil, newError(NameNotFound, "index %q does not exist on collection %q", name, c.schema.Name)
	}

	b := c.indexBucket(name)
	if b == nil {
		return nil, newError(NameNotFound, "index %q does not exist on collection %q", name, c.schema.Name)
	}

	return &Index{coll: c, schema: schema, bucket: b}, nil
}

// GetAll returns every record in primary key order.
func (c *Collection) GetAll() ([]Record, error) {
	if err := c.tx.checkActive(); err != nil {
		return nil, err
	}

	out := make([]Record, 0)

	err := c.records().ForEach(func(_, v []byte) error {
		rec, err := decodeRecord(v)
		if err != nil {
			return fmt.Errorf("collection %q: %w", c.schema.Name, err)
		}

		out = append(out, rec)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Get returns the record stored under key.
func (c *Collection) Get(key any) (Record, bool, error) {
	if err := c.tx.checkActive(); err != nil {
		return nil, false, err
	}

	enc, err := EncodeKey(key)
	if err != nil {
		return nil, false, err
	}

	data := c.records().Get(enc)
	if data == nil {
		return nil, false, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, false, err
	}

	return rec, true, nil
}

// Count returns the number of stored records.
func (c *Collection) Count() (int, error) {
	if err := c.tx.checkActive(); err != nil {
		return 0, err
	}

	return c.records().Stats().KeyN, nil
}

// Add inserts value; it fails with ErrConstraint if the key is taken.
func (c *Collection) Add(value Record) (any, error) {
	return c.store(value, false)
}

// Put inserts value or replaces the record stored under the same key.
func (c *Collection) Put(value Record) (any, error) {
	return c.store(value, true)
}

// Delete removes the record under a key, or every record inside a KeyRange,
// and returns how many were removed.
func (c *Collection) Delete(query any) (int, error) {
	if err := c.tx.checkWritable(); err != nil {
		return 0, err
	}

	var (
		r   KeyRange
		err error
	)

	switch q := query.(type) {
	case KeyRange:
		r = q
	case *KeyRange:
		if q == nil {
			return 0, newError(NameData, "nil key range")
		}

		r = *q
	default:
		if r, err = Only(query); err != nil {
			return 0, err
		}
	}

	type victim struct{ key, value []byte }

	var (
		victims []victim
		records = c.records()
		cur     = records.Cursor()
		k, v    []byte
	)

	if r.hasLower {
		k, v = cur.Seek(r.lowerEnc)
	} else {
		k, v = cur.First()
	}

	for ; k != nil; k, v = cur.Next() {
		if r.aboveUpper(k) {
			break
		}

		if r.belowLower(k) {
			continue
		}

		victims = append(victims, victim{
			key:   append([]byte(nil), k...),
			value: append([]byte(nil), v...),
		})
	}

	for _, vic := range victims {
		old, err := decodeRecord(vic.value)
		if err != nil {
			return 0, err
		}

		if err := c.unindex(old, vic.key); err != nil {
			return 0, err
		}

		if err := records.Delete(vic.key); err != nil {
			return 0, wrapError(NameUnknown, err, "delete from %q", c.schema.Name)
		}
	}

	return len(victims), nil
}

// Clear removes every record. Indexes stay defined and the key generator
// keeps its position.
func (c *Collection) Clear() error {
	if err := c.tx.checkWritable(); err != nil {
		return err
	}

	seq := c.records().Sequence()

	if err := c.bucket.DeleteBucket([]byte(recordsBucket)); err != nil {
		return wrapError(NameUnknown, err, "clear %q", c.schema.Name)
	}

	rb, err := c.bucket.CreateBucket([]byte(recordsBucket))
	if err != nil {
		return wrapError(NameUnknown, err, "clear %q", c.schema.Name)
	}

	if err := rb.SetSequence(seq); err != nil {
		return err
	}

	idxs := c.bucket.Bucket([]byte(indexesBucket))

	for _, idx := range c.schema.Indexes {
		if err := idxs.DeleteBucket([]byte(idx.Name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return wrapError(NameUnknown, err, "clear index %q", idx.Name)
		}

		if _, err := idxs.CreateBucket([]byte(idx.Name)); err != nil {
			return wrapError(NameUnknown, err, "clear index %q", idx.Name)
		}
	}

	return nil
}

func (c *Collection) store(value Record, overwrite bool) (any, error) {
	if err := c.tx.checkWritable(); err != nil {
		return nil, err
	}

	if value == nil {
		return nil, newError(NameData, "record is nil")
	}

	rec, err := CloneRecord(value)
	if err != nil {
		return nil, err
	}

	key, err := c.primaryKey(rec)
	if err != nil {
		return nil, err
	}

	var (
		pk       = appendKey(nil, key)
		records  = c.records()
		existing = records.Get(pk)
	)

	if existing != nil && !overwrite {
		return nil, newError(NameConstraint, "key %v already exists in collection %q", key, c.schema.Name)
	}

	entries, err := c.indexEntries(rec)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.schema.Unique {
			if err := checkUnique(e.bucket, e.schema, e.key, pk); err != nil {
				return nil, err
			}
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, wrapError(NameData, err, "encode record")
	}

	if existing != nil {
		old, err := decodeRecord(existing)
		if err != nil {
			return nil, err
		}

		if err := c.unindex(old, pk); err != nil {
			return nil, err
		}
	}

	for _, e := range entries {
		if err := e.bucket.Put(entryKey(e.key, pk), pk); err != nil {
			return nil, wrapError(NameUnknown, err, "write index %q", e.schema.Name)
		}
	}

	if err := records.Put(pk, data); err != nil {
		return nil, wrapError(NameUnknown, err, "write record to %q", c.schema.Name)
	}

	return key, nil
}

// primaryKey resolves the key of rec, drawing from the key generator when the
// collection has one and the record carries no key.
func (c *Collection) primaryKey(rec Record) (any, error) {
	kp := c.schema.KeyPath

	if !kp.IsZero() {
		if raw, ok := kp.Extract(rec); ok {
			key, err := NormalizeKey(raw)
			if err != nil {
				return nil, wrapError(NameData, err, "key at %q", kp.String())
			}

			if c.schema.AutoIncrement {
				if err := c.advanceSequence(key); err != nil {
					return nil, err
				}
			}

			return key, nil
		}

		if !c.schema.AutoIncrement {
			return nil, newError(NameData, "record has no value at key path %q", kp.String())
		}

		key, err := c.nextKey()
		if err != nil {
			return nil, err
		}

		if err := kp.Inject(rec, key); err != nil {
			return nil, err
		}

		return key, nil
	}

	if !c.schema.AutoIncrement {
		return nil, newError(NameData, "collection %q keeps keys outside records and has no key generator", c.schema.Name)
	}

	return c.nextKey()
}

func (c *Collection) nextKey() (any, error) {
	seq, err := c.records().NextSequence()
	if err != nil {
		return nil, wrapError(NameUnknown, err, "next key for %q", c.schema.Name)
	}

	if seq > maxSafeSequence {
		return nil, newError(NameConstraint, "key generator of %q is exhausted", c.schema.Name)
	}

	return float64(seq), nil
}

// advanceSequence moves the generator past an explicit numeric key.
func (c *Collection) advanceSequence(key any) error {
	f, ok := key.(float64)
	if !ok || f < 1 {
		return nil
	}

	next := math.Floor(math.Min(f, maxSafeSequence))

	records := c.records()
	if uint64(next) <= records.Sequence() {
		return nil
	}

	return records.SetSequence(uint64(next))
}

type indexEntry struct {
	schema IndexSchema
	bucket *bbolt.Bucket
	key    []byte
}

func (c *Collection) indexEntries(rec Record) ([]indexEntry, error) {
	var out []indexEntry

	for _, idx := range c.schema.Indexes {
		b := c.indexBucket(idx.Name)
		if b == nil {
			return nil, newError(NameUnknown, "index %q of %q has no storage", idx.Name, c.schema.Name)
		}

		for _, ik := range indexKeys(idx, rec) {
			out = append(out, indexEntry{schema: idx, bucket: b, key: ik})
		}
	}

	return out, nil
}

func (c *Collection) unindex(old Record, pk []byte) error {
	entries, err := c.indexEntries(old)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := e.bucket.Delete(entryKey(e.key, pk)); err != nil {
			return wrapError(NameUnknown, err, "update index %q", e.schema.Name)
		}
	}

	return nil
}

func (c *Collection) records() *bbolt.Bucket {
	return c.bucket.Bucket([]byte(recordsBucket))
}

func (c *Collection) indexBucket(name string) *bbolt.Bucket {
	idxs := c.bucket.Bucket([]byte(indexesBucket))
	if idxs == nil {
		return nil
	}

	return idxs.Bucket([]byte(name))
}

// indexKeys returns the encoded index keys of rec. Records without a valid
// key at the index key path are not indexed.
func indexKeys(idx IndexSchema, rec Record) [][]byte {
	raw, ok := idx.KeyPath.Extract(rec)
	if !ok {
		return nil
	}

	if arr, isArr := raw.([]any); isArr && idx.MultiEntry {
		var (
			out  [][]byte
			seen = make(map[string]struct{}, len(arr))
		)

		for _, elem := range arr {
			k, err := NormalizeKey(elem)
			if err != nil {
				continue
			}

			enc := appendKey(nil, k)
			if _, dup := seen[string(enc)]; dup {
				continue
			}

			seen[string(enc)] = struct{}{}
			out = append(out, enc)
		}

		return out
	}

	k, err := NormalizeKey(raw)
	if err != nil {
		return nil
	}

	return [][]byte{appendKey(nil, k)}
}

// checkUnique fails if ik is already indexed for a different primary key.
// An entry is ik followed by a primary key, which always starts with a type
// tag. An escape byte right after ik means a longer string or binary key
// that merely shares ik as a prefix.
func checkUnique(b *bbolt.Bucket, idx IndexSchema, ik, pk []byte) error {
	cur := b.Cursor()

	for k, v := cur.Seek(ik); k != nil && bytes.HasPrefix(k, ik); k, v = cur.Next() {
		if len(k) > len(ik) && k[len(ik)] == escapeByte {
			continue
		}

		if !bytes.Equal(v, pk) {
			return newError(NameConstraint, "unique index %q already holds this key", idx.Name)
		}
	}

	return nil
}

func entryKey(ik, pk []byte) []byte {
	out := make([]byte, 0, len(ik)+len(pk))
	out = append(out, ik...)

	return append(out, pk...)
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	return rec, nil
}

// CloneRecord deep-copies v through its JSON form, so numbers become float64
// and values without a JSON encoding are rejected.
func CloneRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, wrapError(NameData, err, "record is not serializable")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, wrapError(NameData, err, "record must be an object")
	}

	if rec == nil {
		return nil, newError(NameData, "record must be an object")
	}

	return rec, nil
}
