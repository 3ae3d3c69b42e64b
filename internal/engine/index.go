package engine

import "go.etcd.io/bbolt"

// Index is a read-only view over a collection ordered by the index key.
type Index struct {
	coll   *Collection
	schema IndexSchema
	bucket *bbolt.Bucket
}

func (i *Index) Name() string { return i.schema.Name }
func (i *Index) KeyPath() KeyPath { return i.schema.KeyPath }
func (i *Index) Unique() bool { return i.schema.Unique }
func (i *Index) MultiEntry() bool { return i.schema.MultiEntry }
func (i *Index) Schema() IndexSchema { return i.schema }

// GetAll returns the indexed records in index key order, ties broken by
// primary key. A multi-entry index yields a record once per entry.
func (i *Index) GetAll() ([]Record, error) {
	if err := i.coll.tx.checkActive(); err != nil {
		return nil, err
	}

	var (
		out     = make([]Record, 0)
		records = i.coll.records()
	)

	err := i.bucket.ForEach(func(_, pk []byte) error {
		data := records.Get(pk)
		if data == nil {
			return newError(NameUnknown, "index %q points at a missing record", i.schema.Name)
		}

		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}

		out = append(out, rec)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Count returns the number of index entries.
func (i *Index) Count() (int, error) {
	if err := i.coll.tx.checkActive(); err != nil {
		return 0, err
	}

	return i.bucket.Stats().KeyN, nil
}
