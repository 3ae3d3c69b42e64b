// Package action executes single read or write actions against a collection.
//
// An [Executor] is built for one [Kind] and one collection, optionally
// configured, then run with Execute:
//
//	ex, err := action.New(action.Write, db, "users")
//	if err != nil {
//		return err
//	}
//
//	_, err = ex.WithPayload(map[string]any{"id": "1", "name": "Alice"}).
//		WithDurability(engine.DurabilityStrict).
//		Execute(ctx)
//
// Each Execute opens exactly one transaction over the target collection and
// returns after that transaction has committed or failed. Write inserts only
// when the key is free; Update replaces the whole record stored under the
// payload's key; Delete removes one key or an [engine.KeyRange]; Clear empties
// the collection but keeps its indexes. Read returns every record, in index
// order when WithIndex names an existing index and in primary key order
// otherwise.
package action
