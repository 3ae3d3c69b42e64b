// Package engine is the transactional keyed-record store behind recstore.
//
// A database file holds named collections. Each collection stores records
// (JSON objects) under a primary key that either lives inside the record at
// the collection's [KeyPath] or is drawn from a key generator. Collections may
// carry secondary indexes, which are read-only views ordered by another key.
//
// # Transactions
//
// Every read and write happens inside a [Tx] opened with [DB.Begin] over a
// fixed scope of collections:
//
//	tx, err := db.Begin([]string{"users"}, engine.ModeReadWrite, engine.DurabilityStrict)
//	users, _ := tx.Collection("users")
//	if _, err := users.Add(engine.Record{"id": "1", "name": "Alice"}); err != nil {
//		_ = tx.Abort()
//		return err
//	}
//	return tx.Commit()
//
// A request returning nil only means it was accepted; the transaction's
// Commit result is the final outcome.
//
// # Keys
//
// Valid keys are numbers, strings, [time.Time], byte slices and arrays of
// keys. They are stored with an order-preserving encoding, so records and
// index entries come back in key order: numbers sort before dates, dates
// before strings, strings before binary keys and binary keys before arrays.
//
// # Storage
//
// The file is a bbolt database. Schemas live in the "__meta__" bucket; each
// collection owns a "c:<name>" bucket with nested "records" and "indexes"
// buckets.
package engine
