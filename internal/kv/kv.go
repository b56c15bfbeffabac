// Package kv defines the generic durable key/value contract used by the
// account store, and a Pebble-backed implementation of it.
package kv

import "io"

// Iterator walks a contiguous key range in ascending order. Valid must be
// checked after First/Next/Last/Prev before calling Key or Value.
type Iterator interface {
	First() bool
	Next() bool
	Last() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	io.Closer
}

// Batch accumulates writes for atomic application via KvStore.ApplyBatch.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
}

// KvStore is the durable storage contract the account layer is built on
// (the order book lives in internal/sqlbook instead). Keys are caller-defined byte strings; KvStore
// itself holds no schema knowledge.
type KvStore interface {
	Get(key []byte) (value []byte, found bool, err error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	ApplyBatch(b Batch) error
	// NewIter returns an Iterator bounded to [lowerBound, upperBound).
	NewIter(lowerBound, upperBound []byte) (Iterator, error)
	Close() error
}

// UpperBound returns the exclusive upper bound for a prefix scan: prefix
// cut after its last non-0xFF byte, with that byte incremented. It panics
// on an all-0xFF prefix, which none of this package's key schemas produce.
func UpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] != 0xFF {
			bound[i]++
			return bound[:i+1]
		}
		bound[i] = 0
	}
	panic("kv.UpperBound: prefix is all 0xFF, no exclusive upper bound exists")
}
