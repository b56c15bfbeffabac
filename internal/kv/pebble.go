package kv

import (
	"github.com/cockroachdb/pebble"
)

// PebbleKV adapts a cockroachdb/pebble database to KvStore. Every write
// uses pebble.Sync so a crash after a returned nil error never loses the
// write, matching the durability the account manager relies on.
type PebbleKV struct {
	db *pebble.DB
}

// OpenPebbleKV opens (creating if absent) a Pebble database at path.
func OpenPebbleKV(path string) (*PebbleKV, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleKV{db: db}, nil
}

func (p *PebbleKV) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (p *PebbleKV) Set(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleKV) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

type pebbleBatch struct {
	b *pebble.Batch
}

func (p *PebbleKV) NewBatch() Batch {
	return &pebbleBatch{b: p.db.NewBatch()}
}

func (pb *pebbleBatch) Set(key, value []byte) { _ = pb.b.Set(key, value, nil) }
func (pb *pebbleBatch) Delete(key []byte)      { _ = pb.b.Delete(key, nil) }

func (p *PebbleKV) ApplyBatch(b Batch) error {
	pb, ok := b.(*pebbleBatch)
	if !ok {
		return errBatchType
	}
	return p.db.Apply(pb.b, pebble.Sync)
}

type pebbleIter struct {
	it *pebble.Iterator
}

func (p *PebbleKV) NewIter(lowerBound, upperBound []byte) (Iterator, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return nil, err
	}
	return &pebbleIter{it: it}, nil
}

func (i *pebbleIter) First() bool      { return i.it.First() }
func (i *pebbleIter) Next() bool       { return i.it.Next() }
func (i *pebbleIter) Last() bool       { return i.it.Last() }
func (i *pebbleIter) Prev() bool       { return i.it.Prev() }
func (i *pebbleIter) Valid() bool      { return i.it.Valid() }
func (i *pebbleIter) Key() []byte      { return i.it.Key() }
func (i *pebbleIter) Value() []byte    { return i.it.Value() }
func (i *pebbleIter) Close() error     { return i.it.Close() }

func (p *PebbleKV) Close() error { return p.db.Close() }

type batchTypeError string

func (e batchTypeError) Error() string { return string(e) }

const errBatchType = batchTypeError("kv: batch was not created by this PebbleKV")
