package orderbook

import "github.com/ledgerdex/matchcore/internal/asset"

// Store is the contract the matcher and dispatcher use to read and
// mutate resting orders. update and delete must fail hard (return a
// non-nil error) when zero rows were affected; callers treat that as
// fatal rather than retrying.
type Store interface {
	// LoadOrder returns the order with the given id, or found=false if
	// no such row exists.
	LoadOrder(orderID string) (order Order, found bool, err error)

	// Insert adds a brand-new row. Insert of a duplicate order_id is a
	// programmer error and may return any non-nil error.
	Insert(order Order) error

	// Update replaces an existing row in place, keyed by OrderID. It
	// fails hard (non-nil error) if no row with that id existed.
	Update(order Order) error

	// Delete removes the row with orderID. It fails hard (non-nil
	// error) if no such row existed.
	Delete(orderID string) error

	// LoadBest returns up to n orders selling `selling` for `buying`,
	// starting at offset, ordered by (price ASC, order_id ASC).
	LoadBest(n, offset int, selling, buying asset.Key) ([]Order, error)

	// Count returns the number of rows with LastModifiedBlock in
	// [fromBlock, toBlock], inclusive, for auditing.
	Count(fromBlock, toBlock int64) (int, error)

	// DropAndRecreate destroys and recreates the underlying schema. It
	// must only be called at cold start, never while the matcher holds
	// any cached prepared statement referencing the old schema.
	DropAndRecreate() error
}
