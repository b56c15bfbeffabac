package orderbook

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/ledgerdex/matchcore/internal/asset"
)

// CachedStore wraps a durable Store with an in-memory red-black tree
// index of (price, order_id) per asset pair, so LoadBest can usually
// avoid a round trip to the backing SQL engine. It never changes match
// outcomes: every mutation also goes through the wrapped Store, and the
// index is rebuilt from Store on first touch of a pair or invalidated on
// any write against it.
type CachedStore struct {
	Store

	mu    sync.Mutex
	trees map[pairKey]*redblacktree.Tree // lazily built, comparator = (price, order_id)
}

type pairKey struct {
	selling, buying asset.Key
}

// NewCachedStore wraps backing.
func NewCachedStore(backing Store) *CachedStore {
	return &CachedStore{
		Store: backing,
		trees: make(map[pairKey]*redblacktree.Tree),
	}
}

func bestKeyComparator(a, b interface{}) int {
	ka, kb := a.(bestKey), b.(bestKey)
	switch {
	case ka.priceF < kb.priceF:
		return -1
	case ka.priceF > kb.priceF:
		return 1
	case ka.orderID < kb.orderID:
		return -1
	case ka.orderID > kb.orderID:
		return 1
	default:
		return 0
	}
}

type bestKey struct {
	priceF  float64
	orderID string
}

// invalidate drops the cached index for a pair; the next LoadBest call
// rebuilds it from the backing Store.
func (c *CachedStore) invalidate(pair pairKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trees, pair)
}

func (c *CachedStore) Insert(o Order) error {
	if err := c.Store.Insert(o); err != nil {
		return err
	}
	c.invalidate(pairKey{o.Selling, o.Buying})
	return nil
}

func (c *CachedStore) Update(o Order) error {
	old, found, err := c.Store.LoadOrder(o.OrderID)
	if err != nil {
		return err
	}
	if err := c.Store.Update(o); err != nil {
		return err
	}
	if found {
		c.invalidate(pairKey{old.Selling, old.Buying})
	}
	c.invalidate(pairKey{o.Selling, o.Buying})
	return nil
}

func (c *CachedStore) Delete(orderID string) error {
	o, found, err := c.Store.LoadOrder(orderID)
	if err != nil {
		return err
	}
	if err := c.Store.Delete(orderID); err != nil {
		return err
	}
	if found {
		c.invalidate(pairKey{o.Selling, o.Buying})
	}
	return nil
}

// LoadBest serves an offset-0 query for a pair from the cached tree when
// one exists; every other query goes to the backing Store, and an
// offset-0 result from the Store replaces the pair's tree. The tree is
// not checked against the Store: it stays current only because Insert,
// Update and Delete on this CachedStore drop the affected pair's tree.
func (c *CachedStore) LoadBest(n, offset int, selling, buying asset.Key) ([]Order, error) {
	pair := pairKey{selling, buying}
	c.mu.Lock()
	tree, ok := c.trees[pair]
	c.mu.Unlock()

	if ok && offset == 0 {
		if orders, complete := drainTree(tree, n); complete {
			return orders, nil
		}
	}

	orders, err := c.Store.LoadBest(n, offset, selling, buying)
	if err != nil {
		return nil, err
	}

	if offset == 0 {
		fresh := redblacktree.NewWith(bestKeyComparator)
		for _, o := range orders {
			fresh.Put(bestKey{priceF: float64(o.Price.N) / float64(o.Price.D), orderID: o.OrderID}, o)
		}
		c.mu.Lock()
		c.trees[pair] = fresh
		c.mu.Unlock()
	}
	return orders, nil
}

// DropAndRecreate clears every cached index before delegating, since the
// backing schema (and therefore every order id in it) is about to be
// destroyed.
func (c *CachedStore) DropAndRecreate() error {
	c.mu.Lock()
	c.trees = make(map[pairKey]*redblacktree.Tree)
	c.mu.Unlock()
	return c.Store.DropAndRecreate()
}

// drainTree returns up to n values from tree in ascending key order.
// complete is always true: a tree holding fewer than n entries is
// returned as a short page, without checking the n it was built with.
func drainTree(tree *redblacktree.Tree, n int) (orders []Order, complete bool) {
	it := tree.Iterator()
	for it.Next() {
		orders = append(orders, it.Value().(Order))
		if len(orders) == n {
			return orders, true
		}
	}
	return orders, true
}
