package ledgerstate

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ledgerdex/matchcore/internal/account"
)

// Environment is a scoped overlay over the durable account store. It
// caches Account handles retrieved via GetEntry; on Flush, every account
// touched this transaction is written back. One Environment is created
// per operation execution and discarded (never flushed) on failure, so a
// panic partway through an operation leaves durable state untouched.
type Environment struct {
	store *AccountStore
	cache map[common.Address]*account.Account
}

// NewEnvironment creates an Environment backed by store.
func NewEnvironment(store *AccountStore) *Environment {
	return &Environment{
		store: store,
		cache: make(map[common.Address]*account.Account),
	}
}

// GetEntry returns the account at addr, loading it from the durable store
// on first access within this Environment. It returns (nil, false) if no
// such account exists anywhere.
func (e *Environment) GetEntry(addr common.Address) (*account.Account, bool, error) {
	if acc, ok := e.cache[addr]; ok {
		return acc, true, nil
	}
	acc, err := e.store.Load(addr)
	if err != nil {
		return nil, false, err
	}
	if acc == nil {
		return nil, false, nil
	}
	e.cache[addr] = acc
	return acc, true, nil
}

// AddEntry inserts a freshly constructed account into the overlay. It
// does not check for a pre-existing account; callers must resolve
// ACCOUNT_DEST_EXIST before calling.
func (e *Environment) AddEntry(acc *account.Account) {
	e.cache[acc.Address] = acc
}

// Touched returns every account this Environment has loaded or added,
// in no particular order.
func (e *Environment) Touched() []*account.Account {
	out := make([]*account.Account, 0, len(e.cache))
	for _, acc := range e.cache {
		out = append(out, acc)
	}
	return out
}

// Flush writes every touched account back to the durable store. Call
// this only after an operation has fully succeeded.
func (e *Environment) Flush() error {
	for _, acc := range e.cache {
		if err := e.store.Save(acc); err != nil {
			return err
		}
	}
	return nil
}
