package ledgerstate

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/kv"
)

// AccountStore persists Account rows in a durable KvStore, one JSON blob
// per address.
type AccountStore struct {
	kv kv.KvStore
}

// NewAccountStore wraps store for account persistence.
func NewAccountStore(store kv.KvStore) *AccountStore {
	return &AccountStore{kv: store}
}

// Load returns the account at addr, or nil if none is persisted.
func (s *AccountStore) Load(addr common.Address) (*account.Account, error) {
	data, found, err := s.kv.Get(accountKey(addr))
	if err != nil {
		return nil, fmt.Errorf("ledgerstate: load account %s: %w", addr, err)
	}
	if !found {
		return nil, nil
	}
	var acc account.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("ledgerstate: decode account %s: %w", addr, err)
	}
	if acc.Metadata == nil {
		acc.Metadata = make(map[string]account.MetadataEntry)
	}
	if acc.Assets == nil {
		acc.Assets = make(map[asset.Key]asset.Store)
	}
	return &acc, nil
}

// Save persists acc.
func (s *AccountStore) Save(acc *account.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("ledgerstate: encode account %s: %w", acc.Address, err)
	}
	return s.kv.Set(accountKey(acc.Address), data)
}
