// Package account defines the ledger's per-address state: native balance,
// signer privileges, metadata, and the generic map of issued-asset
// holdings the matcher debits and credits during settlement.
package account

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ledgerdex/matchcore/internal/asset"
)

// Signer is one entry in an account's multi-signature set.
type Signer struct {
	Address common.Address
	Weight  uint32
}

// Thresholds gates which operations a signature set of a given combined
// weight is allowed to authorize.
type Thresholds struct {
	TxThreshold  uint32
	PerType      map[uint32]uint32 // operation type (0,100] -> required weight
}

// Privilege holds an account's master weight, its additional signers, and
// its operation thresholds.
type Privilege struct {
	MasterWeight uint32
	Signers      []Signer
	Thresholds   Thresholds
}

// SumSignerWeight returns the combined weight of all signers (not
// including MasterWeight). Callers must keep this <= math.MaxUint32.
func (p Privilege) SumSignerWeight() uint64 {
	var sum uint64
	for _, s := range p.Signers {
		sum += uint64(s.Weight)
	}
	return sum
}

// ContractPayload is the optional embedded script attached to an account
// at creation time.
type ContractPayload struct {
	Code    []byte
	Version uint32
}

// MetadataEntry is a version-monotonic key/value pair.
type MetadataEntry struct {
	Value   string
	Version uint32
}

// Account is the full ledger state for one address.
type Account struct {
	Address  common.Address
	Balance  int64
	Priv     Privilege
	Contract *ContractPayload
	Metadata map[string]MetadataEntry
	Assets   map[asset.Key]asset.Store
}

// New creates an empty account at addr with no balance, assets, or
// metadata.
func New(addr common.Address) *Account {
	return &Account{
		Address:  addr,
		Metadata: make(map[string]MetadataEntry),
		Assets:   make(map[asset.Key]asset.Store),
	}
}

// AssetStore returns the account's holding of key, or the zero Store if
// it holds none.
func (a *Account) AssetStore(key asset.Key) asset.Store {
	return a.Assets[key]
}

// SetAssetStore installs s as the account's holding of key.
func (a *Account) SetAssetStore(key asset.Key, s asset.Store) {
	a.Assets[key] = s
}

// Validate checks the account invariants: balance at or above
// baseReserve, signer weights summing within uint32 range, and unique,
// well-formed per-type thresholds.
func (a *Account) Validate(baseReserve int64) error {
	if a.Balance < baseReserve {
		return fmt.Errorf("account %s: balance %d below base reserve %d", a.Address, a.Balance, baseReserve)
	}
	if a.Priv.SumSignerWeight() > (1<<32 - 1) {
		return fmt.Errorf("account %s: signer weights overflow uint32", a.Address)
	}
	for typ := range a.Priv.Thresholds.PerType {
		if typ == 0 || typ > 100 {
			return fmt.Errorf("account %s: invalid per-type threshold key %d", a.Address, typ)
		}
	}
	for key, s := range a.Assets {
		if !s.Valid() {
			return fmt.Errorf("account %s: invalid asset store for %+v", a.Address, key)
		}
	}
	return nil
}

// AddBalance credits delta (which may be negative) onto the native
// balance, rejecting the mutation if the result would fall below
// baseReserve. This mirrors the source's add_balance guard used during
// settlement credits.
func (a *Account) AddBalance(delta, baseReserve int64) error {
	next := a.Balance + delta
	if next < baseReserve {
		return fmt.Errorf("account %s: add_balance(%d) would bring balance to %d, below reserve %d", a.Address, delta, next, baseReserve)
	}
	a.Balance = next
	return nil
}
