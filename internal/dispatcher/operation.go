// Package dispatcher replaces the source's virtual per-operation-type
// dispatch with a single Dispatch function over a tagged union of
// operation structs.
package dispatcher

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/price"
)

// Operation is the tagged union of every operation Dispatch understands.
// Each concrete type below implements it via the unexported isOperation
// marker method.
type Operation interface {
	isOperation()
}

// CreateAccount funds a brand-new account from Source.
type CreateAccount struct {
	Source      common.Address
	Dest        common.Address
	InitBalance int64
	Priv        account.Privilege
	Metadata    map[string]account.MetadataEntry
	Contract    *account.ContractPayload
}

// Payment transfers a native or issued asset between two accounts.
type Payment struct {
	Source common.Address
	Dest   common.Address
	Asset  asset.Key
	Amount int64
}

// ProcessOrder places, updates, or cancels a resting order and runs the
// matcher against the counter side of the book.
type ProcessOrder struct {
	Source     common.Address
	TxHash     string
	OrderID    string // empty => insert
	Selling    asset.Key
	Buying     asset.Key
	Amount     int64
	Price      price.Price
	FeePercent uint32
	Passive    bool
}

// IssueAsset increases IssuedAmount against MaxSupply on the issuer's own
// Property row and credits Dest.
type IssueAsset struct {
	Issuer common.Address
	Dest   common.Address
	Asset  asset.Key
	Amount int64
}

// RegisterAsset creates the issuer-side Property row for a new asset key.
type RegisterAsset struct {
	Issuer     common.Address
	Asset      asset.Key
	MaxSupply  int64
	FeePercent uint32
}

// SetAssetFee mutates the fee percentage of an existing issuer Property row.
type SetAssetFee struct {
	Issuer     common.Address
	Asset      asset.Key
	FeePercent uint32
}

// SetMetadata installs or overwrites a version-monotonic metadata entry.
type SetMetadata struct {
	Source      common.Address
	Key         string
	Value       string
	NewVersion  uint32
	HasExplicit bool // true if NewVersion was supplied explicitly by the caller
}

// SetSignerWeight adds, updates, or (weight 0) removes a signer.
type SetSignerWeight struct {
	Source common.Address
	Signer common.Address
	Weight uint32
}

// SetThreshold updates the account's tx threshold and/or a per-type threshold.
type SetThreshold struct {
	Source       common.Address
	TxThreshold  uint32
	OpType       uint32 // 0 means "do not set a per-type threshold"
	TypeWeight   uint32
}

func (CreateAccount) isOperation()   {}
func (Payment) isOperation()         {}
func (ProcessOrder) isOperation()    {}
func (IssueAsset) isOperation()      {}
func (RegisterAsset) isOperation()   {}
func (SetAssetFee) isOperation()     {}
func (SetMetadata) isOperation()     {}
func (SetSignerWeight) isOperation() {}
func (SetThreshold) isOperation()    {}
