// Package orderbook defines the persisted Order and ClaimOrder rows, the
// canonical order-id codec, and the Store contract a SQL or cached
// backend must satisfy.
package orderbook

import (
	"fmt"

	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/price"
)

// FlagPassive is the one bit currently defined in Order.Flags: a passive
// order never crosses at a price equal to its own limit.
const FlagPassive = 1

// Order is a resting or about-to-be-inserted book row. SellerAddress is a
// hex string rather than common.Address so Order round-trips through
// orderbook.Store implementations (SQL text columns, JSON) without an
// extra conversion layer.
type Order struct {
	SellerAddress    string
	OrderID          string
	Selling          asset.Key
	Buying           asset.Key
	Amount           int64
	Price            price.Price
	FeePercent       uint32
	Flags            int
	TxHash           string
	OpIndex          int
	LastModifiedBlock int64
}

// IsPassive reports whether FlagPassive is set.
func (o Order) IsPassive() bool { return o.Flags&FlagPassive != 0 }

// ClaimOrder records one fill applied against a resting order. It is
// created exclusively by the matcher.
type ClaimOrder struct {
	SellerAddress string
	OrderID       string
	TxHash        string
	Price         price.Price
	AssetSold     asset.Key
	AmountSold    int64
	AssetBought   asset.Key
	AmountBought  int64
}

// String renders o for diagnostics.
func (o Order) String() string {
	return fmt.Sprintf("Order{id=%s seller=%s selling=%+v buying=%+v amount=%d price=%d/%d}",
		o.OrderID, o.SellerAddress, o.Selling, o.Buying, o.Amount, o.Price.N, o.Price.D)
}
