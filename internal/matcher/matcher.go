// Package matcher implements the crossing loop that walks a resting
// order book against a taker's order, applying exchange.Exchange one
// resting row at a time.
package matcher

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/exchange"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/price"
)

// FeeBase is the denominator fee_percent is expressed against (e.g. a
// fee_percent of 30 against FeeBase 10000 is 0.3%).
const FeeBase = 10000

// pageSize is the number of rows fetched per load_best call. Fixed at 5
// per the book's paging contract.
const pageSize = 5

// Decision is the outcome of a Filter applied to one resting order.
type Decision int

const (
	Keep Decision = iota
	Stop
	Skip
)

// Filter inspects a resting order before it is crossed and decides
// whether to cross it (Keep), abandon the walk entirely (Stop), or pass
// over it without consuming it (Skip).
type Filter func(resting orderbook.Order) Decision

// ConvertStatus is the terminal status of ConvertWithOrders.
type ConvertStatus int

const (
	OK ConvertStatus = iota
	Partial
	FilterStopped
)

// CrossStatus is the outcome of a single CrossOrder call.
type CrossStatus int

const (
	OrderTaken CrossStatus = iota
	OrderPartial
	OrderCantConvert
)

// Matcher crosses a taker's desired trade against a resting book and the
// account overlay both sides settle through.
type Matcher struct {
	Book orderbook.Store
	Env  *ledgerstate.Environment
	Fees feeconfig.Config
}

// maxInt64 is the saturation ceiling big_divide falls back to on overflow.
const maxInt64 = int64(1<<63 - 1)

// canBuyAtMost bounds the wheat a taker could receive before the
// resulting sheep payment would overflow int64. Native coin has no
// supply ceiling to worry about, so it returns maxInt64 directly.
func canBuyAtMost(sheep asset.Key, p price.Price) int64 {
	if sheep.IsNative() {
		return maxInt64
	}
	v, ok := price.BigDivide(maxInt64, int64(p.D), int64(p.N), price.RoundDown)
	if !ok {
		return maxInt64
	}
	return v
}

// canSellAtMost bounds how much of `wheat` the resting seller actually
// has available: free native balance above the reserve, or the stored
// asset amount for an issued asset.
func canSellAtMost(sellerBalance int64, baseReserve int64, wheat asset.Key, sellerAssets map[asset.Key]int64) int64 {
	if wheat.IsNative() {
		avail := sellerBalance - baseReserve
		if avail < 0 {
			return 0
		}
		return avail
	}
	return sellerAssets[wheat]
}

// CrossOrder applies a single resting order against the taker's
// remaining caps. txHash identifies the taker's originating operation
// for the emitted ClaimOrder. It returns the status, the wheat and sheep
// amounts consumed, and — when a non-zero fill was applied — the fill
// record to append to the taker's trail (nil for OrderCantConvert and for
// a degenerate resting row removed with a zero fill).
//
// A missing resting-seller account is a fatal invariant violation: the
// book referenced an account the ledger has no record of. It panics
// rather than returning an error, mirroring the source's PROCESS_EXIT.
func (m *Matcher) CrossOrder(resting orderbook.Order, takerAcc *account.Account, takerSelling asset.Key, maxWheatReceive, maxSheepSend int64, txHash string) (CrossStatus, int64, int64, *orderbook.ClaimOrder, error) {
	sellerAddr := common.HexToAddress(resting.SellerAddress)
	sellerAcc, found, err := m.Env.GetEntry(sellerAddr)
	if err != nil {
		return OrderCantConvert, 0, 0, nil, err
	}
	if !found {
		panic(fmt.Sprintf("matcher: resting order %s references unknown account %s", resting.OrderID, resting.SellerAddress))
	}

	sellerAssetAmounts := make(map[asset.Key]int64, len(sellerAcc.Assets))
	for k, s := range sellerAcc.Assets {
		sellerAssetAmounts[k] = s.Amount
	}

	numWheatReceived := canBuyAtMost(takerSelling, resting.Price)
	if v := canSellAtMost(sellerAcc.Balance, m.Fees.BaseReserve, resting.Selling, sellerAssetAmounts); v < numWheatReceived {
		numWheatReceived = v
	}
	if resting.Amount < numWheatReceived {
		numWheatReceived = resting.Amount
	}

	result := exchange.Exchange(numWheatReceived, resting.Price, maxWheatReceive, maxSheepSend)

	var orderTaken bool
	switch result.Classify() {
	case exchange.ReducedToZero:
		return OrderCantConvert, 0, 0, nil, nil
	case exchange.Bogus:
		result = exchange.Result{Wheat: 0, Sheep: 0, Reduced: result.Reduced}
		orderTaken = true
	default:
		orderTaken = numWheatReceived <= result.Wheat
	}

	if orderTaken {
		if err := m.Book.Delete(resting.OrderID); err != nil {
			return OrderCantConvert, 0, 0, nil, fmt.Errorf("matcher: delete %s: %w", resting.OrderID, err)
		}
	} else {
		remaining := resting
		remaining.Amount = numWheatReceived - result.Wheat
		if err := m.Book.Update(remaining); err != nil {
			return OrderCantConvert, 0, 0, nil, fmt.Errorf("matcher: update %s: %w", resting.OrderID, err)
		}
	}

	fee := result.Sheep * int64(resting.FeePercent) / FeeBase
	netSheep := result.Sheep - fee

	// The resting seller gives up `wheat` and receives `sheep` net of fee;
	// the fee itself is not credited here — disposition is delegated to a
	// higher asset-admin layer, this call site only reserves the allocation.
	if err := creditDebit(sellerAcc, m.Fees.BaseReserve, resting.Selling, resting.Buying, -result.Wheat, netSheep); err != nil {
		panic(fmt.Sprintf("matcher: invariant violation crediting %s: %v", resting.SellerAddress, err))
	}
	// The taker receives `wheat` and gives up `sheep` in full (pre-fee);
	// no fee is charged to the taker here or by the dispatcher.
	if err := creditDebit(takerAcc, m.Fees.BaseReserve, resting.Buying, resting.Selling, -result.Sheep, result.Wheat); err != nil {
		panic(fmt.Sprintf("matcher: invariant violation crediting taker: %v", err))
	}

	var claim *orderbook.ClaimOrder
	if result.Wheat > 0 || result.Sheep > 0 {
		claim = &orderbook.ClaimOrder{
			SellerAddress: resting.SellerAddress,
			OrderID:       resting.OrderID,
			TxHash:        txHash,
			Price:         resting.Price,
			AssetSold:     resting.Selling,
			AmountSold:    result.Wheat,
			AssetBought:   resting.Buying,
			AmountBought:  result.Sheep,
		}
	}

	status := OrderPartial
	if orderTaken {
		status = OrderTaken
	}
	return status, result.Wheat, result.Sheep, claim, nil
}

// ConvertWithOrders walks the resting (wheat, sheep) book page by page,
// crossing each row the filter keeps until either cap is exhausted, the
// filter signals Stop, or the book runs dry. It returns the accumulated
// amounts and the claim trail in book order.
func (m *Matcher) ConvertWithOrders(takerAcc *account.Account, wheat, sheep asset.Key, maxWheatReceive, maxSheepSend int64, txHash string, filter Filter) (ConvertStatus, int64, int64, []orderbook.ClaimOrder, error) {
	var sheepSent, wheatReceived int64
	var trail []orderbook.ClaimOrder
	offset := 0
	needMore := maxWheatReceive > 0 && maxSheepSend > 0

	for needMore {
		page, err := m.Book.LoadBest(pageSize, offset, wheat, sheep)
		if err != nil {
			return FilterStopped, sheepSent, wheatReceived, trail, err
		}
		offset += len(page)

		for _, resting := range page {
			switch filter(resting) {
			case Stop:
				return FilterStopped, sheepSent, wheatReceived, trail, nil
			case Skip:
				continue
			}

			status, w, s, claim, err := m.CrossOrder(resting, takerAcc, sheep, maxWheatReceive, maxSheepSend, txHash)
			if err != nil {
				return FilterStopped, sheepSent, wheatReceived, trail, err
			}
			if status == OrderCantConvert {
				return Partial, sheepSent, wheatReceived, trail, nil
			}
			if claim != nil {
				trail = append(trail, *claim)
			}

			sheepSent += s
			wheatReceived += w
			maxSheepSend -= s
			maxWheatReceive -= w

			if status == OrderTaken {
				offset--
			}

			if maxWheatReceive == 0 || maxSheepSend == 0 {
				return OK, sheepSent, wheatReceived, trail, nil
			}
			if status == OrderPartial {
				return Partial, sheepSent, wheatReceived, trail, nil
			}
		}

		needMore = maxWheatReceive > 0 && maxSheepSend > 0
		if !needMore {
			return OK, sheepSent, wheatReceived, trail, nil
		}
		if len(page) < pageSize {
			return OK, sheepSent, wheatReceived, trail, nil
		}
	}
	return OK, sheepSent, wheatReceived, trail, nil
}

// creditDebit applies wheatDelta (negative: the resting seller gives up
// wheat) and sheepDelta (positive: the resting seller receives sheep) to
// acc's balance or asset stores, enforcing the same guards add_balance
// and asset-amount overflow checks apply in the source.
func creditDebit(acc *account.Account, baseReserve int64, wheat, sheep asset.Key, wheatDelta, sheepDelta int64) error {
	if wheat.IsNative() {
		if err := acc.AddBalance(wheatDelta, baseReserve); err != nil {
			return err
		}
	} else {
		s := acc.AssetStore(wheat)
		next := s.Amount + wheatDelta
		if next < 0 {
			return fmt.Errorf("asset amount would go negative for %+v", wheat)
		}
		s.Amount = next
		acc.SetAssetStore(wheat, s)
	}

	if sheep.IsNative() {
		if err := acc.AddBalance(sheepDelta, baseReserve); err != nil {
			return err
		}
	} else {
		s := acc.AssetStore(sheep)
		next := s.Amount + sheepDelta
		if s.Property != nil && next > s.Property.MaxSupply {
			return fmt.Errorf("asset amount would exceed max supply for %+v", sheep)
		}
		s.Amount = next
		acc.SetAssetStore(sheep, s)
	}
	return nil
}
