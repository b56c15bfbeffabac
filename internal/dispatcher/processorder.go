package dispatcher

import (
	"fmt"

	"github.com/ledgerdex/matchcore/internal/matcher"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/price"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// dispatchProcessOrder implements shape selection, validation,
// self-trade prevention, matching, and settlement for a ProcessOrder
// operation.
func dispatchProcessOrder(ctx *EngineContext, opIndex int, o ProcessOrder) (*OperationResult, error) {
	taker, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}

	isCancel := o.OrderID != "" && o.Amount == 0
	isUpdate := o.OrderID != "" && o.Amount > 0
	isInsert := o.OrderID == ""

	if o.OrderID != "" && !isCancel && !isUpdate {
		return fail(opIndex, resultcode.InvalidParameter)
	}

	var existing orderbook.Order
	if isCancel || isUpdate {
		row, rowFound, err := ctx.Book.LoadOrder(o.OrderID)
		if err != nil {
			return nil, err
		}
		if !rowFound {
			return fail(opIndex, resultcode.OrderNotFount)
		}
		existing = row
	}

	if isCancel {
		if err := ctx.Book.Delete(o.OrderID); err != nil {
			return nil, err
		}
		return &OperationResult{OpIndex: opIndex, Code: resultcode.Success, Effect: resultcode.EffectDeleted}, nil
	}

	if err := validateProcessOrder(ctx, taker.Address.Hex(), o); err != nil {
		if rc, ok := err.(*resultcode.Err); ok {
			return fail(opIndex, rc.Code)
		}
		return nil, err
	}

	orderID := o.OrderID
	if isInsert {
		orderID = orderbook.EncodeOrderID(ctx.BlockNum, ctx.TxIndex, uint32(opIndex))
	}

	flags := 0
	if o.Passive {
		flags |= orderbook.FlagPassive
	}
	candidate := orderbook.Order{
		SellerAddress:     o.Source.Hex(),
		OrderID:           orderID,
		Selling:           o.Selling,
		Buying:            o.Buying,
		Amount:            o.Amount,
		Price:             o.Price,
		FeePercent:        o.FeePercent,
		Flags:             flags,
		TxHash:            o.TxHash,
		OpIndex:           opIndex,
		LastModifiedBlock: int64(ctx.BlockNum),
	}

	// resting.Price is expressed as resting.Buying/resting.Selling; crossing
	// this order against the book means resting.Selling == o.Buying and
	// resting.Buying == o.Selling, so a resting price lives in o.Selling/
	// o.Buying units — the reciprocal of o.Price. Invert before comparing.
	limit := price.Price{N: o.Price.D, D: o.Price.N}
	var selfCrossed bool
	filter := selfTradeFilter(o.Source.Hex(), limit, o.Passive, &selfCrossed)

	m := &matcher.Matcher{Book: ctx.Book, Env: ctx.Accounts, Fees: ctx.Fees}
	_, sheepSent, _, trail, err := m.ConvertWithOrders(taker, o.Buying, o.Selling, maxInt64, o.Amount, o.TxHash, filter)
	if err != nil {
		return nil, err
	}

	remaining := o.Amount - sheepSent
	if remaining < 0 {
		panic(fmt.Sprintf("dispatcher: matcher over-filled order %s: sent %d > requested %d", orderID, sheepSent, o.Amount))
	}
	candidate.Amount = remaining

	result := &OperationResult{OpIndex: opIndex, OrdersClaimed: trail}

	if remaining > 0 {
		candidate.OrderID = orderID
		if isInsert {
			if err := ctx.Book.Insert(candidate); err != nil {
				return nil, err
			}
			result.Effect = resultcode.EffectCreated
		} else {
			if err := ctx.Book.Update(candidate); err != nil {
				return nil, err
			}
			result.Effect = resultcode.EffectUpdated
		}
		result.Order = &candidate
	} else {
		if isUpdate {
			if err := ctx.Book.Delete(existing.OrderID); err != nil {
				return nil, err
			}
		}
		result.Effect = resultcode.EffectDeleted
	}

	result.Code = resultcode.Success
	if selfCrossed {
		result.Code = resultcode.OrderCrossSelf
	}
	return result, nil
}

// maxInt64 bounds max_wheat_receive for a ProcessOrder taker: the order's
// Amount already caps how much of the selling asset it can spend
// (max_sheep_send), so the wheat side is left open — a taker is entitled
// to whatever price improvement the book offers at its limit price.
const maxInt64 = int64(1<<63 - 1)

// validateProcessOrder runs the fatal-before-mutation checks from the
// ProcessOrder shape: asset code length, non-zero selling balance, and
// fee_percent floor.
func validateProcessOrder(ctx *EngineContext, sellerHex string, o ProcessOrder) error {
	if !o.Selling.IsNative() && (len(o.Selling.Code) == 0 || len(o.Selling.Code) > 64) {
		return resultcode.New(resultcode.AssetInvalid)
	}
	if !o.Buying.IsNative() && (len(o.Buying.Code) == 0 || len(o.Buying.Code) > 64) {
		return resultcode.New(resultcode.AssetInvalid)
	}
	if o.Selling == o.Buying {
		return resultcode.New(resultcode.InvalidParameter)
	}

	seller, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return err
	}
	if !found {
		return resultcode.New(resultcode.AccountNotExist)
	}
	if !o.Selling.IsNative() {
		store := seller.AssetStore(o.Selling)
		if store.Amount == 0 {
			return resultcode.New(resultcode.AccountAssetLowReserve)
		}
	}

	if !o.Buying.IsNative() {
		issuer, found, err := ctx.Accounts.GetEntry(o.Buying.Issuer)
		if err == nil && found {
			if store, ok := issuer.Assets[o.Buying]; ok && store.Property != nil {
				if o.FeePercent < store.Property.FeePercent {
					return resultcode.New(resultcode.InvalidParameter)
				}
			}
		}
	}
	return nil
}

// selfTradeFilter builds the matcher.Filter used by ProcessOrder. It
// preserves the source's Stop-not-Skip self-trade behavior (spec design
// note, section 9): encountering a resting order whose seller equals the
// taker halts the walk instead of passing over it. Price filtering stops
// the walk once a resting price is no longer acceptable: strictly worse
// than the taker's limit always, and — when the taker's own order is
// passive — equal to the limit as well. selfCrossed is set when the stop
// was caused by the self-trade check specifically, so the caller can
// surface resultcode.OrderCrossSelf rather than reporting plain success.
func selfTradeFilter(takerHex string, limit price.Price, passive bool, selfCrossed *bool) matcher.Filter {
	return func(resting orderbook.Order) matcher.Decision {
		cmp := price.Cmp(resting.Price, limit)
		if cmp > 0 {
			return matcher.Stop
		}
		if passive && cmp == 0 {
			return matcher.Stop
		}
		if resting.SellerAddress == takerHex {
			*selfCrossed = true
			return matcher.Stop
		}
		return matcher.Keep
	}
}
