package dispatcher

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/kv"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/price"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// memKV is a minimal in-memory kv.KvStore; dispatcher tests never iterate.
type memKV struct{ data map[string][]byte }

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(k []byte) ([]byte, bool, error)         { v, ok := m.data[string(k)]; return v, ok, nil }
func (m *memKV) Set(k, v []byte) error                      { m.data[string(k)] = v; return nil }
func (m *memKV) Delete(k []byte) error                      { delete(m.data, string(k)); return nil }
func (m *memKV) NewBatch() kv.Batch                         { panic("unused in tests") }
func (m *memKV) ApplyBatch(b kv.Batch) error                { panic("unused in tests") }
func (m *memKV) NewIter(lo, hi []byte) (kv.Iterator, error) { panic("unused in tests") }
func (m *memKV) Close() error                               { return nil }

// memBook is a minimal in-memory orderbook.Store for dispatcher tests.
type memBook struct{ rows map[string]orderbook.Order }

func newMemBook() *memBook { return &memBook{rows: make(map[string]orderbook.Order)} }

func (b *memBook) LoadOrder(id string) (orderbook.Order, bool, error) {
	o, ok := b.rows[id]
	return o, ok, nil
}
func (b *memBook) Insert(o orderbook.Order) error { b.rows[o.OrderID] = o; return nil }
func (b *memBook) Update(o orderbook.Order) error {
	if _, ok := b.rows[o.OrderID]; !ok {
		return errNotFound
	}
	b.rows[o.OrderID] = o
	return nil
}
func (b *memBook) Delete(id string) error {
	if _, ok := b.rows[id]; !ok {
		return errNotFound
	}
	delete(b.rows, id)
	return nil
}
func (b *memBook) LoadBest(n, offset int, selling, buying asset.Key) ([]orderbook.Order, error) {
	var matches []orderbook.Order
	for _, o := range b.rows {
		if o.Selling == selling && o.Buying == buying {
			matches = append(matches, o)
		}
	}
	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && less(matches[j], matches[j-1]) {
			matches[j], matches[j-1] = matches[j-1], matches[j]
			j--
		}
	}
	if offset >= len(matches) {
		return nil, nil
	}
	end := offset + n
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}
func less(a, b orderbook.Order) bool {
	c := price.Cmp(a.Price, b.Price)
	if c != 0 {
		return c < 0
	}
	return a.OrderID < b.OrderID
}
func (b *memBook) Count(from, to int64) (int, error) { return len(b.rows), nil }
func (b *memBook) DropAndRecreate() error             { b.rows = make(map[string]orderbook.Order); return nil }

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

const errNotFound = notFoundError("not found")

func usdc() asset.Key { return asset.Key{Kind: asset.NativeCoin} }

func wheatAsset() asset.Key {
	return asset.Key{Kind: asset.Unlimited, Code: "WHEAT", Issuer: common.HexToAddress("0x1")}
}

// newCtx wires up an EngineContext with two funded accounts: B (the
// resting seller) and A (the taker), mirroring spec section 8's actors.
func newCtx(t *testing.T) (*EngineContext, common.Address, common.Address) {
	t.Helper()
	store := newMemKV()
	accStore := ledgerstate.NewAccountStore(store)
	env := ledgerstate.NewEnvironment(accStore)

	addrB := common.HexToAddress("0xB")
	addrA := common.HexToAddress("0xA")

	seller := account.New(addrB)
	seller.Balance = 10_000_000
	seller.SetAssetStore(wheatAsset(), asset.Store{Amount: 1000})
	env.AddEntry(seller)

	taker := account.New(addrA)
	taker.Balance = 10_000_000
	taker.SetAssetStore(wheatAsset(), asset.Store{})
	env.AddEntry(taker)

	ctx := &EngineContext{
		Fees:     feeconfig.Default(),
		Accounts: env,
		Book:     newMemBook(),
		BlockNum: 1,
		TxIndex:  0,
	}
	return ctx, addrB, addrA
}

// TestProcessOrderInsertRestsWhenBookEmpty covers the plain insert shape:
// no counter liquidity, the whole order rests.
func TestProcessOrderInsertRestsWhenBookEmpty(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	op := ProcessOrder{
		Source:  addrB,
		TxHash:  "tx1",
		Selling: wheatAsset(),
		Buying:  usdc(),
		Amount:  100,
		Price:   price.Price{N: 1, D: 2},
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
	require.Equal(t, resultcode.EffectCreated, res.Effect)
	require.NotNil(t, res.Order)
	require.Equal(t, int64(100), res.Order.Amount)
	require.Empty(t, res.OrdersClaimed)

	row, found, err := ctx.Book.LoadOrder(res.Order.OrderID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(100), row.Amount)
}

// TestProcessOrderS2PartialFillRests mirrors spec scenario S2: the taker's
// amount (200) exceeds what the single resting order (100 wheat @ 1/2) can
// satisfy (50 sheep), leaving a remainder of 150 resting.
func TestProcessOrderS2PartialFillRests(t *testing.T) {
	ctx, addrB, addrA := newCtx(t)

	restingID := orderbook.EncodeOrderID(1, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrB.Hex(),
		OrderID:       restingID,
		Selling:       wheatAsset(),
		Buying:        usdc(),
		Amount:        100,
		Price:         price.Price{N: 1, D: 2},
	}))

	op := ProcessOrder{
		Source:  addrA,
		TxHash:  "tx2",
		Selling: usdc(),
		Buying:  wheatAsset(),
		Amount:  200,
		Price:   price.Price{N: 2, D: 1},
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
	require.Len(t, res.OrdersClaimed, 1)
	require.Equal(t, int64(100), res.OrdersClaimed[0].AmountSold)
	require.Equal(t, int64(50), res.OrdersClaimed[0].AmountBought)

	require.Equal(t, resultcode.EffectCreated, res.Effect)
	require.NotNil(t, res.Order)
	require.Equal(t, int64(150), res.Order.Amount, "200 offered - 50 sheep spent = 150 remaining")

	_, found, err := ctx.Book.LoadOrder(restingID)
	require.NoError(t, err)
	require.False(t, found, "fully consumed resting order must be deleted")
}

// TestProcessOrderS3PassiveBlocksEqualPriceCross mirrors spec scenario S3:
// a passive taker at a price exactly equal to the best resting price must
// not cross it — the passive order rests untouched instead.
func TestProcessOrderS3PassiveBlocksEqualPriceCross(t *testing.T) {
	ctx, addrB, addrA := newCtx(t)

	restingID := orderbook.EncodeOrderID(1, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrB.Hex(),
		OrderID:       restingID,
		Selling:       wheatAsset(),
		Buying:        usdc(),
		Amount:        100,
		Price:         price.Price{N: 1, D: 2},
	}))

	op := ProcessOrder{
		Source:  addrA,
		TxHash:  "tx3",
		Selling: usdc(),
		Buying:  wheatAsset(),
		Amount:  50,
		Price:   price.Price{N: 2, D: 1}, // inverts to 1/2, equal to the resting price
		Passive: true,
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
	require.Empty(t, res.OrdersClaimed, "passive order must not cross an equal-priced resting order")
	require.Equal(t, resultcode.EffectCreated, res.Effect)
	require.Equal(t, int64(50), res.Order.Amount)

	row, found, err := ctx.Book.LoadOrder(restingID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(100), row.Amount, "untouched resting order")
}

// TestProcessOrderCancel mirrors spec scenario S5: canceling a resting
// order deletes it and mutates nothing else.
func TestProcessOrderCancel(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	restingID := orderbook.EncodeOrderID(1, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrB.Hex(),
		OrderID:       restingID,
		Selling:       wheatAsset(),
		Buying:        usdc(),
		Amount:        100,
		Price:         price.Price{N: 1, D: 2},
	}))

	op := ProcessOrder{
		Source:  addrB,
		TxHash:  "tx5",
		OrderID: restingID,
		Amount:  0,
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
	require.Equal(t, resultcode.EffectDeleted, res.Effect)

	_, found, err := ctx.Book.LoadOrder(restingID)
	require.NoError(t, err)
	require.False(t, found)
}

// TestProcessOrderCancelMissingOrder exercises the not-found path: a
// cancel against an order id that was never inserted.
func TestProcessOrderCancelMissingOrder(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	op := ProcessOrder{
		Source:  addrB,
		TxHash:  "tx6",
		OrderID: orderbook.EncodeOrderID(9, 9, 9),
		Amount:  0,
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.OrderNotFount, res.Code)
}

// TestProcessOrderUpdateFullyFilledDeletesRow covers the update shape
// where the matcher fully consumes the taker's remainder: the existing
// row must be deleted rather than left behind with a zero amount.
func TestProcessOrderUpdateFullyFilledDeletesRow(t *testing.T) {
	ctx, addrB, addrA := newCtx(t)

	restingID := orderbook.EncodeOrderID(1, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrB.Hex(),
		OrderID:       restingID,
		Selling:       wheatAsset(),
		Buying:        usdc(),
		Amount:        100,
		Price:         price.Price{N: 1, D: 2},
	}))

	takerID := orderbook.EncodeOrderID(2, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrA.Hex(),
		OrderID:       takerID,
		Selling:       usdc(),
		Buying:        wheatAsset(),
		Amount:        10,
		Price:         price.Price{N: 2, D: 1},
	}))

	op := ProcessOrder{
		Source:  addrA,
		TxHash:  "tx7",
		OrderID: takerID,
		Selling: usdc(),
		Buying:  wheatAsset(),
		Amount:  50,
		Price:   price.Price{N: 2, D: 1},
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
	require.Equal(t, resultcode.EffectDeleted, res.Effect)
	require.Nil(t, res.Order)

	_, found, err := ctx.Book.LoadOrder(takerID)
	require.NoError(t, err)
	require.False(t, found)
}

// TestProcessOrderSelfCrossSurfacesResultCode exercises the Stop-on-
// self-trade path: a taker whose own resting order is the best price
// must still have its remainder rest (Stop, not Skip), but the result
// code must report OrderCrossSelf rather than plain Success.
func TestProcessOrderSelfCrossSurfacesResultCode(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	restingID := orderbook.EncodeOrderID(1, 0, 0)
	require.NoError(t, ctx.Book.Insert(orderbook.Order{
		SellerAddress: addrB.Hex(),
		OrderID:       restingID,
		Selling:       wheatAsset(),
		Buying:        usdc(),
		Amount:        100,
		Price:         price.Price{N: 1, D: 2},
	}))

	op := ProcessOrder{
		Source:  addrB, // same seller as the resting order: self-trade
		TxHash:  "tx9",
		Selling: usdc(),
		Buying:  wheatAsset(),
		Amount:  50,
		Price:   price.Price{N: 2, D: 1},
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.OrderCrossSelf, res.Code)
	require.Empty(t, res.OrdersClaimed)
	require.NotNil(t, res.Order)
	require.Equal(t, int64(50), res.Order.Amount, "self-crossed order must still rest untouched")

	row, found, err := ctx.Book.LoadOrder(restingID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(100), row.Amount)
}

// TestSetThresholdBoundsOpTypeNotWeight covers the (0,100] bound on the
// operation-type key: an out-of-range type is rejected, but a weight
// above 100 (not a percentage) is accepted unconstrained.
func TestSetThresholdBoundsOpTypeNotWeight(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	res, err := Dispatch(ctx, 0, SetThreshold{Source: addrB, OpType: 150, TypeWeight: 10})
	require.NoError(t, err)
	require.Equal(t, resultcode.ThresholdNotValid, res.Code, "operation type 150 is out of (0,100]")

	res, err = Dispatch(ctx, 0, SetThreshold{Source: addrB, OpType: 5, TypeWeight: 5000})
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code, "weight is not a percentage and must not be capped at 100")
}

// TestPaymentMissingDestReportsAccountNotExist covers the dest-lookup
// miss: a nonexistent destination is a missing account, not a
// CreateAccount-style "destination already exists" collision.
func TestPaymentMissingDestReportsAccountNotExist(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	res, err := Dispatch(ctx, 0, Payment{
		Source: addrB,
		Dest:   common.HexToAddress("0xDEAD"),
		Asset:  usdc(),
		Amount: 1,
	})
	require.NoError(t, err)
	require.Equal(t, resultcode.AccountNotExist, res.Code)
}

func TestProcessOrderRejectsSelfTradeAssetPair(t *testing.T) {
	ctx, addrB, _ := newCtx(t)

	op := ProcessOrder{
		Source:  addrB,
		TxHash:  "tx8",
		Selling: wheatAsset(),
		Buying:  wheatAsset(),
		Amount:  10,
		Price:   price.Price{N: 1, D: 1},
	}
	res, err := Dispatch(ctx, 0, op)
	require.NoError(t, err)
	require.Equal(t, resultcode.InvalidParameter, res.Code)
}
