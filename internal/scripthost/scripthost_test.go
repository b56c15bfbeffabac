package scripthost

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/dispatcher"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/kv"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// memKV is a throwaway in-memory kv.KvStore; these tests never iterate.
type memKV struct{ data map[string][]byte }

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(k []byte) ([]byte, bool, error)         { v, ok := m.data[string(k)]; return v, ok, nil }
func (m *memKV) Set(k, v []byte) error                      { m.data[string(k)] = v; return nil }
func (m *memKV) Delete(k []byte) error                      { delete(m.data, string(k)); return nil }
func (m *memKV) NewBatch() kv.Batch                         { panic("unused in tests") }
func (m *memKV) ApplyBatch(b kv.Batch) error                { panic("unused in tests") }
func (m *memKV) NewIter(lo, hi []byte) (kv.Iterator, error) { panic("unused in tests") }
func (m *memKV) Close() error                               { return nil }

func newTestCtx(t *testing.T, steps *dispatcher.StepBudget) (*dispatcher.EngineContext, common.Address, common.Address) {
	t.Helper()
	accStore := ledgerstate.NewAccountStore(newMemKV())
	env := ledgerstate.NewEnvironment(accStore)

	addrA := common.HexToAddress("0xA")
	addrB := common.HexToAddress("0xB")

	src := account.New(addrA)
	src.Balance = 2_000_000
	env.AddEntry(src)

	dst := account.New(addrB)
	dst.Balance = 1_000_000
	env.AddEntry(dst)

	return &dispatcher.EngineContext{
		Fees:     feeconfig.Default(),
		Accounts: env,
		Steps:    steps,
	}, addrA, addrB
}

// TestJSONHostSubmitsPayment covers the one re-entrancy path a contract
// sandbox plausibly needs: moving a balance on the transaction's behalf.
func TestJSONHostSubmitsPayment(t *testing.T) {
	ctx, addrA, addrB := newTestCtx(t, dispatcher.NewStepBudget(4))

	raw := []byte(`{
		"type": "Payment",
		"op": {
			"Source": "` + addrA.Hex() + `",
			"Dest": "` + addrB.Hex() + `",
			"Asset": "0::",
			"Amount": 100
		}
	}`)

	res, err := (JSONHost{}).Submit(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, resultcode.Success, res.Code)
}

// TestJSONHostRejectsUnknownType exercises the envelope's type switch.
func TestJSONHostRejectsUnknownType(t *testing.T) {
	ctx, _, _ := newTestCtx(t, nil)

	_, err := (JSONHost{}).Submit(ctx, []byte(`{"type": "SetThreshold", "op": {}}`))
	require.Error(t, err)
}

// TestJSONHostRejectsMalformedEnvelope covers the outer decode failure.
func TestJSONHostRejectsMalformedEnvelope(t *testing.T) {
	ctx, _, _ := newTestCtx(t, nil)

	_, err := (JSONHost{}).Submit(ctx, []byte(`not json`))
	require.Error(t, err)
}

// TestStepBudgetExhaustionBlocksReentrancy drives a budget of one step:
// the first Submit succeeds and consumes it, the second is refused by
// Dispatch before the payment ever mutates ledger state.
func TestStepBudgetExhaustionBlocksReentrancy(t *testing.T) {
	ctx, addrA, addrB := newTestCtx(t, dispatcher.NewStepBudget(1))

	raw := []byte(`{
		"type": "Payment",
		"op": {
			"Source": "` + addrA.Hex() + `",
			"Dest": "` + addrB.Hex() + `",
			"Asset": "0::",
			"Amount": 10
		}
	}`)

	_, err := (JSONHost{}).Submit(ctx, raw)
	require.NoError(t, err)

	_, err = (JSONHost{}).Submit(ctx, raw)
	require.Error(t, err, "second re-entrant call must be refused once the step budget is spent")
}
