package dispatcher

import (
	"sync"

	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// StepBudget bounds re-entrant Dispatch calls made by an embedded script
// sandbox (internal/scripthost) on a single transaction's behalf. A nil
// *StepBudget on EngineContext means the caller never re-enters Dispatch
// and no bound applies.
type StepBudget struct {
	mu        sync.Mutex
	remaining int64
}

// NewStepBudget returns a StepBudget allowing n further Dispatch calls.
func NewStepBudget(n int64) *StepBudget {
	return &StepBudget{remaining: n}
}

// consume decrements the budget and reports whether a step was available.
func (b *StepBudget) consume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// EngineContext is the explicit collaborator set Dispatch operates
// against, replacing the source's global singletons
// (LedgerManager::Instance, Storage::Instance, ContractManager::Instance).
// It must be constructible entirely in memory for tests.
type EngineContext struct {
	Fees     feeconfig.Config
	Accounts *ledgerstate.Environment
	Book     orderbook.Store

	// Assets mirrors every registered asset's Property outside the account
	// store, for cheap reads by the API layer. It is optional: a nil
	// Registry simply skips the mirroring step.
	Assets *asset.Registry

	// Steps bounds re-entrant Dispatch calls a ScriptHost makes while
	// processing this transaction. Nil means no script sandbox is in play.
	Steps *StepBudget

	// BlockNum and TxIndex feed the canonical order-id codec; OpIndex is
	// supplied per-call to Dispatch.
	BlockNum uint64
	TxIndex  uint32
}

// OperationResult is what Dispatch returns for a single operation.
type OperationResult struct {
	OpIndex       int
	Code          resultcode.Code
	Effect        resultcode.Effect
	Order         *orderbook.Order
	OrdersClaimed []orderbook.ClaimOrder
}
