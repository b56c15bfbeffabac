// Package scripthost models the embedded contract sandbox's callback into
// the dispatcher: a script that wants to place an order or move a balance
// does so by handing the engine a raw operation to submit on its behalf,
// not by touching ledger state directly.
package scripthost

import (
	"encoding/json"
	"fmt"

	"github.com/ledgerdex/matchcore/internal/dispatcher"
)

// ScriptHost is the collaborator a contract sandbox is given so its
// callbacks can re-enter the dispatcher instead of mutating ledger state
// directly. Submit decodes raw into one operation and dispatches it under
// the caller's EngineContext, including whatever *dispatcher.StepBudget
// that context carries.
type ScriptHost interface {
	Submit(ctx *dispatcher.EngineContext, raw []byte) (*dispatcher.OperationResult, error)
}

// envelope is the wire shape a script emits: a type tag plus the
// corresponding operation payload. Only the operations a contract
// plausibly needs to re-enter the dispatcher with are supported; account
// administration opcodes are deliberately absent.
type envelope struct {
	Type string          `json:"type"`
	Op   json.RawMessage `json:"op"`
}

// JSONHost is the concrete ScriptHost: it decodes a JSON envelope and
// dispatches the named operation. Real contract execution (the sandbox
// that produces these envelopes) is out of scope here; JSONHost is the
// boundary the sandbox calls back through.
type JSONHost struct{}

// Submit implements ScriptHost.
func (JSONHost) Submit(ctx *dispatcher.EngineContext, raw []byte) (*dispatcher.OperationResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("scripthost: decode envelope: %w", err)
	}

	op, err := decodeOp(env.Type, env.Op)
	if err != nil {
		return nil, err
	}

	// opIndex 0: a script-issued operation has no position in the
	// enclosing transaction's operation list, so it is not addressable
	// the way a top-level OperationResult.OpIndex is.
	return dispatcher.Dispatch(ctx, 0, op)
}

func decodeOp(typ string, raw json.RawMessage) (dispatcher.Operation, error) {
	switch typ {
	case "ProcessOrder":
		var o dispatcher.ProcessOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("scripthost: decode ProcessOrder: %w", err)
		}
		return o, nil
	case "Payment":
		var o dispatcher.Payment
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("scripthost: decode Payment: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("scripthost: unsupported operation type %q", typ)
	}
}
