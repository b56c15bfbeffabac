// Package resultcode enumerates the operation-level result codes returned
// by the dispatcher. Codes are typed constants rather than bare strings so
// the compiler type-checks every comparison and assignment.
package resultcode

// Code is an operation-level outcome. The zero value is never a valid
// code; callers must always assign Success or a specific failure.
type Code int

const (
	_ Code = iota
	Success

	// Synchronous validation failures. No state mutation occurs.
	InvalidAddress
	InvalidParameter
	AssetInvalid
	WeightNotValid
	ThresholdNotValid

	// Lookup failures during dispatch.
	AccountNotExist
	AccountDestExist

	// Solvency checks.
	AccountLowReserve
	AccountInitLowReserve
	AccountAssetLowReserve
	AccountAssetAmountTooLarge

	// Matcher-level errors.
	OrderNotFount // [sic] preserved spelling, wire-compatible with the source
	OrderCrossSelf
	OrderCantConvert
)

var names = map[Code]string{
	Success:                    "SUCCESS",
	InvalidAddress:             "INVALID_ADDRESS",
	InvalidParameter:           "INVALID_PARAMETER",
	AssetInvalid:               "ASSET_INVALID",
	WeightNotValid:             "WEIGHT_NOT_VALID",
	ThresholdNotValid:          "THRESHOLD_NOT_VALID",
	AccountNotExist:            "ACCOUNT_NOT_EXIST",
	AccountDestExist:           "ACCOUNT_DEST_EXIST",
	AccountLowReserve:          "ACCOUNT_LOW_RESERVE",
	AccountInitLowReserve:      "ACCOUNT_INIT_LOW_RESERVE",
	AccountAssetLowReserve:     "ACCOUNT_ASSET_LOW_RESERVE",
	AccountAssetAmountTooLarge: "ACCOUNT_ASSET_AMOUNT_TOO_LARGE",
	OrderNotFount:              "ORDER_NOT_FOUNT",
	OrderCrossSelf:             "ORDER_CROSS_SELF",
	OrderCantConvert:           "ORDER_CANT_CONVERT",
}

// String renders the wire name of the code, or "UNKNOWN" if unset.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the code as its wire name so API responses carry the
// same strings the original error taxonomy uses.
func (c Code) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Err wraps a Code as an error, for call sites that return (T, error).
type Err struct {
	Code Code
}

func (e *Err) Error() string { return e.Code.String() }

// New wraps code in an *Err.
func New(code Code) error { return &Err{Code: code} }

// Effect describes what happened to the taker's remainder row.
type Effect int

const (
	EffectNone Effect = iota
	EffectCreated
	EffectUpdated
	EffectDeleted
)

func (e Effect) String() string {
	switch e {
	case EffectCreated:
		return "ORDER_CREATED"
	case EffectUpdated:
		return "ORDER_UPDATED"
	case EffectDeleted:
		return "ORDER_DELETED"
	default:
		return "NONE"
	}
}

func (e Effect) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}
