// Package feeconfig holds the per-node settlement parameters: reserve and
// fee figures that the dispatcher consults but never mutates mid-operation.
package feeconfig

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the fee and reserve figures an EngineContext needs to
// validate and settle operations. All amounts are in the smallest unit of
// the native asset.
type Config struct {
	// BaseReserve is the minimum native balance an account must retain.
	BaseReserve int64
	// CreateAccountFee is the fee for a CreateAccount operation. The
	// dispatcher does not deduct it.
	CreateAccountFee int64
	// PayFee is the fee for a Payment. The dispatcher does not deduct it.
	PayFee int64
	// ProcessOrderFee is the per-operation fee for a ProcessOrder,
	// independent of fills. The dispatcher does not deduct it.
	ProcessOrderFee int64
	// MaxScriptSteps is the configured size of a ScriptHost step budget.
	// Nothing in this module reads it; EngineContext.Steps is set by the
	// caller.
	MaxScriptSteps int64
}

// Default returns the baseline configuration used when no environment
// overrides are present.
func Default() Config {
	return Config{
		BaseReserve:      1_000_000,
		CreateAccountFee: 100,
		PayFee:           100,
		ProcessOrderFee:  100,
		MaxScriptSteps:   64,
	}
}

// LoadFromEnv loads envPath (if non-empty) or the current directory's .env
// (if present), then overrides Default() with any of BASE_RESERVE,
// CREATE_ACCOUNT_FEE, PAY_FEE, PROCESS_ORDER_FEE, MAX_SCRIPT_STEPS found in
// the environment. Priority is ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	overrideInt64(&cfg.BaseReserve, "BASE_RESERVE")
	overrideInt64(&cfg.CreateAccountFee, "CREATE_ACCOUNT_FEE")
	overrideInt64(&cfg.PayFee, "PAY_FEE")
	overrideInt64(&cfg.ProcessOrderFee, "PROCESS_ORDER_FEE")
	overrideInt64(&cfg.MaxScriptSteps, "MAX_SCRIPT_STEPS")

	return cfg
}

func overrideInt64(dst *int64, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*dst = v
	}
}
