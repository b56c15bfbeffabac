// Package asset defines the asset-key and asset-store types shared by
// account balances and order book rows.
package asset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind distinguishes the native coin from issued assets.
type Kind int

const (
	NativeCoin Kind = iota
	Unlimited
	Limited
)

// Key identifies an asset. For NativeCoin, Issuer and Code are ignored and
// should be left zero; code comparisons and map lookups still work because
// the zero Key is a valid, unique NativeCoin key.
type Key struct {
	Issuer common.Address
	Code   string
	Kind   Kind
}

// IsNative reports whether k refers to the chain's native coin.
func (k Key) IsNative() bool { return k.Kind == NativeCoin }

// MarshalText renders k as "kind:issuer:code" so maps keyed by Key encode
// as JSON objects instead of failing encoding/json's string-key
// requirement.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%s:%s", k.Kind, k.Issuer.Hex(), k.Code)), nil
}

// UnmarshalText parses the format produced by MarshalText.
func (k *Key) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("asset: malformed key %q", text)
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("asset: malformed key kind %q: %w", text, err)
	}
	k.Kind = Kind(kind)
	k.Issuer = common.HexToAddress(parts[1])
	k.Code = parts[2]
	return nil
}

// Property holds the issuer-side accounting for a Limited asset: the cap
// on total issuance and the fee charged on trades denominated in it.
type Property struct {
	MaxSupply    int64
	IssuedAmount int64
	FeePercent   uint32
}

// Store is a single account's holding of one asset key.
type Store struct {
	Amount   int64
	Frozen   int64
	Property *Property // non-nil only for the issuer's own Limited asset row
}

// Valid reports whether the store satisfies 0 <= Frozen <= Amount <= MaxSupply
// (when Property is present).
func (s Store) Valid() bool {
	if s.Frozen < 0 || s.Amount < 0 || s.Frozen > s.Amount {
		return false
	}
	if s.Property != nil && s.Amount > s.Property.MaxSupply {
		return false
	}
	return true
}

// FeePercent returns the fee percentage a buyer of this asset must match
// or exceed when placing a ProcessOrder, per the asset's Property. Assets
// without a Property (non-issuer holdings, native coin) charge no fee.
func (s Store) FeePercent() uint32 {
	if s.Property == nil {
		return 0
	}
	return s.Property.FeePercent
}
