package dispatcher

import (
	"fmt"

	"github.com/ledgerdex/matchcore/internal/account"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/resultcode"
)

// Dispatch applies op against ctx and returns the per-operation result.
// Validation failures return (result with a non-Success Code, nil error)
// and mutate nothing. A non-nil error signals a fatal invariant
// violation at a site the caller must treat as unreachable in a correct
// implementation — it corresponds to the source's PROCESS_EXIT.
func Dispatch(ctx *EngineContext, opIndex int, op Operation) (*OperationResult, error) {
	if ctx.Steps != nil && !ctx.Steps.consume() {
		return nil, fmt.Errorf("dispatcher: step budget exhausted at op %d", opIndex)
	}
	switch o := op.(type) {
	case CreateAccount:
		return dispatchCreateAccount(ctx, opIndex, o)
	case Payment:
		return dispatchPayment(ctx, opIndex, o)
	case ProcessOrder:
		return dispatchProcessOrder(ctx, opIndex, o)
	case IssueAsset:
		return dispatchIssueAsset(ctx, opIndex, o)
	case RegisterAsset:
		return dispatchRegisterAsset(ctx, opIndex, o)
	case SetAssetFee:
		return dispatchSetAssetFee(ctx, opIndex, o)
	case SetMetadata:
		return dispatchSetMetadata(ctx, opIndex, o)
	case SetSignerWeight:
		return dispatchSetSignerWeight(ctx, opIndex, o)
	case SetThreshold:
		return dispatchSetThreshold(ctx, opIndex, o)
	default:
		panic(fmt.Sprintf("dispatcher: unhandled operation type %T", op))
	}
}

func fail(opIndex int, code resultcode.Code) (*OperationResult, error) {
	return &OperationResult{OpIndex: opIndex, Code: code}, nil
}

func ok(opIndex int) *OperationResult {
	return &OperationResult{OpIndex: opIndex, Code: resultcode.Success}
}

func dispatchCreateAccount(ctx *EngineContext, opIndex int, o CreateAccount) (*OperationResult, error) {
	if o.InitBalance < ctx.Fees.BaseReserve {
		return fail(opIndex, resultcode.AccountInitLowReserve)
	}
	if _, found, err := ctx.Accounts.GetEntry(o.Dest); err != nil {
		return nil, err
	} else if found {
		return fail(opIndex, resultcode.AccountDestExist)
	}
	source, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	for _, v := range o.Metadata {
		if v.Version > 1 {
			return fail(opIndex, resultcode.InvalidParameter)
		}
	}
	if err := source.AddBalance(-o.InitBalance, ctx.Fees.BaseReserve); err != nil {
		return fail(opIndex, resultcode.AccountLowReserve)
	}

	dest := account.New(o.Dest)
	dest.Balance = o.InitBalance
	dest.Priv = o.Priv
	dest.Contract = o.Contract
	if o.Metadata != nil {
		for k, v := range o.Metadata {
			if v.Version > 1 {
				return fail(opIndex, resultcode.InvalidParameter)
			}
			dest.Metadata[k] = v
		}
	}
	if err := dest.Validate(ctx.Fees.BaseReserve); err != nil {
		panic(fmt.Sprintf("dispatcher: invariant violation creating account: %v", err))
	}
	ctx.Accounts.AddEntry(dest)
	return ok(opIndex), nil
}

// dispatchPayment moves Amount of Asset from Source to Dest, handling the
// three Limited-asset cases: ordinary holder-to-holder transfer,
// issuer-to-holder issuance bounded by MaxSupply, and holder-to-issuer
// burn.
func dispatchPayment(ctx *EngineContext, opIndex int, o Payment) (*OperationResult, error) {
	src, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	dst, found, err := ctx.Accounts.GetEntry(o.Dest)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}

	if o.Asset.IsNative() {
		if err := src.AddBalance(-o.Amount, ctx.Fees.BaseReserve); err != nil {
			return fail(opIndex, resultcode.AccountLowReserve)
		}
		if err := dst.AddBalance(o.Amount, ctx.Fees.BaseReserve); err != nil {
			panic(fmt.Sprintf("dispatcher: invariant violation crediting native payment: %v", err))
		}
		return ok(opIndex), nil
	}

	srcStore := src.AssetStore(o.Asset)
	isIssuerSource := o.Source == o.Asset.Issuer
	isIssuerDest := o.Dest == o.Asset.Issuer

	switch {
	case isIssuerSource && !isIssuerDest:
		// Issuance: increase issued_amount up to max_supply, credit dest.
		prop := srcStore.Property
		if prop == nil {
			return fail(opIndex, resultcode.AssetInvalid)
		}
		if prop.IssuedAmount+o.Amount > prop.MaxSupply {
			return fail(opIndex, resultcode.AccountAssetAmountTooLarge)
		}
		prop.IssuedAmount += o.Amount
		src.SetAssetStore(o.Asset, srcStore)
		dstStore := dst.AssetStore(o.Asset)
		dstStore.Amount += o.Amount
		dst.SetAssetStore(o.Asset, dstStore)
		if ctx.Assets != nil {
			ctx.Assets.SetIssuedAmount(o.Asset, prop.IssuedAmount)
		}
	case !isIssuerSource && isIssuerDest:
		// Burn: holder returns units to the issuer.
		if srcStore.Amount < o.Amount {
			return fail(opIndex, resultcode.AccountAssetLowReserve)
		}
		srcStore.Amount -= o.Amount
		src.SetAssetStore(o.Asset, srcStore)
		dstStore := dst.AssetStore(o.Asset)
		if dstStore.Property != nil {
			dstStore.Property.IssuedAmount -= o.Amount
			if ctx.Assets != nil {
				ctx.Assets.SetIssuedAmount(o.Asset, dstStore.Property.IssuedAmount)
			}
		}
		dst.SetAssetStore(o.Asset, dstStore)
	default:
		// Ordinary third-party transfer.
		if srcStore.Amount < o.Amount {
			return fail(opIndex, resultcode.AccountAssetLowReserve)
		}
		srcStore.Amount -= o.Amount
		src.SetAssetStore(o.Asset, srcStore)
		dstStore := dst.AssetStore(o.Asset)
		dstStore.Amount += o.Amount
		dst.SetAssetStore(o.Asset, dstStore)
	}
	return ok(opIndex), nil
}

func dispatchIssueAsset(ctx *EngineContext, opIndex int, o IssueAsset) (*OperationResult, error) {
	return dispatchPayment(ctx, opIndex, Payment{Source: o.Issuer, Dest: o.Dest, Asset: o.Asset, Amount: o.Amount})
}

func dispatchRegisterAsset(ctx *EngineContext, opIndex int, o RegisterAsset) (*OperationResult, error) {
	if len(o.Asset.Code) == 0 || len(o.Asset.Code) > 64 {
		return fail(opIndex, resultcode.AssetInvalid)
	}
	issuer, found, err := ctx.Accounts.GetEntry(o.Issuer)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	if _, exists := issuer.Assets[o.Asset]; exists {
		return fail(opIndex, resultcode.AssetInvalid)
	}
	issuer.SetAssetStore(o.Asset, asset.Store{
		Property: &asset.Property{MaxSupply: o.MaxSupply, FeePercent: o.FeePercent},
	})
	if ctx.Assets != nil {
		ctx.Assets.Register(o.Asset, asset.Property{MaxSupply: o.MaxSupply, FeePercent: o.FeePercent})
	}
	return ok(opIndex), nil
}

func dispatchSetAssetFee(ctx *EngineContext, opIndex int, o SetAssetFee) (*OperationResult, error) {
	issuer, found, err := ctx.Accounts.GetEntry(o.Issuer)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	store, exists := issuer.Assets[o.Asset]
	if !exists || store.Property == nil {
		return fail(opIndex, resultcode.AssetInvalid)
	}
	store.Property.FeePercent = o.FeePercent
	issuer.SetAssetStore(o.Asset, store)
	if ctx.Assets != nil {
		ctx.Assets.SetFeePercent(o.Asset, o.FeePercent)
	}
	return ok(opIndex), nil
}

func dispatchSetMetadata(ctx *EngineContext, opIndex int, o SetMetadata) (*OperationResult, error) {
	src, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	existing, hasExisting := src.Metadata[o.Key]
	wantVersion := o.NewVersion
	if !o.HasExplicit {
		wantVersion = 0
		if hasExisting {
			wantVersion = existing.Version + 1
		}
	} else if hasExisting && o.NewVersion != existing.Version+1 {
		return fail(opIndex, resultcode.InvalidParameter)
	}
	src.Metadata[o.Key] = account.MetadataEntry{Value: o.Value, Version: wantVersion}
	return ok(opIndex), nil
}

func dispatchSetSignerWeight(ctx *EngineContext, opIndex int, o SetSignerWeight) (*OperationResult, error) {
	src, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}

	idx := -1
	for i, s := range src.Priv.Signers {
		if s.Address == o.Signer {
			idx = i
			break
		}
	}
	if o.Weight == 0 {
		if idx >= 0 {
			src.Priv.Signers = append(src.Priv.Signers[:idx], src.Priv.Signers[idx+1:]...)
		}
		return ok(opIndex), nil
	}

	next := make([]account.Signer, len(src.Priv.Signers))
	copy(next, src.Priv.Signers)
	if idx >= 0 {
		next[idx].Weight = o.Weight
	} else {
		next = append(next, account.Signer{Address: o.Signer, Weight: o.Weight})
	}
	candidate := account.Privilege{MasterWeight: src.Priv.MasterWeight, Signers: next, Thresholds: src.Priv.Thresholds}
	if candidate.SumSignerWeight() > (1<<32 - 1) {
		return fail(opIndex, resultcode.WeightNotValid)
	}
	src.Priv.Signers = next
	if err := src.Validate(ctx.Fees.BaseReserve); err != nil {
		panic(fmt.Sprintf("dispatcher: invariant violation setting signer weight: %v", err))
	}
	return ok(opIndex), nil
}

func dispatchSetThreshold(ctx *EngineContext, opIndex int, o SetThreshold) (*OperationResult, error) {
	src, found, err := ctx.Accounts.GetEntry(o.Source)
	if err != nil {
		return nil, err
	}
	if !found {
		return fail(opIndex, resultcode.AccountNotExist)
	}
	if o.OpType != 0 && o.OpType > 100 {
		return fail(opIndex, resultcode.ThresholdNotValid)
	}
	src.Priv.Thresholds.TxThreshold = o.TxThreshold
	if o.OpType != 0 {
		if src.Priv.Thresholds.PerType == nil {
			src.Priv.Thresholds.PerType = make(map[uint32]uint32)
		}
		src.Priv.Thresholds.PerType[o.OpType] = o.TypeWeight
	}
	if err := src.Validate(ctx.Fees.BaseReserve); err != nil {
		panic(fmt.Sprintf("dispatcher: invariant violation setting threshold: %v", err))
	}
	return ok(opIndex), nil
}
