package custody

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotOwner            = errors.New("not collateral owner")
	ErrItemNotFound        = errors.New("collateral item not found")
)

// FungibleCustody moves payable-currency balances with safe-transfer
// semantics: a transfer either moves the full amount or fails.
type FungibleCustody interface {
	Transfer(ctx context.Context, currency, from, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, currency, holder common.Address) (*big.Int, error)
}

// CollateralCustody moves ownership of non-fungible collateral.
type CollateralCustody interface {
	TransferItem(ctx context.Context, asset common.Address, id *big.Int, from, to common.Address) error
	OwnerOf(ctx context.Context, asset common.Address, id *big.Int) (common.Address, error)
}

// Holding is one position inside a container-style collateral bundle.
type Holding struct {
	AssetAddress common.Address
	ProjectID    uint64
	TokenID      *big.Int
	Amount       *big.Int
}

// BundleStore exposes what a collateral bundle holds, for predicate
// verification after the bundle itself has moved into custody.
type BundleStore interface {
	Holdings(ctx context.Context, bundleAsset common.Address, bundleID *big.Int) ([]Holding, error)
	// HasProject reports whether the asset defines the given project id.
	HasProject(ctx context.Context, asset common.Address, projectID uint64) (bool, error)
}
