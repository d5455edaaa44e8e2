// Package items implements the container-bundle predicate verifier: a rule
// payload lists required items and the verifier checks the collateral bundle
// actually holds them.
package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/pkg/bignum"
)

var (
	ErrItemMissingAddress = errors.New("item missing address")
	ErrNoAmount           = errors.New("item amount is zero")
	ErrInvalidProjectID   = errors.New("invalid project id")
	ErrMalformedPayload   = errors.New("malformed items payload")
)

// Item is one required position. AnyIDAllowed=false demands the exact token
// id inside the project; AnyIDAllowed=true demands at least Amount items
// anywhere in the project's id namespace.
type Item struct {
	AssetAddress common.Address `json:"asset_address"`
	ProjectID    uint64         `json:"project_id"`
	TokenID      bignum.Int     `json:"token_id"`
	Amount       bignum.Int     `json:"amount"`
	AnyIDAllowed bool           `json:"any_id_allowed"`
}

// Verifier checks item requirements against a bundle store. Each predicate's
// requirements are independent of any other predicate in the same call.
type Verifier struct {
	bundles custody.BundleStore
}

func New(bundles custody.BundleStore) *Verifier {
	return &Verifier{bundles: bundles}
}

// VerifyPredicates decodes data as a JSON array of items and checks every
// one against the bundle's holdings. Malformed elements abort with a
// structured error; an unmet requirement returns (false, nil).
func (v *Verifier) VerifyPredicates(ctx context.Context, borrower, lender common.Address, collateralAddress common.Address, collateralID *big.Int, data []byte) (bool, error) {
	var required []Item
	if err := json.Unmarshal(data, &required); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(required) == 0 {
		return false, ErrMalformedPayload
	}

	holdings, err := v.bundles.Holdings(ctx, collateralAddress, collateralID)
	if err != nil {
		return false, err
	}

	for _, item := range required {
		if item.AssetAddress == (common.Address{}) {
			return false, ErrItemMissingAddress
		}
		if item.Amount.Sign() == 0 {
			return false, ErrNoAmount
		}
		known, err := v.bundles.HasProject(ctx, item.AssetAddress, item.ProjectID)
		if err != nil {
			return false, err
		}
		if !known {
			return false, fmt.Errorf("%w: %d", ErrInvalidProjectID, item.ProjectID)
		}

		if !holds(holdings, item) {
			return false, nil
		}
	}
	return true, nil
}

func holds(holdings []custody.Holding, item Item) bool {
	if item.AnyIDAllowed {
		total := new(big.Int)
		for _, h := range holdings {
			if h.AssetAddress == item.AssetAddress && h.ProjectID == item.ProjectID {
				total.Add(total, h.Amount)
			}
		}
		return total.Cmp(item.Amount.Big()) >= 0
	}

	want := item.TokenID.Big()
	for _, h := range holdings {
		if h.AssetAddress == item.AssetAddress && h.ProjectID == item.ProjectID && h.TokenID.Cmp(want) == 0 {
			return h.Amount.Cmp(item.Amount.Big()) >= 0
		}
	}
	return false
}
