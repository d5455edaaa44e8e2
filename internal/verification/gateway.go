// Package verification dispatches opaque predicate payloads to whitelisted
// verifier capabilities and aggregates the results.
package verification

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
)

// Gateway routes each predicate to the capability registered under its
// verifier address. Registration happens once at wiring; the allow-list is
// consulted per call so administrative revocation takes effect immediately.
type Gateway struct {
	verifiers map[common.Address]predicate.Verifier
}

func NewGateway() *Gateway {
	return &Gateway{verifiers: make(map[common.Address]predicate.Verifier)}
}

func (g *Gateway) Register(addr common.Address, v predicate.Verifier) {
	g.verifiers[addr] = v
}

// VerifyAll runs every predicate and requires all of them to pass. A
// verifier missing from the allow-list or the registry aborts before any
// evaluation of that element.
func (g *Gateway) VerifyAll(ctx context.Context, lists allowlist.Repository, borrower, lender common.Address, collateralAddress common.Address, collateralID *big.Int, preds []predicate.Predicate) error {
	for _, p := range preds {
		allowed, err := lists.IsAllowed(ctx, allowlist.KindVerifier, p.Verifier)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %s", predicate.ErrInvalidVerifier, p.Verifier.Hex())
		}
		v, ok := g.verifiers[p.Verifier]
		if !ok {
			return fmt.Errorf("%w: %s not registered", predicate.ErrInvalidVerifier, p.Verifier.Hex())
		}

		ok, err = v.VerifyPredicates(ctx, borrower, lender, collateralAddress, collateralID, p.Data)
		if err != nil {
			return err
		}
		if !ok {
			return &predicate.FailedError{
				Verifier:          p.Verifier,
				Borrower:          borrower,
				Lender:            lender,
				CollateralAddress: collateralAddress,
				CollateralID:      collateralID,
				Data:              p.Data,
			}
		}
	}
	return nil
}
