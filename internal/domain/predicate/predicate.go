package predicate

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidVerifier    = errors.New("verifier not allowed")
	ErrPredicatesRequired = errors.New("predicate list required")
)

// Predicate pairs an opaque rule payload with the verifier that can judge it.
// The engine never interprets Data; it only routes it.
type Predicate struct {
	Verifier common.Address `json:"verifier"`
	Data     []byte         `json:"data"`
}

// Verifier is the capability a concrete rule checker implements.
type Verifier interface {
	VerifyPredicates(ctx context.Context, borrower, lender common.Address, collateralAddress common.Address, collateralID *big.Int, data []byte) (bool, error)
}

// FailedError reports which predicate evaluated false, with enough detail to
// diagnose without re-running the call.
type FailedError struct {
	Verifier          common.Address
	Borrower          common.Address
	Lender            common.Address
	CollateralAddress common.Address
	CollateralID      *big.Int
	Data              []byte
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("predicate failed: verifier=%s borrower=%s lender=%s collateral=%s/%s",
		e.Verifier.Hex(), e.Borrower.Hex(), e.Lender.Hex(), e.CollateralAddress.Hex(), e.CollateralID)
}
