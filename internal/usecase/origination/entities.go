package origination

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
	"github.com/0xScratch/arcade-protocol/pkg/bignum"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

// BorrowerCallback is the optional pre-custody escape hatch: invoked after
// principal disbursement and before the borrower gives up collateral.
type BorrowerCallback interface {
	ExecuteOperation(ctx context.Context, initiator, lender common.Address, terms loan.Terms, borrowerFee *big.Int, data []byte) error
}

// InitializeInput is one new-loan call.
type InitializeInput struct {
	Caller        common.Address
	Borrower      common.Address
	Lender        common.Address
	Terms         loan.Terms
	BorrowerData  []byte
	Signature     typeddata.Signature
	SigProperties typeddata.SigProperties
	Predicates    []predicate.Predicate
}

// RolloverInput replaces an active loan with new terms.
type RolloverInput struct {
	Caller        common.Address
	OldLoanID     uint64
	Lender        common.Address
	Terms         loan.Terms
	Signature     typeddata.Signature
	SigProperties typeddata.SigProperties
	Predicates    []predicate.Predicate
}

func termsInput(t loan.Terms) typeddata.TermsInput {
	return typeddata.TermsInput{
		DurationSeconds:   t.DurationSeconds,
		Deadline:          uint64(t.Deadline),
		InterestRateBps:   t.InterestRateBps,
		Principal:         t.Principal,
		CollateralAddress: t.CollateralAddress,
		CollateralID:      t.CollateralID,
		PayableCurrency:   t.PayableCurrency,
		AffiliateCode:     t.AffiliateCode,
	}
}

func fromBig(b *big.Int) bignum.Int { return bignum.FromBig(b) }

func predicatesHash(preds []predicate.Predicate) common.Hash {
	hashes := make([]common.Hash, len(preds))
	for i, p := range preds {
		hashes[i] = typeddata.HashPredicate(p.Verifier, p.Data)
	}
	return typeddata.CombinePredicateHashes(hashes)
}
