// Package settlement holds the pure fee and rollover arithmetic. Everything
// here is deterministic integer math over token base units; truncating
// division only, so the conservation invariant survives every branch.
package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
)

// BasisPointsDenominator converts bps rates into amounts.
const BasisPointsDenominator = 10_000

// Fees is the origination fee split for one principal.
type Fees struct {
	BorrowerFee *big.Int
	LenderFee   *big.Int
	// AmountFromLender = principal + LenderFee
	AmountFromLender *big.Int
	// AmountToBorrower = principal - BorrowerFee
	AmountToBorrower *big.Int
}

// OriginationFees computes both sides' fees from the rate snapshot.
func OriginationFees(principal *big.Int, r fee.Rates) Fees {
	borrowerFee := bpsOf(principal, r.BorrowerOriginationBps)
	lenderFee := bpsOf(principal, r.LenderOriginationBps)
	return Fees{
		BorrowerFee:      borrowerFee,
		LenderFee:        lenderFee,
		AmountFromLender: new(big.Int).Add(principal, lenderFee),
		AmountToBorrower: new(big.Int).Sub(principal, borrowerFee),
	}
}

// InterestAmount is the full-term simple interest owed on principal,
// truncated toward zero.
func InterestAmount(principal *big.Int, rateBps uint64) *big.Int {
	return bpsOf(principal, rateBps)
}

// Rollover is the complete settlement sheet for replacing an old loan with a
// new one. All fields are non-negative; exactly one of NeedFromBorrower and
// AmountToBorrower can be positive.
type Rollover struct {
	AmountFromLender  *big.Int
	NeedFromBorrower  *big.Int
	LeftoverPrincipal *big.Int
	AmountToBorrower  *big.Int
	AmountToOldLender *big.Int
	AmountToLender    *big.Int
	InterestAmount    *big.Int
	RepayAmount       *big.Int
	BorrowerFee       *big.Int
	LenderFee         *big.Int
}

// RolloverAmounts computes the settlement for rolling oldPrincipal at
// oldRateBps into newPrincipal under the given fee snapshot.
func RolloverAmounts(oldPrincipal *big.Int, oldRateBps uint64, newPrincipal *big.Int, rates fee.Rates, lender, oldLender common.Address) Rollover {
	interest := InterestAmount(oldPrincipal, oldRateBps)
	repay := new(big.Int).Add(oldPrincipal, interest)

	fees := OriginationFees(newPrincipal, rates)
	borrowerOwed := fees.AmountToBorrower

	out := Rollover{
		AmountFromLender:  fees.AmountFromLender,
		NeedFromBorrower:  big.NewInt(0),
		LeftoverPrincipal: big.NewInt(0),
		AmountToBorrower:  big.NewInt(0),
		AmountToOldLender: big.NewInt(0),
		AmountToLender:    big.NewInt(0),
		InterestAmount:    interest,
		RepayAmount:       repay,
		BorrowerFee:       fees.BorrowerFee,
		LenderFee:         fees.LenderFee,
	}

	if repay.Cmp(borrowerOwed) > 0 {
		out.NeedFromBorrower = new(big.Int).Sub(repay, borrowerOwed)
	} else {
		out.LeftoverPrincipal = new(big.Int).Sub(out.AmountFromLender, repay)
		out.AmountToBorrower = new(big.Int).Sub(borrowerOwed, repay)
	}

	if lender != oldLender {
		out.AmountToOldLender = new(big.Int).Set(repay)
	} else if out.NeedFromBorrower.Sign() > 0 {
		// The unchanged lender's overpayment flows back pre-fee: the lender
		// fee was already collected inside AmountFromLender.
		if excess := new(big.Int).Sub(repay, out.AmountFromLender); excess.Sign() > 0 {
			out.AmountToLender = excess
		}
	}

	return out
}

// NetFromLender is the amount actually pulled from an unchanged lender: the
// fresh funding minus the repayment it nets against. Negative means nothing
// is pulled (the lender is owed AmountToLender instead).
func (r Rollover) NetFromLender() *big.Int {
	return new(big.Int).Sub(r.AmountFromLender, r.RepayAmount)
}

func bpsOf(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Quo(out, big.NewInt(BasisPointsDenominator))
}
