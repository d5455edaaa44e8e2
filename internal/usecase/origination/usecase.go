package origination

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/event"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/nonce"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
	"github.com/0xScratch/arcade-protocol/internal/domain/uow"
	"github.com/0xScratch/arcade-protocol/internal/settlement"
	approvaluc "github.com/0xScratch/arcade-protocol/internal/usecase/approval"
	"github.com/0xScratch/arcade-protocol/internal/verification"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

// Usecase is the origination orchestrator. Each entry point executes under
// an exclusive lock as one unit-of-work transaction: any failed step rolls
// back every custody movement and ledger write of the call.
type Usecase struct {
	mu sync.Mutex

	uow      uow.UnitOfWork
	nonces   nonce.Store
	domain   typeddata.Domain
	checker  typeddata.SignatureChecker
	gateway  *verification.Gateway
	callback BorrowerCallback

	custodian    common.Address
	feeRecipient common.Address

	now func() time.Time
}

type Config struct {
	UoW          uow.UnitOfWork
	Nonces       nonce.Store
	Domain       typeddata.Domain
	Checker      typeddata.SignatureChecker
	Gateway      *verification.Gateway
	Callback     BorrowerCallback
	Custodian    common.Address
	FeeRecipient common.Address
	Now          func() time.Time
}

func NewUsecase(cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Usecase{
		uow:          cfg.UoW,
		nonces:       cfg.Nonces,
		domain:       cfg.Domain,
		checker:      cfg.Checker,
		gateway:      cfg.Gateway,
		callback:     cfg.Callback,
		custodian:    cfg.Custodian,
		feeRecipient: cfg.FeeRecipient,
		now:          cfg.Now,
	}
}

// RecoverTokenSignature builds the token-schema digest and recovers its
// signer.
func (u *Usecase) RecoverTokenSignature(t loan.Terms, sig typeddata.Signature, props typeddata.SigProperties, side loan.Side) (common.Hash, common.Address, error) {
	digest := typeddata.TokenDigest(u.domain, termsInput(t), props, uint8(side))
	signer, err := typeddata.Recover(digest, sig)
	return digest, signer, err
}

// RecoverItemsSignature builds the items-schema digest, committing to the
// predicate array, and recovers its signer.
func (u *Usecase) RecoverItemsSignature(t loan.Terms, sig typeddata.Signature, props typeddata.SigProperties, side loan.Side, preds []predicate.Predicate) (common.Hash, common.Address, error) {
	if len(preds) == 0 {
		return common.Hash{}, common.Address{}, predicate.ErrPredicatesRequired
	}
	digest := typeddata.ItemsDigest(u.domain, termsInput(t), props, uint8(side), predicatesHash(preds))
	signer, err := typeddata.Recover(digest, sig)
	return digest, signer, err
}

// InitializeLoan validates, authorizes and settles a new loan, moving
// principal and collateral custody in one transaction.
func (u *Usecase) InitializeLoan(ctx context.Context, in InitializeInput) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now().UTC()
	if in.Borrower == (common.Address{}) || in.Lender == (common.Address{}) {
		return 0, loan.ErrZeroAddress
	}
	if err := in.Terms.Validate(now); err != nil {
		return 0, err
	}

	var (
		loanID      uint64
		nonceHolder *common.Address
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.checkAllowlists(ctx, r, in.Terms); err != nil {
			return err
		}

		side, err := approvaluc.NeededSide(ctx, r.Approvals, in.Borrower, in.Caller)
		if err != nil {
			return err
		}

		digest, signer, err := u.recoverSigner(in.Terms, in.Signature, in.SigProperties, side, in.Predicates)
		if err != nil {
			return err
		}

		signingCounterparty := in.Borrower
		if side == loan.SideLend {
			signingCounterparty = in.Lender
		}
		if err := approvaluc.ValidateCounterparties(ctx, r.Approvals, u.checker, approvaluc.CounterpartyInput{
			Borrower:   in.Borrower,
			Lender:     in.Lender,
			Caller:     in.Caller,
			Signer:     signer,
			NeededSide: side,
			Digest:     digest,
			Signature:  in.Signature.Bytes65(),
		}); err != nil {
			return err
		}

		holder, err := u.consumeNonce(ctx, signer, signingCounterparty, in.SigProperties)
		if err != nil {
			return err
		}
		nonceHolder = &holder

		rates, err := r.Fees.OriginationRates(ctx)
		if err != nil {
			return err
		}
		fees := settlement.OriginationFees(in.Terms.Principal, rates)

		currency := in.Terms.PayableCurrency
		if err := r.Funds.Transfer(ctx, currency, in.Lender, u.custodian, fees.AmountFromLender); err != nil {
			return err
		}
		if err := r.Funds.Transfer(ctx, currency, u.custodian, in.Borrower, fees.AmountToBorrower); err != nil {
			return err
		}

		// Borrower acts before giving up collateral, if it asked to.
		if len(in.BorrowerData) > 0 && u.callback != nil {
			if err := u.callback.ExecuteOperation(ctx, in.Caller, in.Lender, in.Terms, fees.BorrowerFee, in.BorrowerData); err != nil {
				return err
			}
		}

		if err := r.Collateral.TransferItem(ctx, in.Terms.CollateralAddress, in.Terms.CollateralID, in.Borrower, u.custodian); err != nil {
			return err
		}

		protocolFees := new(big.Int).Add(fees.BorrowerFee, fees.LenderFee)
		if protocolFees.Sign() > 0 {
			if err := r.Funds.Transfer(ctx, currency, u.custodian, u.feeRecipient, protocolFees); err != nil {
				return err
			}
		}

		// Predicates run only after collateral is in custody: checking
		// earlier leaves a window where the borrower callback could pull
		// the collateral back out between check and transfer.
		if len(in.Predicates) > 0 {
			if err := u.gateway.VerifyAll(ctx, r.Allowlists, in.Borrower, in.Lender, in.Terms.CollateralAddress, in.Terms.CollateralID, in.Predicates); err != nil {
				return err
			}
		}

		record := loan.NewRecord(in.Terms, in.Borrower, in.Lender, now)
		if err := r.Loans.Start(ctx, record); err != nil {
			return err
		}
		loanID = record.ID

		return r.Events.Append(ctx, event.KindLoanStarted, map[string]any{
			"loan_id":  record.ID,
			"borrower": in.Borrower.Hex(),
			"lender":   in.Lender.Hex(),
		})
	})
	if err != nil {
		return 0, u.refundNonce(ctx, nonceHolder, in.SigProperties.Nonce, err)
	}
	return loanID, nil
}

// RolloverLoan replaces an active loan with new terms, netting currency
// settlement only. Collateral never moves.
func (u *Usecase) RolloverLoan(ctx context.Context, in RolloverInput) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now().UTC()
	if in.Lender == (common.Address{}) {
		return 0, loan.ErrZeroAddress
	}
	if err := in.Terms.Validate(now); err != nil {
		return 0, err
	}

	var (
		newID       uint64
		nonceHolder *common.Address
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		old, err := r.Loans.GetByID(ctx, in.OldLoanID)
		if err != nil {
			return err
		}
		if old.State != loan.StateActive {
			return loan.ErrInvalidState
		}
		if old.PayableCurrency != in.Terms.PayableCurrency.Hex() {
			return loan.ErrRolloverCurrencyMismatch
		}
		if old.CollateralAddress != in.Terms.CollateralAddress.Hex() ||
			old.CollateralID.Big().Cmp(in.Terms.CollateralID) != 0 {
			return loan.ErrRolloverCollateralMismatch
		}
		if err := u.checkAllowlists(ctx, r, in.Terms); err != nil {
			return err
		}

		borrower := old.BorrowerAddress()
		oldLender := old.LenderAddress()

		side, err := approvaluc.NeededSide(ctx, r.Approvals, borrower, in.Caller)
		if err != nil {
			return err
		}

		digest, signer, err := u.recoverSigner(in.Terms, in.Signature, in.SigProperties, side, in.Predicates)
		if err != nil {
			return err
		}

		signingCounterparty := borrower
		if side == loan.SideLend {
			signingCounterparty = in.Lender
		}
		if err := approvaluc.ValidateCounterparties(ctx, r.Approvals, u.checker, approvaluc.CounterpartyInput{
			Borrower:   borrower,
			Lender:     in.Lender,
			Caller:     in.Caller,
			Signer:     signer,
			NeededSide: side,
			Digest:     digest,
			Signature:  in.Signature.Bytes65(),
		}); err != nil {
			return err
		}

		holder, err := u.consumeNonce(ctx, signer, signingCounterparty, in.SigProperties)
		if err != nil {
			return err
		}
		nonceHolder = &holder

		rates, err := r.Fees.OriginationRates(ctx)
		if err != nil {
			return err
		}
		ro := settlement.RolloverAmounts(old.Principal.Big(), old.InterestRateBps, in.Terms.Principal, rates, in.Lender, oldLender)

		if err := u.settleRollover(ctx, r, in.Terms.PayableCurrency, borrower, in.Lender, oldLender, ro); err != nil {
			return err
		}

		replacement := loan.NewRecord(in.Terms, borrower, in.Lender, now)
		replacement.RolledOverFrom = &in.OldLoanID
		newID, err = r.Loans.Rollover(ctx, in.OldLoanID, replacement, rolloverSettlement(ro))
		if err != nil {
			return err
		}

		return r.Events.Append(ctx, event.KindLoanRolledOver, map[string]any{
			"old_loan_id": in.OldLoanID,
			"new_loan_id": newID,
			"borrower":    borrower.Hex(),
			"lender":      in.Lender.Hex(),
		})
	})
	if err != nil {
		return 0, u.refundNonce(ctx, nonceHolder, in.SigProperties.Nonce, err)
	}
	return newID, nil
}

// GetLoan reads one ledger record.
func (u *Usecase) GetLoan(ctx context.Context, id uint64) (*loan.Loan, error) {
	var out *loan.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Loans.GetByID(ctx, id)
		return err
	})
	return out, err
}

// settleRollover executes the fund movements exactly as computed, with the
// custodian account as the hub.
func (u *Usecase) settleRollover(ctx context.Context, r uow.Repos, currency, borrower, lender, oldLender common.Address, ro settlement.Rollover) error {
	if lender != oldLender {
		if err := r.Funds.Transfer(ctx, currency, lender, u.custodian, ro.AmountFromLender); err != nil {
			return err
		}
	} else if net := ro.NetFromLender(); net.Sign() > 0 {
		if err := r.Funds.Transfer(ctx, currency, lender, u.custodian, net); err != nil {
			return err
		}
	}
	if ro.NeedFromBorrower.Sign() > 0 {
		if err := r.Funds.Transfer(ctx, currency, borrower, u.custodian, ro.NeedFromBorrower); err != nil {
			return err
		}
	}

	if ro.AmountToOldLender.Sign() > 0 {
		if err := r.Funds.Transfer(ctx, currency, u.custodian, oldLender, ro.AmountToOldLender); err != nil {
			return err
		}
	}
	if ro.AmountToLender.Sign() > 0 {
		if err := r.Funds.Transfer(ctx, currency, u.custodian, lender, ro.AmountToLender); err != nil {
			return err
		}
	}
	if ro.AmountToBorrower.Sign() > 0 {
		if err := r.Funds.Transfer(ctx, currency, u.custodian, borrower, ro.AmountToBorrower); err != nil {
			return err
		}
	}

	protocolFees := new(big.Int).Add(ro.BorrowerFee, ro.LenderFee)
	if protocolFees.Sign() > 0 {
		return r.Funds.Transfer(ctx, currency, u.custodian, u.feeRecipient, protocolFees)
	}
	return nil
}

// recoverSigner dispatches between the two schemas solely on predicate
// presence. A failed raw recovery degrades to the zero signer so the
// contract-signer fallback in counterparty validation can still accept.
func (u *Usecase) recoverSigner(t loan.Terms, sig typeddata.Signature, props typeddata.SigProperties, side loan.Side, preds []predicate.Predicate) (common.Hash, common.Address, error) {
	var (
		digest common.Hash
		signer common.Address
		err    error
	)
	if len(preds) > 0 {
		digest, signer, err = u.RecoverItemsSignature(t, sig, props, side, preds)
	} else {
		digest, signer, err = u.RecoverTokenSignature(t, sig, props, side)
	}
	if err != nil && !errors.Is(err, typeddata.ErrInvalidSignature) {
		return common.Hash{}, common.Address{}, err
	}
	return digest, signer, nil
}

// consumeNonce charges the replay counter of whichever identity authorized
// the call: the recovered key, or the signing counterparty when a contract
// signature carried no recoverable key. The charged holder is returned so a
// rolled-back transaction can refund the use.
func (u *Usecase) consumeNonce(ctx context.Context, signer, signingCounterparty common.Address, props typeddata.SigProperties) (common.Address, error) {
	target := signer
	if target == (common.Address{}) {
		target = signingCounterparty
	}
	maxUses := props.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}
	return target, u.nonces.Consume(ctx, target, props.Nonce, maxUses)
}

// refundNonce compensates the replay store after the SQL transaction rolled
// back: the signature was never spent on a settled loan, so the counterparty
// can resubmit it. holder is nil when the failure happened before the charge.
func (u *Usecase) refundNonce(ctx context.Context, holder *common.Address, nonceValue uint64, txErr error) error {
	if holder == nil {
		return txErr
	}
	if err := u.nonces.Release(ctx, *holder, nonceValue); err != nil {
		return errors.Join(txErr, err)
	}
	return txErr
}

func (u *Usecase) checkAllowlists(ctx context.Context, r uow.Repos, t loan.Terms) error {
	ok, err := r.Allowlists.IsAllowed(ctx, allowlist.KindCurrency, t.PayableCurrency)
	if err != nil {
		return err
	}
	if !ok {
		return loan.ErrCurrencyNotAllowed
	}
	ok, err = r.Allowlists.IsAllowed(ctx, allowlist.KindCollateral, t.CollateralAddress)
	if err != nil {
		return err
	}
	if !ok {
		return loan.ErrCollateralNotAllowed
	}
	return nil
}

func rolloverSettlement(ro settlement.Rollover) loan.Settlement {
	return loan.Settlement{
		SettledAmount:     fromBig(ro.RepayAmount),
		AmountToOldLender: fromBig(ro.AmountToOldLender),
		AmountToLender:    fromBig(ro.AmountToLender),
		AmountToBorrower:  fromBig(ro.AmountToBorrower),
		InterestAmount:    fromBig(ro.InterestAmount),
	}
}
