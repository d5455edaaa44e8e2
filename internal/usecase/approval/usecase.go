package approval

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	domainApproval "github.com/0xScratch/arcade-protocol/internal/domain/approval"
	"github.com/0xScratch/arcade-protocol/internal/domain/event"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/uow"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

var (
	ErrApprovedOwnLoan      = errors.New("caller authored the authorizing signature")
	ErrCallerNotParticipant = errors.New("caller not a participant")
	ErrInvalidSignature     = errors.New("recovered signer not authorized")
	ErrSideMismatch         = errors.New("signer equals calling counterparty")
)

// Usecase owns the approval relation: granting, revoking and querying
// owner→delegate permissions.
type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(u uow.UnitOfWork) *Usecase { return &Usecase{uow: u} }

// Approve grants or revokes delegate's right to act for owner. The grant and
// its change event commit together or not at all.
func (u *Usecase) Approve(ctx context.Context, owner, delegate common.Address, allowed bool) error {
	if owner == delegate {
		return domainApproval.ErrSelfApprove
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Approvals.Set(ctx, owner, delegate, allowed); err != nil {
			return err
		}
		return r.Events.Append(ctx, event.KindApprovalChanged, map[string]any{
			"owner":    owner.Hex(),
			"delegate": delegate.Hex(),
			"allowed":  allowed,
		})
	})
}

func (u *Usecase) IsApproved(ctx context.Context, owner, delegate common.Address) (bool, error) {
	var ok bool
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		ok, err = r.Approvals.IsApproved(ctx, owner, delegate)
		return err
	})
	return ok, err
}

// IsSelfOrApproved reports whether actor is principal or an approved
// delegate of principal.
func IsSelfOrApproved(ctx context.Context, repo domainApproval.Repository, principal, actor common.Address) (bool, error) {
	if principal == actor {
		return true, nil
	}
	return repo.IsApproved(ctx, principal, actor)
}

// NeededSide determines which counterparty must have signed: the signature
// comes from whichever side the caller is not acting for.
func NeededSide(ctx context.Context, repo domainApproval.Repository, borrower, caller common.Address) (loan.Side, error) {
	actsForBorrower, err := IsSelfOrApproved(ctx, repo, borrower, caller)
	if err != nil {
		return 0, err
	}
	if actsForBorrower {
		return loan.SideLend, nil
	}
	return loan.SideBorrow, nil
}

// CounterpartyInput is one origination call's cast of addresses.
type CounterpartyInput struct {
	Borrower   common.Address
	Lender     common.Address
	Caller     common.Address
	Signer     common.Address
	NeededSide loan.Side
	Digest     common.Hash
	Signature  []byte
}

// ValidateCounterparties runs the four authorization checks in a fixed
// order. Later checks assume earlier ones already excluded degenerate
// address collisions, so the sequence must not be reordered.
func ValidateCounterparties(ctx context.Context, repo domainApproval.Repository, checker typeddata.SignatureChecker, in CounterpartyInput) error {
	signingCounterparty := in.Borrower
	callingCounterparty := in.Lender
	if in.NeededSide == loan.SideLend {
		signingCounterparty = in.Lender
		callingCounterparty = in.Borrower
	}

	if in.Caller == in.Signer || in.Caller == signingCounterparty {
		return ErrApprovedOwnLoan
	}

	ok, err := IsSelfOrApproved(ctx, repo, callingCounterparty, in.Caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCallerNotParticipant
	}

	ok, err = IsSelfOrApproved(ctx, repo, signingCounterparty, in.Signer)
	if err != nil {
		return err
	}
	if !ok && checker != nil {
		ok, err = checker.IsValidSignature(ctx, signingCounterparty, in.Digest, in.Signature)
		if err != nil {
			return err
		}
	}
	if !ok {
		return ErrInvalidSignature
	}

	if in.Signer == callingCounterparty {
		return ErrSideMismatch
	}
	return nil
}
