// Package admin holds the administrative mutators: allow-list batches and
// the origination fee schedule.
package admin

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/event"
	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
	"github.com/0xScratch/arcade-protocol/internal/domain/uow"
)

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(u uow.UnitOfWork) *Usecase { return &Usecase{uow: u} }

// SetAllowlist upserts one batch and records the change for indexers in the
// same transaction.
func (u *Usecase) SetAllowlist(ctx context.Context, kind allowlist.Kind, addrs []common.Address, allowed bool) error {
	if err := allowlist.ValidateBatch(addrs); err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Allowlists.SetBatch(ctx, kind, addrs, allowed); err != nil {
			return err
		}
		hexes := make([]string, len(addrs))
		for i, a := range addrs {
			hexes[i] = a.Hex()
		}
		return r.Events.Append(ctx, event.KindAllowlistChanged, map[string]any{
			"kind":      kind,
			"addresses": hexes,
			"allowed":   allowed,
		})
	})
}

func (u *Usecase) SetOriginationRates(ctx context.Context, rates fee.Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Fees.SetOriginationRates(ctx, rates)
	})
}

func (u *Usecase) OriginationRates(ctx context.Context) (fee.Rates, error) {
	var out fee.Rates
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Fees.OriginationRates(ctx)
		return err
	})
	return out, err
}
