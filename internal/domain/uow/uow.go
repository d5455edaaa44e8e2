package uow

import (
	"context"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/approval"
	"github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/internal/domain/event"
	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
)

// Repos is the full repository set bound to one transaction. Every custody
// movement, ledger write and event append of a single origination call goes
// through the same Repos value, so a failure anywhere rolls everything back.
type Repos struct {
	Loans      loan.Repository
	Approvals  approval.Repository
	Allowlists allowlist.Repository
	Funds      custody.FungibleCustody
	Collateral custody.CollateralCustody
	Bundles    custody.BundleStore
	Fees       fee.Registry
	Events     event.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
