package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/0xScratch/arcade-protocol/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// WithinTx binds the full repository set to one db transaction. Any error
// from fn rolls every write back.
func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(uow.Repos{
			Loans:      &LoanRepository{db: tx},
			Approvals:  &ApprovalRepository{db: tx},
			Allowlists: &AllowlistRepository{db: tx},
			Funds:      &FundsRepository{db: tx},
			Collateral: &CollateralRepository{db: tx},
			Bundles:    &BundleRepository{db: tx},
			Fees:       &FeeRepository{db: tx},
			Events:     &EventRepository{db: tx},
		})
	})
}
