package loan

import (
	"context"
	"time"

	"github.com/0xScratch/arcade-protocol/pkg/bignum"
)

// Settlement carries the rollover figures the ledger records alongside the
// replacement loan.
type Settlement struct {
	SettledAmount     bignum.Int
	AmountToOldLender bignum.Int
	AmountToLender    bignum.Int
	AmountToBorrower  bignum.Int
	InterestAmount    bignum.Int
}

// SettlementRecord is the persisted settlement row linking the retired loan
// to its replacement.
type SettlementRecord struct {
	ID                uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	OldLoanID         uint64     `gorm:"column:old_loan_id;not null;index"`
	NewLoanID         uint64     `gorm:"column:new_loan_id;not null;index"`
	SettledAmount     bignum.Int `gorm:"column:settled_amount;type:varchar(80)"`
	AmountToOldLender bignum.Int `gorm:"column:amount_to_old_lender;type:varchar(80)"`
	AmountToLender    bignum.Int `gorm:"column:amount_to_lender;type:varchar(80)"`
	AmountToBorrower  bignum.Int `gorm:"column:amount_to_borrower;type:varchar(80)"`
	InterestAmount    bignum.Int `gorm:"column:interest_amount;type:varchar(80)"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (SettlementRecord) TableName() string { return "loan_settlements" }

type Repository interface {
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// Start records a new active loan and assigns its id.
	Start(ctx context.Context, l *Loan) error
	// Rollover atomically marks the old loan rolled over and records the
	// replacement, returning the new loan id.
	Rollover(ctx context.Context, oldID uint64, replacement *Loan, s Settlement) (uint64, error)
}
