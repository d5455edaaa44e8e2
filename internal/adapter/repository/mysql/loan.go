package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	loanDomain "github.com/0xScratch/arcade-protocol/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).First(&out, id)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *LoanRepository) Start(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// Rollover retires the old loan and records its replacement plus the
// settlement figures in one sweep. The state guard in the WHERE clause keeps
// a concurrent writer from retiring the same loan twice.
func (r *LoanRepository) Rollover(ctx context.Context, oldID uint64, replacement *loanDomain.Loan, s loanDomain.Settlement) (uint64, error) {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("id = ? AND state = ?", oldID, loanDomain.StateActive).
		Update("state", loanDomain.StateRolledOver)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, loanDomain.ErrInvalidState
	}

	if err := r.db.WithContext(ctx).Create(replacement).Error; err != nil {
		return 0, err
	}

	rec := &loanDomain.SettlementRecord{
		OldLoanID:         oldID,
		NewLoanID:         replacement.ID,
		SettledAmount:     s.SettledAmount,
		AmountToOldLender: s.AmountToOldLender,
		AmountToLender:    s.AmountToLender,
		AmountToBorrower:  s.AmountToBorrower,
		InterestAmount:    s.InterestAmount,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, err
	}
	return replacement.ID, nil
}
