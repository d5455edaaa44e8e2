package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	feeDomain "github.com/0xScratch/arcade-protocol/internal/domain/fee"
)

type FeeRepository struct{ db *gorm.DB }

func NewFeeRepository(db *gorm.DB) *FeeRepository { return &FeeRepository{db: db} }

// OriginationRates reads the singleton schedule row. An unconfigured
// deployment charges nothing.
func (r *FeeRepository) OriginationRates(ctx context.Context) (feeDomain.Rates, error) {
	var row feeDomain.Schedule
	res := r.db.WithContext(ctx).First(&row, 1)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return feeDomain.Rates{}, nil
	}
	if res.Error != nil {
		return feeDomain.Rates{}, res.Error
	}
	return feeDomain.Rates{
		BorrowerOriginationBps: row.BorrowerOriginationBps,
		LenderOriginationBps:   row.LenderOriginationBps,
	}, nil
}

func (r *FeeRepository) SetOriginationRates(ctx context.Context, rates feeDomain.Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	row := &feeDomain.Schedule{
		ID:                     1,
		BorrowerOriginationBps: rates.BorrowerOriginationBps,
		LenderOriginationBps:   rates.LenderOriginationBps,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"borrower_origination_bps": rates.BorrowerOriginationBps,
				"lender_origination_bps":   rates.LenderOriginationBps,
			}),
		}).
		Create(row).Error
}
