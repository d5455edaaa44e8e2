package fee

import (
	"context"
	"errors"
	"time"
)

// Origination fees may not exceed 10% of principal per side.
const MaxOriginationFeeBps = 1_000

var ErrFeeOutOfRange = errors.New("fee rate out of range")

// Rates is a snapshot of the origination fee schedule, in basis points of
// principal.
type Rates struct {
	BorrowerOriginationBps uint64
	LenderOriginationBps   uint64
}

func (r Rates) Validate() error {
	if r.BorrowerOriginationBps > MaxOriginationFeeBps || r.LenderOriginationBps > MaxOriginationFeeBps {
		return ErrFeeOutOfRange
	}
	return nil
}

// Schedule is the persisted fee schedule row. A single row holds the current
// rates; history stays in updated_at.
type Schedule struct {
	ID                     uint64    `gorm:"column:id;primaryKey"`
	BorrowerOriginationBps uint64    `gorm:"column:borrower_origination_bps;not null"`
	LenderOriginationBps   uint64    `gorm:"column:lender_origination_bps;not null"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Schedule) TableName() string { return "fee_schedule" }

// Registry reads and mutates the fee schedule.
type Registry interface {
	OriginationRates(ctx context.Context) (Rates, error)
	SetOriginationRates(ctx context.Context, r Rates) error
}
