package allowlist

import (
	"errors"
	"time"
)

// Kind names the three administratively maintained allow-lists.
type Kind string

const (
	KindCurrency   Kind = "currency"
	KindCollateral Kind = "collateral"
	KindVerifier   Kind = "verifier"
)

// MaxBatch bounds one administrative mutation.
const MaxBatch = 50

var (
	ErrEmptyBatch     = errors.New("empty batch")
	ErrBatchTooLarge  = errors.New("batch exceeds limit")
	ErrDuplicateEntry = errors.New("duplicate batch entry")
	ErrZeroEntry      = errors.New("zero address batch entry")
)

// Entry is one allow-listed address for a given kind.
type Entry struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Kind      Kind      `gorm:"column:kind;size:16;not null;uniqueIndex:ux_allowlist_kind_address"`
	Address   string    `gorm:"column:address;size:42;not null;uniqueIndex:ux_allowlist_kind_address"`
	Allowed   bool      `gorm:"column:allowed;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string { return "allowlist_entries" }
