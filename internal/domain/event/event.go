package event

import (
	"context"
	"time"
)

// Kinds of notification rows written for off-chain indexing.
const (
	KindApprovalChanged  = "approval_changed"
	KindAllowlistChanged = "allowlist_changed"
	KindLoanStarted      = "loan_started"
	KindLoanRolledOver   = "loan_rolled_over"
)

// Event is an append-only notification row, written in the same transaction
// as the state change it describes.
type Event struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Kind      string    `gorm:"column:kind;size:32;not null;index"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Event) TableName() string { return "events" }

type Repository interface {
	Append(ctx context.Context, kind string, payload any) error
}
