package approval

import (
	"errors"
	"time"
)

var (
	ErrSelfApprove = errors.New("self approval")
	ErrNotFound    = errors.New("approval not found")
)

// Approval is one owner→delegate grant. The relation is not symmetric: A
// approving B says nothing about B's delegates acting for A.
type Approval struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Owner     string    `gorm:"column:owner;size:42;not null;uniqueIndex:ux_approvals_owner_delegate"`
	Delegate  string    `gorm:"column:delegate;size:42;not null;uniqueIndex:ux_approvals_owner_delegate"`
	Allowed   bool      `gorm:"column:allowed;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Approval) TableName() string { return "approvals" }
