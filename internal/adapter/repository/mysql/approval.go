package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	approvalDomain "github.com/0xScratch/arcade-protocol/internal/domain/approval"
)

type ApprovalRepository struct{ db *gorm.DB }

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository { return &ApprovalRepository{db: db} }

// Set upserts the owner→delegate grant on its composite unique index.
func (r *ApprovalRepository) Set(ctx context.Context, owner, delegate common.Address, allowed bool) error {
	a := &approvalDomain.Approval{
		Owner:    owner.Hex(),
		Delegate: delegate.Hex(),
		Allowed:  allowed,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "delegate"}},
			DoUpdates: clause.Assignments(map[string]any{"allowed": allowed}),
		}).
		Create(a).Error
}

func (r *ApprovalRepository) IsApproved(ctx context.Context, owner, delegate common.Address) (bool, error) {
	var out approvalDomain.Approval
	res := r.db.WithContext(ctx).
		Where("owner = ? AND delegate = ?", owner.Hex(), delegate.Hex()).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if res.Error != nil {
		return false, res.Error
	}
	return out.Allowed, nil
}
