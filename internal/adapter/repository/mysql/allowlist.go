package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	allowlistDomain "github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
)

type AllowlistRepository struct{ db *gorm.DB }

func NewAllowlistRepository(db *gorm.DB) *AllowlistRepository {
	return &AllowlistRepository{db: db}
}

func (r *AllowlistRepository) SetBatch(ctx context.Context, kind allowlistDomain.Kind, addrs []common.Address, allowed bool) error {
	entries := make([]allowlistDomain.Entry, len(addrs))
	for i, a := range addrs {
		entries[i] = allowlistDomain.Entry{Kind: kind, Address: a.Hex(), Allowed: allowed}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "address"}},
			DoUpdates: clause.Assignments(map[string]any{"allowed": allowed}),
		}).
		Create(&entries).Error
}

func (r *AllowlistRepository) IsAllowed(ctx context.Context, kind allowlistDomain.Kind, addr common.Address) (bool, error) {
	var out allowlistDomain.Entry
	res := r.db.WithContext(ctx).
		Where("kind = ? AND address = ?", kind, addr.Hex()).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if res.Error != nil {
		return false, res.Error
	}
	return out.Allowed, nil
}
