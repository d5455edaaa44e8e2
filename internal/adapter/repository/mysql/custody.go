package mysql

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	custodyDomain "github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/pkg/bignum"
)

// FundsRepository keeps fungible balances in the balances table. Transfers
// are safe only inside a surrounding transaction; the unit of work provides
// one.
type FundsRepository struct{ db *gorm.DB }

func NewFundsRepository(db *gorm.DB) *FundsRepository { return &FundsRepository{db: db} }

func (r *FundsRepository) Transfer(ctx context.Context, currency, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	if amount.Sign() == 0 {
		return nil
	}

	var src custodyDomain.Balance
	res := r.db.WithContext(ctx).
		Where("currency = ? AND holder = ?", currency.Hex(), from.Hex()).
		First(&src)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return custodyDomain.ErrInsufficientBalance
	}
	if res.Error != nil {
		return res.Error
	}
	have := src.Amount.Big()
	if have.Cmp(amount) < 0 {
		return custodyDomain.ErrInsufficientBalance
	}
	src.Amount = bignum.FromBig(new(big.Int).Sub(have, amount))
	if err := r.db.WithContext(ctx).Save(&src).Error; err != nil {
		return err
	}

	var dst custodyDomain.Balance
	res = r.db.WithContext(ctx).
		Where("currency = ? AND holder = ?", currency.Hex(), to.Hex()).
		First(&dst)
	switch {
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		dst = custodyDomain.Balance{
			Currency: currency.Hex(),
			Holder:   to.Hex(),
			Amount:   bignum.FromBig(amount),
		}
		return r.db.WithContext(ctx).Create(&dst).Error
	case res.Error != nil:
		return res.Error
	}
	dst.Amount = bignum.FromBig(new(big.Int).Add(dst.Amount.Big(), amount))
	return r.db.WithContext(ctx).Save(&dst).Error
}

func (r *FundsRepository) BalanceOf(ctx context.Context, currency, holder common.Address) (*big.Int, error) {
	var out custodyDomain.Balance
	res := r.db.WithContext(ctx).
		Where("currency = ? AND holder = ?", currency.Hex(), holder.Hex()).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return out.Amount.Big(), nil
}

// CollateralRepository tracks non-fungible collateral ownership.
type CollateralRepository struct{ db *gorm.DB }

func NewCollateralRepository(db *gorm.DB) *CollateralRepository {
	return &CollateralRepository{db: db}
}

func (r *CollateralRepository) TransferItem(ctx context.Context, asset common.Address, id *big.Int, from, to common.Address) error {
	var item custodyDomain.Item
	res := r.db.WithContext(ctx).
		Where("asset = ? AND token_id = ?", asset.Hex(), id.String()).
		First(&item)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return custodyDomain.ErrItemNotFound
	}
	if res.Error != nil {
		return res.Error
	}
	if item.Owner != from.Hex() {
		return custodyDomain.ErrNotOwner
	}
	item.Owner = to.Hex()
	return r.db.WithContext(ctx).Save(&item).Error
}

func (r *CollateralRepository) OwnerOf(ctx context.Context, asset common.Address, id *big.Int) (common.Address, error) {
	var item custodyDomain.Item
	res := r.db.WithContext(ctx).
		Where("asset = ? AND token_id = ?", asset.Hex(), id.String()).
		First(&item)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return common.Address{}, custodyDomain.ErrItemNotFound
	}
	if res.Error != nil {
		return common.Address{}, res.Error
	}
	return common.HexToAddress(item.Owner), nil
}

// BundleRepository reads bundle contents and asset project registrations.
type BundleRepository struct{ db *gorm.DB }

func NewBundleRepository(db *gorm.DB) *BundleRepository { return &BundleRepository{db: db} }

func (r *BundleRepository) Holdings(ctx context.Context, bundleAsset common.Address, bundleID *big.Int) ([]custodyDomain.Holding, error) {
	var rows []custodyDomain.BundleHolding
	res := r.db.WithContext(ctx).
		Where("bundle_asset = ? AND bundle_id = ?", bundleAsset.Hex(), bundleID.String()).
		Find(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make([]custodyDomain.Holding, len(rows))
	for i, row := range rows {
		out[i] = custodyDomain.Holding{
			AssetAddress: common.HexToAddress(row.AssetAddress),
			ProjectID:    row.ProjectID,
			TokenID:      row.TokenID.Big(),
			Amount:       row.Amount.Big(),
		}
	}
	return out, nil
}

func (r *BundleRepository) HasProject(ctx context.Context, asset common.Address, projectID uint64) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&custodyDomain.Project{}).
		Where("asset = ? AND project_id = ?", asset.Hex(), projectID).
		Count(&n)
	return n > 0, res.Error
}
