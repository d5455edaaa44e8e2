package custody

import (
	"time"

	"github.com/0xScratch/arcade-protocol/pkg/bignum"
)

// Balance is one fungible ledger row per (currency, holder).
type Balance struct {
	ID        uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	Currency  string     `gorm:"column:currency;size:42;not null;uniqueIndex:ux_balances_currency_holder"`
	Holder    string     `gorm:"column:holder;size:42;not null;uniqueIndex:ux_balances_currency_holder"`
	Amount    bignum.Int `gorm:"column:amount;type:varchar(80)"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Balance) TableName() string { return "balances" }

// Item is one non-fungible collateral row with its current owner.
type Item struct {
	ID        uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	Asset     string     `gorm:"column:asset;size:42;not null;uniqueIndex:ux_items_asset_token"`
	TokenID   bignum.Int `gorm:"column:token_id;type:varchar(80);not null;uniqueIndex:ux_items_asset_token"`
	Owner     string     `gorm:"column:owner;size:42;not null;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "collateral_items" }

// BundleHolding is one position inside a persisted collateral bundle.
type BundleHolding struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	BundleAsset  string     `gorm:"column:bundle_asset;size:42;not null;index:ix_bundle"`
	BundleID     bignum.Int `gorm:"column:bundle_id;type:varchar(80);not null;index:ix_bundle"`
	AssetAddress string     `gorm:"column:asset_address;size:42;not null"`
	ProjectID    uint64     `gorm:"column:project_id;not null"`
	TokenID      bignum.Int `gorm:"column:token_id;type:varchar(80)"`
	Amount       bignum.Int `gorm:"column:amount;type:varchar(80)"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (BundleHolding) TableName() string { return "bundle_holdings" }

// Project registers a project id an asset contract defines.
type Project struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Asset     string    `gorm:"column:asset;size:42;not null;uniqueIndex:ux_projects_asset_project"`
	ProjectID uint64    `gorm:"column:project_id;not null;uniqueIndex:ux_projects_asset_project"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Project) TableName() string { return "asset_projects" }
