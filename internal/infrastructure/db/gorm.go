package db

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/approval"
	"github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/internal/domain/event"
	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
)

func OpenGorm(dsn string) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn))
}

func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.Println("gorm: connected")
	return db, nil
}

// AutoMigrate creates the full ledger schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&loan.Loan{},
		&loan.SettlementRecord{},
		&approval.Approval{},
		&allowlist.Entry{},
		&custody.Balance{},
		&custody.Item{},
		&custody.BundleHolding{},
		&custody.Project{},
		&fee.Schedule{},
		&event.Event{},
	)
}
