package main

import (
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "github.com/0xScratch/arcade-protocol/internal/adapter/http"
	idemp "github.com/0xScratch/arcade-protocol/internal/adapter/middleware"
	"github.com/0xScratch/arcade-protocol/internal/adapter/repository/mysql"
	"github.com/0xScratch/arcade-protocol/internal/adapter/repository/redisnonce"
	"github.com/0xScratch/arcade-protocol/internal/config"
	"github.com/0xScratch/arcade-protocol/internal/infrastructure/cache"
	"github.com/0xScratch/arcade-protocol/internal/infrastructure/db"
	adminuc "github.com/0xScratch/arcade-protocol/internal/usecase/admin"
	approvaluc "github.com/0xScratch/arcade-protocol/internal/usecase/approval"
	"github.com/0xScratch/arcade-protocol/internal/usecase/origination"
	"github.com/0xScratch/arcade-protocol/internal/verification"
	"github.com/0xScratch/arcade-protocol/internal/verifier/items"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	gateway := verification.NewGateway()
	if cfg.ItemsVerifierAddress != "" {
		gateway.Register(common.HexToAddress(cfg.ItemsVerifierAddress), items.New(mysql.NewBundleRepository(gdb)))
	}

	originationUC := origination.NewUsecase(origination.Config{
		UoW:    mysql.NewGormUoW(gdb),
		Nonces: redisnonce.New(rdb),
		Domain: typeddata.Domain{
			Name:              cfg.SigningName,
			Version:           cfg.SigningVersion,
			ChainID:           cfg.ChainID,
			VerifyingContract: common.HexToAddress(cfg.ContractAddress),
		},
		Gateway:      gateway,
		Custodian:    common.HexToAddress(cfg.CustodianAddress),
		FeeRecipient: common.HexToAddress(cfg.FeeRecipientAddress),
	})
	approvalUC := approvaluc.NewUsecase(mysql.NewGormUoW(gdb))
	adminUC := adminuc.NewUsecase(mysql.NewGormUoW(gdb))

	h := httpadp.NewHandler()
	loanH := httpadp.NewLoanHandler(originationUC)
	approvalH := httpadp.NewApprovalHandler(approvalUC)
	adminH := httpadp.NewAdminHandler(adminUC)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())
	e.Use(idemp.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	// routes
	e.GET("/health", h.Health)

	e.POST("/loans", loanH.InitializeLoan)
	e.POST("/loans/:loan_id/rollover", loanH.RolloverLoan)
	e.GET("/loans/:loan_id", loanH.GetLoan)

	e.POST("/approvals", approvalH.Approve)
	e.GET("/approvals/:owner/:delegate", approvalH.GetApproval)

	e.PUT("/admin/currencies", adminH.SetCurrencies)
	e.PUT("/admin/collateral", adminH.SetCollateral)
	e.PUT("/admin/verifiers", adminH.SetVerifiers)
	e.PUT("/admin/fees", adminH.SetFees)
	e.GET("/admin/fees", adminH.GetFees)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
