package http

import (
	stdhttp "net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	allowlistDomain "github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	feeDomain "github.com/0xScratch/arcade-protocol/internal/domain/fee"
	adminuc "github.com/0xScratch/arcade-protocol/internal/usecase/admin"
)

type AdminHandler struct{ uc *adminuc.Usecase }

func NewAdminHandler(uc *adminuc.Usecase) *AdminHandler { return &AdminHandler{uc: uc} }

type allowlistReq struct {
	Addresses []string `json:"addresses" validate:"required,min=1,max=50,dive,ethaddr"`
	Allowed   *bool    `json:"allowed"   validate:"required"`
}

func (h *AdminHandler) SetCurrencies(c echo.Context) error {
	return h.setAllowlist(c, allowlistDomain.KindCurrency)
}

func (h *AdminHandler) SetCollateral(c echo.Context) error {
	return h.setAllowlist(c, allowlistDomain.KindCollateral)
}

func (h *AdminHandler) SetVerifiers(c echo.Context) error {
	return h.setAllowlist(c, allowlistDomain.KindVerifier)
}

func (h *AdminHandler) setAllowlist(c echo.Context, kind allowlistDomain.Kind) error {
	var req allowlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(stdhttp.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	addrs := make([]common.Address, len(req.Addresses))
	for i, a := range req.Addresses {
		addrs[i] = common.HexToAddress(a)
	}
	if err := h.uc.SetAllowlist(c.Request().Context(), kind, addrs, *req.Allowed); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"kind":    kind,
		"updated": len(addrs),
		"allowed": *req.Allowed,
	})
}

type feeRatesReq struct {
	BorrowerOriginationBps uint64 `json:"borrower_origination_bps" validate:"lte=1000"`
	LenderOriginationBps   uint64 `json:"lender_origination_bps"   validate:"lte=1000"`
}

func (h *AdminHandler) SetFees(c echo.Context) error {
	var req feeRatesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(stdhttp.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	rates := feeDomain.Rates{
		BorrowerOriginationBps: req.BorrowerOriginationBps,
		LenderOriginationBps:   req.LenderOriginationBps,
	}
	if err := h.uc.SetOriginationRates(c.Request().Context(), rates); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, ratesJSON(rates))
}

func (h *AdminHandler) GetFees(c echo.Context) error {
	rates, err := h.uc.OriginationRates(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, ratesJSON(rates))
}

func ratesJSON(r feeDomain.Rates) map[string]uint64 {
	return map[string]uint64{
		"borrower_origination_bps": r.BorrowerOriginationBps,
		"lender_origination_bps":   r.LenderOriginationBps,
	}
}
