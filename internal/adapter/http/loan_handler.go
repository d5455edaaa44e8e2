package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	loanDomain "github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
	"github.com/0xScratch/arcade-protocol/internal/usecase/origination"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

type LoanHandler struct{ uc *origination.Usecase }

func NewLoanHandler(uc *origination.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type termsReq struct {
	Principal         string `json:"principal"          validate:"required,bigint"`
	InterestRateBps   uint64 `json:"interest_rate_bps"  validate:"required"`
	DurationSeconds   uint32 `json:"duration_seconds"   validate:"required"`
	Deadline          int64  `json:"deadline"           validate:"required"`
	CollateralAddress string `json:"collateral_address" validate:"required,ethaddr"`
	CollateralID      string `json:"collateral_id"      validate:"required,bigint"`
	PayableCurrency   string `json:"payable_currency"   validate:"required,ethaddr"`
	AffiliateCode     string `json:"affiliate_code"     validate:"omitempty,hash32"`
}

func (r termsReq) toDomain() loanDomain.Terms {
	return loanDomain.Terms{
		Principal:         parseBig(r.Principal),
		InterestRateBps:   r.InterestRateBps,
		DurationSeconds:   r.DurationSeconds,
		Deadline:          r.Deadline,
		CollateralAddress: common.HexToAddress(r.CollateralAddress),
		CollateralID:      parseBig(r.CollateralID),
		PayableCurrency:   common.HexToAddress(r.PayableCurrency),
		AffiliateCode:     common.HexToHash(r.AffiliateCode),
	}
}

type signatureReq struct {
	V uint8  `json:"v" validate:"required"`
	R string `json:"r" validate:"required,hash32"`
	S string `json:"s" validate:"required,hash32"`
}

func (r signatureReq) toDomain() typeddata.Signature {
	return typeddata.Signature{
		V: r.V,
		R: common.HexToHash(r.R),
		S: common.HexToHash(r.S),
	}
}

type sigPropsReq struct {
	Nonce   uint64 `json:"nonce" validate:"required"`
	MaxUses uint64 `json:"max_uses"`
}

type predicateReq struct {
	Verifier string `json:"verifier" validate:"required,ethaddr"`
	Data     string `json:"data"     validate:"omitempty,hexdata"`
}

func toPredicates(reqs []predicateReq) []predicate.Predicate {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]predicate.Predicate, len(reqs))
	for i, p := range reqs {
		out[i] = predicate.Predicate{
			Verifier: common.HexToAddress(p.Verifier),
			Data:     parseHexBytes(p.Data),
		}
	}
	return out
}

type initializeLoanReq struct {
	Borrower      string         `json:"borrower"       validate:"required,ethaddr"`
	Lender        string         `json:"lender"         validate:"required,ethaddr"`
	Terms         termsReq       `json:"terms"`
	BorrowerData  string         `json:"borrower_data"  validate:"omitempty,hexdata"`
	Signature     signatureReq   `json:"signature"`
	SigProperties sigPropsReq    `json:"sig_properties"`
	Predicates    []predicateReq `json:"predicates"     validate:"omitempty,max=50,dive"`
}

func (h *LoanHandler) InitializeLoan(c echo.Context) error {
	caller, ok := callerAddress(c)
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + HeaderCallerAddress + " header"})
	}
	var req initializeLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(stdhttp.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	loanID, err := h.uc.InitializeLoan(c.Request().Context(), origination.InitializeInput{
		Caller:        caller,
		Borrower:      common.HexToAddress(req.Borrower),
		Lender:        common.HexToAddress(req.Lender),
		Terms:         req.Terms.toDomain(),
		BorrowerData:  parseHexBytes(req.BorrowerData),
		Signature:     req.Signature.toDomain(),
		SigProperties: typeddata.SigProperties{Nonce: req.SigProperties.Nonce, MaxUses: req.SigProperties.MaxUses},
		Predicates:    toPredicates(req.Predicates),
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, map[string]any{"loan_id": loanID})
}

type rolloverLoanReq struct {
	Lender        string         `json:"lender" validate:"required,ethaddr"`
	Terms         termsReq       `json:"terms"`
	Signature     signatureReq   `json:"signature"`
	SigProperties sigPropsReq    `json:"sig_properties"`
	Predicates    []predicateReq `json:"predicates" validate:"omitempty,max=50,dive"`
}

func (h *LoanHandler) RolloverLoan(c echo.Context) error {
	caller, ok := callerAddress(c)
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + HeaderCallerAddress + " header"})
	}
	oldID, err := strconv.ParseUint(c.Param("loan_id"), 10, 64)
	if err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid loan_id path param"})
	}
	var req rolloverLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(stdhttp.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	newID, err := h.uc.RolloverLoan(c.Request().Context(), origination.RolloverInput{
		Caller:        caller,
		OldLoanID:     oldID,
		Lender:        common.HexToAddress(req.Lender),
		Terms:         req.Terms.toDomain(),
		Signature:     req.Signature.toDomain(),
		SigProperties: typeddata.SigProperties{Nonce: req.SigProperties.Nonce, MaxUses: req.SigProperties.MaxUses},
		Predicates:    toPredicates(req.Predicates),
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"loan_id":          newID,
		"rolled_over_from": oldID,
	})
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("loan_id"), 10, 64)
	if err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid loan_id path param"})
	}
	l, err := h.uc.GetLoan(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, l)
}
