package http

import (
	stdhttp "net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	approvaluc "github.com/0xScratch/arcade-protocol/internal/usecase/approval"
)

type ApprovalHandler struct{ uc *approvaluc.Usecase }

func NewApprovalHandler(uc *approvaluc.Usecase) *ApprovalHandler {
	return &ApprovalHandler{uc: uc}
}

type approveReq struct {
	Delegate string `json:"delegate" validate:"required,ethaddr"`
	Allowed  *bool  `json:"allowed"  validate:"required"`
}

// Approve grants or revokes the caller's delegate.
func (h *ApprovalHandler) Approve(c echo.Context) error {
	owner, ok := callerAddress(c)
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + HeaderCallerAddress + " header"})
	}
	var req approveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(stdhttp.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	if err := h.uc.Approve(c.Request().Context(), owner, common.HexToAddress(req.Delegate), *req.Allowed); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"owner":    owner.Hex(),
		"delegate": common.HexToAddress(req.Delegate).Hex(),
		"approved": *req.Allowed,
	})
}

func (h *ApprovalHandler) GetApproval(c echo.Context) error {
	ownerRaw, delegateRaw := c.Param("owner"), c.Param("delegate")
	if !reEthAddr.MatchString(ownerRaw) || !reEthAddr.MatchString(delegateRaw) {
		return c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "owner and delegate must be hex addresses"})
	}
	owner, delegate := common.HexToAddress(ownerRaw), common.HexToAddress(delegateRaw)

	ok, err := h.uc.IsApproved(c.Request().Context(), owner, delegate)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"owner":    owner.Hex(),
		"delegate": delegate.Hex(),
		"approved": ok,
	})
}
