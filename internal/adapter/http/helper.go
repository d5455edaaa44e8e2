package http

import (
	"errors"
	"math/big"
	stdhttp "net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"

	allowlistDomain "github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	approvalDomain "github.com/0xScratch/arcade-protocol/internal/domain/approval"
	custodyDomain "github.com/0xScratch/arcade-protocol/internal/domain/custody"
	feeDomain "github.com/0xScratch/arcade-protocol/internal/domain/fee"
	loanDomain "github.com/0xScratch/arcade-protocol/internal/domain/loan"
	nonceDomain "github.com/0xScratch/arcade-protocol/internal/domain/nonce"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
	approvaluc "github.com/0xScratch/arcade-protocol/internal/usecase/approval"
)

// HeaderCallerAddress carries the acting address. Signed-request
// authentication is out of scope; the header stands in for msg.sender.
const HeaderCallerAddress = "X-Caller-Address"

func callerAddress(c echo.Context) (common.Address, bool) {
	raw := c.Request().Header.Get(HeaderCallerAddress)
	if !reEthAddr.MatchString(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseBig converts a validated decimal string.
func parseBig(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

// parseHexBytes converts validated 0x-prefixed hex; empty input yields nil.
func parseHexBytes(s string) []byte {
	if s == "" || s == "0x" {
		return nil
	}
	b, _ := hexutil.Decode(s)
	return b
}

// statusFor maps domain errors to HTTP codes: missing records 404,
// authorization failures 403, state races 409, predicate rejections 422,
// everything else a plain 400.
func statusFor(err error) int {
	var failed *predicate.FailedError
	switch {
	case errors.Is(err, loanDomain.ErrNotFound),
		errors.Is(err, approvalDomain.ErrNotFound):
		return stdhttp.StatusNotFound
	case errors.Is(err, approvaluc.ErrApprovedOwnLoan),
		errors.Is(err, approvaluc.ErrCallerNotParticipant),
		errors.Is(err, approvaluc.ErrInvalidSignature),
		errors.Is(err, approvaluc.ErrSideMismatch):
		return stdhttp.StatusForbidden
	case errors.Is(err, nonceDomain.ErrExhausted),
		errors.Is(err, loanDomain.ErrInvalidState),
		errors.Is(err, custodyDomain.ErrInsufficientBalance),
		errors.Is(err, custodyDomain.ErrNotOwner),
		errors.Is(err, custodyDomain.ErrItemNotFound):
		return stdhttp.StatusConflict
	case errors.As(err, &failed),
		errors.Is(err, predicate.ErrInvalidVerifier),
		errors.Is(err, predicate.ErrPredicatesRequired):
		return stdhttp.StatusUnprocessableEntity
	case errors.Is(err, allowlistDomain.ErrEmptyBatch),
		errors.Is(err, allowlistDomain.ErrBatchTooLarge),
		errors.Is(err, allowlistDomain.ErrDuplicateEntry),
		errors.Is(err, allowlistDomain.ErrZeroEntry),
		errors.Is(err, feeDomain.ErrFeeOutOfRange):
		return stdhttp.StatusUnprocessableEntity
	default:
		return stdhttp.StatusBadRequest
	}
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}
