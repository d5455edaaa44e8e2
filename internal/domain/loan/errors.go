package loan

import "errors"

var (
	ErrZeroAddress        = errors.New("zero address")
	ErrPrincipalTooLow    = errors.New("principal below minimum")
	ErrAmountTooLarge     = errors.New("amount exceeds 256-bit range")
	ErrDurationOutOfRange = errors.New("duration out of range")
	ErrInterestOutOfRange = errors.New("interest rate out of range")
	ErrDeadlinePassed     = errors.New("signature deadline passed")

	ErrCurrencyNotAllowed   = errors.New("payable currency not allowed")
	ErrCollateralNotAllowed = errors.New("collateral not allowed")

	ErrNotFound     = errors.New("loan not found")
	ErrInvalidState = errors.New("loan not in required state")

	ErrRolloverCurrencyMismatch   = errors.New("rollover currency mismatch")
	ErrRolloverCollateralMismatch = errors.New("rollover collateral mismatch")
)
