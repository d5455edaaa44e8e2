package http

import (
	"math/big"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

var (
	reEthAddr = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	reHash32  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	reBigInt  = regexp.MustCompile(`^[0-9]{1,78}$`)
	reHexData = regexp.MustCompile(`^0x([0-9a-fA-F]{2})*$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// checksummed or plain 20-byte hex address
	_ = v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return reEthAddr.MatchString(fl.Field().String())
	})
	// 32-byte hex word (signature halves, affiliate codes)
	_ = v.RegisterValidation("hash32", func(fl validator.FieldLevel) bool {
		return reHash32.MatchString(fl.Field().String())
	})
	// unsigned decimal string, fits uint256. The digit regex alone admits
	// 78-digit values past 2^256, which no digest word can carry.
	_ = v.RegisterValidation("bigint", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !reBigInt.MatchString(s) {
			return false
		}
		n, ok := new(big.Int).SetString(s, 10)
		return ok && n.BitLen() <= 256
	})
	// 0x-prefixed byte string, possibly empty
	_ = v.RegisterValidation("hexdata", func(fl validator.FieldLevel) bool {
		return reHexData.MatchString(fl.Field().String())
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "ethaddr":
			out = append(out, FieldError{Field: field, Message: "must be a 0x-prefixed 20-byte hex address"})
		case "hash32":
			out = append(out, FieldError{Field: field, Message: "must be a 0x-prefixed 32-byte hex word"})
		case "bigint":
			out = append(out, FieldError{Field: field, Message: "must be an unsigned decimal integer below 2^256"})
		case "hexdata":
			out = append(out, FieldError{Field: field, Message: "must be 0x-prefixed hex bytes"})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must have at most " + e.Param() + " entries"})
		case "dive":
			out = append(out, FieldError{Field: field, Message: "contains an invalid entry"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
