package loan

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/0xScratch/arcade-protocol/pkg/bignum"
)

type State string

const (
	StateCreated    State = "created"
	StateActive     State = "active"
	StateRepaid     State = "repaid"
	StateDefaulted  State = "defaulted"
	StateRolledOver State = "rolled_over"
)

// Side is the counterparty role a signature speaks for.
type Side uint8

const (
	SideBorrow Side = iota
	SideLend
)

// Terms bounds. Durations shorter than an hour or longer than three years
// are rejected, as are interest rates outside [1, 1_000_000] bps.
const (
	MinPrincipal       = 10_000
	MinDurationSeconds = 3_600
	MaxDurationSeconds = 94_608_000
	MinInterestRateBps = 1
	MaxInterestRateBps = 1_000_000

	// Amounts are hashed into fixed 32-byte wire words; anything past 256
	// bits is unrepresentable.
	MaxAmountBits = 256
)

// Terms is the ephemeral input one invocation settles on. It is hashed into
// the signing digest and copied into the ledger record on success.
type Terms struct {
	Principal         *big.Int
	InterestRateBps   uint64
	DurationSeconds   uint32
	Deadline          int64
	CollateralAddress common.Address
	CollateralID      *big.Int
	PayableCurrency   common.Address
	AffiliateCode     common.Hash
}

// Validate checks the pure bounds. Allow-list membership is checked by the
// orchestrator inside the transaction.
func (t Terms) Validate(now time.Time) error {
	if t.PayableCurrency == (common.Address{}) || t.CollateralAddress == (common.Address{}) {
		return ErrZeroAddress
	}
	if t.Principal == nil || t.Principal.Cmp(big.NewInt(MinPrincipal)) < 0 {
		return ErrPrincipalTooLow
	}
	if t.Principal.BitLen() > MaxAmountBits {
		return ErrAmountTooLarge
	}
	if t.CollateralID != nil && (t.CollateralID.Sign() < 0 || t.CollateralID.BitLen() > MaxAmountBits) {
		return ErrAmountTooLarge
	}
	if t.DurationSeconds < MinDurationSeconds || t.DurationSeconds > MaxDurationSeconds {
		return ErrDurationOutOfRange
	}
	if t.InterestRateBps < MinInterestRateBps || t.InterestRateBps > MaxInterestRateBps {
		return ErrInterestOutOfRange
	}
	if t.Deadline < now.Unix() {
		return ErrDeadlinePassed
	}
	return nil
}

// Loan is the ledger record. Borrower and Lender are the note owners; the
// engine reads them during rollover to route settlement.
type Loan struct {
	ID                uint64         `gorm:"primaryKey;column:id" json:"loan_id"`
	State             State          `gorm:"size:16;index" json:"state"`
	Borrower          string         `gorm:"size:42;index" json:"borrower"`
	Lender            string         `gorm:"size:42;index" json:"lender"`
	Principal         bignum.Int     `gorm:"type:varchar(80)" json:"principal"`
	InterestRateBps   uint64         `json:"interest_rate_bps"`
	DurationSeconds   uint32         `json:"duration_seconds"`
	Deadline          int64          `json:"-"`
	CollateralAddress string         `gorm:"size:42;index" json:"collateral_address"`
	CollateralID      bignum.Int     `gorm:"type:varchar(80)" json:"collateral_id"`
	PayableCurrency   string         `gorm:"size:42" json:"payable_currency"`
	AffiliateCode     string         `gorm:"size:66" json:"affiliate_code,omitempty"`
	RolledOverFrom    *uint64        `gorm:"index" json:"rolled_over_from,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"-"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) BorrowerAddress() common.Address { return common.HexToAddress(l.Borrower) }
func (l *Loan) LenderAddress() common.Address   { return common.HexToAddress(l.Lender) }

// TermsOf reconstructs the terms recorded on the loan.
func (l *Loan) TermsOf() Terms {
	return Terms{
		Principal:         l.Principal.Big(),
		InterestRateBps:   l.InterestRateBps,
		DurationSeconds:   l.DurationSeconds,
		Deadline:          l.Deadline,
		CollateralAddress: common.HexToAddress(l.CollateralAddress),
		CollateralID:      l.CollateralID.Big(),
		PayableCurrency:   common.HexToAddress(l.PayableCurrency),
		AffiliateCode:     common.HexToHash(l.AffiliateCode),
	}
}

// NewRecord builds an active record from validated terms.
func NewRecord(t Terms, borrower, lender common.Address, now time.Time) *Loan {
	return &Loan{
		State:             StateActive,
		Borrower:          borrower.Hex(),
		Lender:            lender.Hex(),
		Principal:         bignum.FromBig(t.Principal),
		InterestRateBps:   t.InterestRateBps,
		DurationSeconds:   t.DurationSeconds,
		Deadline:          t.Deadline,
		CollateralAddress: t.CollateralAddress.Hex(),
		CollateralID:      bignum.FromBig(t.CollateralID),
		PayableCurrency:   t.PayableCurrency.Hex(),
		AffiliateCode:     t.AffiliateCode.Hex(),
		StartedAt:         now.UTC(),
	}
}
