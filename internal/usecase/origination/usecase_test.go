package origination

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/predicate"
	"github.com/0xScratch/arcade-protocol/internal/testutil/memuow"
	approvaluc "github.com/0xScratch/arcade-protocol/internal/usecase/approval"
	"github.com/0xScratch/arcade-protocol/internal/verification"
	"github.com/0xScratch/arcade-protocol/pkg/typeddata"
)

var (
	borrower     = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	custodian    = common.HexToAddress("0x00000000000000000000000000000000000000cd")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	currency     = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	collateral   = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	verifierAddr = common.HexToAddress("0x0000000000000000000000000000000000000e01")
)

var errNonceUsed = errors.New("nonce exhausted")

type memNonces struct {
	used map[string]uint64
}

func (m *memNonces) Consume(_ context.Context, signer common.Address, nonce, maxUses uint64) error {
	key := fmt.Sprintf("%s/%d", signer.Hex(), nonce)
	m.used[key]++
	if m.used[key] > maxUses {
		return errNonceUsed
	}
	return nil
}

func (m *memNonces) Release(_ context.Context, signer common.Address, nonce uint64) error {
	key := fmt.Sprintf("%s/%d", signer.Hex(), nonce)
	if m.used[key] > 0 {
		m.used[key]--
	}
	return nil
}

var testNow = time.Unix(1_800_000_000, 0).UTC()

type fixture struct {
	uc      *Usecase
	store   *memuow.Store
	gateway *verification.Gateway
	nonces  *memNonces

	lenderKey *ecdsa.PrivateKey
	lender    common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	lender := crypto.PubkeyToAddress(key.PublicKey)

	store := memuow.New()
	store.Rates = fee.Rates{BorrowerOriginationBps: 100, LenderOriginationBps: 50}
	store.Allow(allowlist.KindCurrency, currency)
	store.Allow(allowlist.KindCollateral, collateral)
	store.Allow(allowlist.KindVerifier, verifierAddr)
	store.SetBalance(currency, lender, 10_000_000)
	store.SetOwner(collateral, big.NewInt(7), borrower)

	gateway := verification.NewGateway()
	nonces := &memNonces{used: make(map[string]uint64)}

	uc := NewUsecase(Config{
		UoW:    store,
		Nonces: nonces,
		Domain: typeddata.Domain{
			Name:              "ArcadeOrigination",
			Version:           "4",
			ChainID:           1,
			VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		},
		Gateway:      gateway,
		Custodian:    custodian,
		FeeRecipient: feeRecipient,
		Now:          func() time.Time { return testNow },
	})

	return &fixture{uc: uc, store: store, gateway: gateway, nonces: nonces, lenderKey: key, lender: lender}
}

func validTerms() loan.Terms {
	return loan.Terms{
		Principal:         big.NewInt(1_000_000),
		InterestRateBps:   1_000,
		DurationSeconds:   86_400,
		Deadline:          testNow.Add(time.Hour).Unix(),
		CollateralAddress: collateral,
		CollateralID:      big.NewInt(7),
		PayableCurrency:   currency,
	}
}

func (f *fixture) sign(t *testing.T, digest common.Hash, key *ecdsa.PrivateKey) typeddata.Signature {
	t.Helper()
	raw, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return typeddata.Signature{
		V: raw[64],
		R: common.BytesToHash(raw[:32]),
		S: common.BytesToHash(raw[32:64]),
	}
}

// lenderSignedInit builds a borrower-called initialize input authorized by
// the lender's token-schema signature.
func (f *fixture) lenderSignedInit(t *testing.T, terms loan.Terms, props typeddata.SigProperties) InitializeInput {
	t.Helper()
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))
	return InitializeInput{
		Caller:        borrower,
		Borrower:      borrower,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, f.lenderKey),
		SigProperties: props,
	}
}

func TestInitializeLoan_TokenFlow(t *testing.T) {
	f := newFixture(t)
	in := f.lenderSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1})

	loanID, err := f.uc.InitializeLoan(context.Background(), in)
	if err != nil {
		t.Fatalf("InitializeLoan: %v", err)
	}
	if loanID == 0 {
		t.Fatal("no loan id assigned")
	}

	l := f.store.Loans[loanID]
	if l == nil || l.State != loan.StateActive {
		t.Fatalf("loan record = %+v", l)
	}
	if l.Borrower != borrower.Hex() || l.Lender != f.lender.Hex() {
		t.Fatalf("parties = %s / %s", l.Borrower, l.Lender)
	}

	// lenderFee = 5_000, borrowerFee = 10_000.
	if got := f.store.Balance(currency, f.lender); got.Int64() != 10_000_000-1_005_000 {
		t.Fatalf("lender balance = %s", got)
	}
	if got := f.store.Balance(currency, borrower); got.Int64() != 990_000 {
		t.Fatalf("borrower balance = %s", got)
	}
	if got := f.store.Balance(currency, feeRecipient); got.Int64() != 15_000 {
		t.Fatalf("fee recipient balance = %s", got)
	}
	if got := f.store.Balance(currency, custodian); got.Sign() != 0 {
		t.Fatalf("custodian retains %s", got)
	}

	owner, err := f.store.Repos().Collateral.OwnerOf(context.Background(), collateral, big.NewInt(7))
	if err != nil || owner != custodian {
		t.Fatalf("collateral owner = %s, err %v", owner.Hex(), err)
	}

	if len(f.store.Events) != 1 || !strings.HasPrefix(f.store.Events[0], "loan_started:") {
		t.Fatalf("events = %v", f.store.Events)
	}
}

func TestInitializeLoan_BorrowerSignedLenderCalls(t *testing.T) {
	f := newFixture(t)
	borrowerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signingBorrower := crypto.PubkeyToAddress(borrowerKey.PublicKey)
	f.store.SetOwner(collateral, big.NewInt(7), signingBorrower)

	terms := validTerms()
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideBorrow))

	_, err = f.uc.InitializeLoan(context.Background(), InitializeInput{
		Caller:        f.lender,
		Borrower:      signingBorrower,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, borrowerKey),
		SigProperties: props,
	})
	if err != nil {
		t.Fatalf("InitializeLoan: %v", err)
	}
}

func TestInitializeLoan_TermsBounds(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}

	tests := []struct {
		name   string
		mutate func(*loan.Terms)
		want   error
	}{
		{"principal too low", func(t *loan.Terms) { t.Principal = big.NewInt(9_999) }, loan.ErrPrincipalTooLow},
		{"duration too short", func(t *loan.Terms) { t.DurationSeconds = 3_599 }, loan.ErrDurationOutOfRange},
		{"duration too long", func(t *loan.Terms) { t.DurationSeconds = 94_608_001 }, loan.ErrDurationOutOfRange},
		{"rate zero", func(t *loan.Terms) { t.InterestRateBps = 0 }, loan.ErrInterestOutOfRange},
		{"rate too high", func(t *loan.Terms) { t.InterestRateBps = 1_000_001 }, loan.ErrInterestOutOfRange},
		{"deadline passed", func(t *loan.Terms) { t.Deadline = testNow.Add(-time.Second).Unix() }, loan.ErrDeadlinePassed},
		{"zero currency", func(t *loan.Terms) { t.PayableCurrency = common.Address{} }, loan.ErrZeroAddress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			terms := validTerms()
			tc.mutate(&terms)
			_, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestInitializeLoan_AmountsBoundedTo256Bits(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)

	// Inputs are rejected before any digest is built, so the oversized
	// value never reaches the 32-byte hashing words.
	in := f.lenderSignedInit(t, validTerms(), props)
	in.Terms.Principal = huge
	if _, err := f.uc.InitializeLoan(context.Background(), in); !errors.Is(err, loan.ErrAmountTooLarge) {
		t.Fatalf("principal err = %v, want ErrAmountTooLarge", err)
	}

	in = f.lenderSignedInit(t, validTerms(), props)
	in.Terms.CollateralID = huge
	if _, err := f.uc.InitializeLoan(context.Background(), in); !errors.Is(err, loan.ErrAmountTooLarge) {
		t.Fatalf("collateral id err = %v, want ErrAmountTooLarge", err)
	}

	// The largest representable value passes the bound.
	maxWord := new(big.Int).Sub(huge, big.NewInt(1))
	terms := validTerms()
	terms.Principal = maxWord
	if err := terms.Validate(testNow); err != nil {
		t.Fatalf("max word rejected: %v", err)
	}
}

func TestInitializeLoan_AllowlistEnforced(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}

	terms := validTerms()
	terms.PayableCurrency = common.HexToAddress("0x0000000000000000000000000000000000009999")
	_, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props))
	if !errors.Is(err, loan.ErrCurrencyNotAllowed) {
		t.Fatalf("err = %v, want ErrCurrencyNotAllowed", err)
	}

	f.store.Allow(allowlist.KindCurrency, terms.PayableCurrency)
	terms.CollateralAddress = common.HexToAddress("0x0000000000000000000000000000000000008888")
	_, err = f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props))
	if !errors.Is(err, loan.ErrCollateralNotAllowed) {
		t.Fatalf("err = %v, want ErrCollateralNotAllowed", err)
	}
}

func TestInitializeLoan_SelfDealingRejected(t *testing.T) {
	f := newFixture(t)
	terms := validTerms()
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}

	// The lender signs and also calls: the caller authored the signature.
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideBorrow))
	_, err := f.uc.InitializeLoan(context.Background(), InitializeInput{
		Caller:        f.lender,
		Borrower:      borrower,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, f.lenderKey),
		SigProperties: props,
	})
	if !errors.Is(err, approvaluc.ErrApprovedOwnLoan) {
		t.Fatalf("err = %v, want ErrApprovedOwnLoan", err)
	}
}

func TestInitializeLoan_StrangerSignatureRejected(t *testing.T) {
	f := newFixture(t)
	strangerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	terms := validTerms()
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))

	_, err = f.uc.InitializeLoan(context.Background(), InitializeInput{
		Caller:        borrower,
		Borrower:      borrower,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, strangerKey),
		SigProperties: props,
	})
	if !errors.Is(err, approvaluc.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestInitializeLoan_NonceReplayRejected(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 42, MaxUses: 1}

	if _, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, validTerms(), props)); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// A second loan against the same signature nonce must fail even with
	// fresh collateral.
	f.store.SetOwner(collateral, big.NewInt(8), borrower)
	terms := validTerms()
	terms.CollateralID = big.NewInt(8)
	_, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props))
	if !errors.Is(err, errNonceUsed) {
		t.Fatalf("err = %v, want nonce exhausted", err)
	}
}

func TestInitializeLoan_MaxUsesHonored(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 7, MaxUses: 2}

	if _, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, validTerms(), props)); err != nil {
		t.Fatalf("first use: %v", err)
	}

	f.store.SetOwner(collateral, big.NewInt(8), borrower)
	terms := validTerms()
	terms.CollateralID = big.NewInt(8)
	if _, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props)); err != nil {
		t.Fatalf("second use within maxUses: %v", err)
	}

	f.store.SetOwner(collateral, big.NewInt(9), borrower)
	terms.CollateralID = big.NewInt(9)
	if _, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, terms, props)); !errors.Is(err, errNonceUsed) {
		t.Fatalf("third use must fail, got %v", err)
	}
}

func TestInitializeLoan_NonceRefundedOnRollback(t *testing.T) {
	f := newFixture(t)
	props := typeddata.SigProperties{Nonce: 11, MaxUses: 1}
	in := f.lenderSignedInit(t, validTerms(), props)

	// Settlement fails mid-transaction: the lender cannot fund the loan.
	f.store.SetBalance(currency, f.lender, 0)
	if _, err := f.uc.InitializeLoan(context.Background(), in); !errors.Is(err, custody.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// A transient failure must not spend the signature: fund the lender and
	// resubmit the identical signed message.
	f.store.SetBalance(currency, f.lender, 10_000_000)
	if _, err := f.uc.InitializeLoan(context.Background(), in); err != nil {
		t.Fatalf("resubmission after rollback: %v", err)
	}

	// The successful settlement consumed the nonce for good.
	f.store.SetOwner(collateral, big.NewInt(7), borrower)
	if _, err := f.uc.InitializeLoan(context.Background(), in); !errors.Is(err, errNonceUsed) {
		t.Fatalf("replay err = %v, want nonce exhausted", err)
	}
}

// orderingVerifier records whether collateral had already moved when the
// predicate ran.
type orderingVerifier struct {
	store              *memuow.Store
	sawCollateralMoved bool
	result             bool
}

func (o *orderingVerifier) VerifyPredicates(context.Context, common.Address, common.Address, common.Address, *big.Int, []byte) (bool, error) {
	for _, entry := range o.store.TransferLog {
		if strings.HasPrefix(entry, "collateral ") {
			o.sawCollateralMoved = true
		}
	}
	return o.result, nil
}

func (f *fixture) itemsSignedInit(t *testing.T, terms loan.Terms, props typeddata.SigProperties, preds []predicate.Predicate) InitializeInput {
	t.Helper()
	digest := typeddata.ItemsDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend), predicatesHash(preds))
	return InitializeInput{
		Caller:        borrower,
		Borrower:      borrower,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, f.lenderKey),
		SigProperties: props,
		Predicates:    preds,
	}
}

func TestInitializeLoan_PredicatesRunAfterCustodyTransfer(t *testing.T) {
	f := newFixture(t)
	ov := &orderingVerifier{store: f.store, result: true}
	f.gateway.Register(verifierAddr, ov)

	preds := []predicate.Predicate{{Verifier: verifierAddr, Data: []byte("rule")}}
	_, err := f.uc.InitializeLoan(context.Background(), f.itemsSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1}, preds))
	if err != nil {
		t.Fatalf("InitializeLoan: %v", err)
	}
	if !ov.sawCollateralMoved {
		t.Fatal("predicate ran before collateral custody transfer")
	}
}

func TestInitializeLoan_PredicateFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.gateway.Register(verifierAddr, &orderingVerifier{store: f.store, result: false})

	preds := []predicate.Predicate{{Verifier: verifierAddr, Data: []byte("rule")}}
	_, err := f.uc.InitializeLoan(context.Background(), f.itemsSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1}, preds))

	var failed *predicate.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want FailedError", err)
	}
	if got := f.store.Balance(currency, f.lender); got.Int64() != 10_000_000 {
		t.Fatalf("lender balance not rolled back: %s", got)
	}
	owner, _ := f.store.Repos().Collateral.OwnerOf(context.Background(), collateral, big.NewInt(7))
	if owner != borrower {
		t.Fatalf("collateral not rolled back: owner = %s", owner.Hex())
	}
	if len(f.store.Loans) != 0 {
		t.Fatal("loan recorded despite predicate failure")
	}
}

func TestInitializeLoan_TokenSignatureInvalidForItemsCall(t *testing.T) {
	f := newFixture(t)
	f.gateway.Register(verifierAddr, &orderingVerifier{store: f.store, result: true})

	// Signature over the token schema, call carries predicates: dispatch
	// picks the items schema and recovery yields a stranger.
	in := f.lenderSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1})
	in.Predicates = []predicate.Predicate{{Verifier: verifierAddr, Data: []byte("rule")}}

	_, err := f.uc.InitializeLoan(context.Background(), in)
	if !errors.Is(err, approvaluc.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func (f *fixture) startLoan(t *testing.T) uint64 {
	t.Helper()
	id, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1}))
	if err != nil {
		t.Fatalf("startLoan: %v", err)
	}
	return id
}

func TestRolloverLoan_SameLender(t *testing.T) {
	f := newFixture(t)
	oldID := f.startLoan(t)
	lenderBefore := f.store.Balance(currency, f.lender)
	borrowerBefore := f.store.Balance(currency, borrower)

	terms := validTerms()
	terms.Principal = big.NewInt(2_000_000)
	props := typeddata.SigProperties{Nonce: 2, MaxUses: 1}
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))

	newID, err := f.uc.RolloverLoan(context.Background(), RolloverInput{
		Caller:        borrower,
		OldLoanID:     oldID,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, f.lenderKey),
		SigProperties: props,
	})
	if err != nil {
		t.Fatalf("RolloverLoan: %v", err)
	}
	if newID == oldID {
		t.Fatal("rollover must assign a new id")
	}

	if got := f.store.Loans[oldID].State; got != loan.StateRolledOver {
		t.Fatalf("old state = %s", got)
	}
	newLoan := f.store.Loans[newID]
	if newLoan.State != loan.StateActive || newLoan.RolledOverFrom == nil || *newLoan.RolledOverFrom != oldID {
		t.Fatalf("new loan = %+v", newLoan)
	}

	// repay = 1_100_000; amountFromLender = 2_010_000; borrowerOwed =
	// 1_980_000. Lender nets out 910_000, borrower gains 880_000, protocol
	// takes 30_000.
	if got := new(big.Int).Sub(lenderBefore, f.store.Balance(currency, f.lender)); got.Int64() != 910_000 {
		t.Fatalf("lender net = %s", got)
	}
	if got := new(big.Int).Sub(f.store.Balance(currency, borrower), borrowerBefore); got.Int64() != 880_000 {
		t.Fatalf("borrower net = %s", got)
	}
	if got := f.store.Balance(currency, custodian); got.Sign() != 0 {
		t.Fatalf("custodian retains %s", got)
	}

	// Collateral stays in custody.
	owner, _ := f.store.Repos().Collateral.OwnerOf(context.Background(), collateral, big.NewInt(7))
	if owner != custodian {
		t.Fatalf("collateral owner = %s", owner.Hex())
	}
}

func TestRolloverLoan_NewLenderPaysOutOldLender(t *testing.T) {
	f := newFixture(t)
	oldID := f.startLoan(t)

	newKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	newLender := crypto.PubkeyToAddress(newKey.PublicKey)
	f.store.SetBalance(currency, newLender, 5_000_000)
	oldLenderBefore := f.store.Balance(currency, f.lender)

	terms := validTerms()
	props := typeddata.SigProperties{Nonce: 3, MaxUses: 1}
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))

	_, err = f.uc.RolloverLoan(context.Background(), RolloverInput{
		Caller:        borrower,
		OldLoanID:     oldID,
		Lender:        newLender,
		Terms:         terms,
		Signature:     f.sign(t, digest, newKey),
		SigProperties: props,
	})
	if err != nil {
		t.Fatalf("RolloverLoan: %v", err)
	}

	// repay = 1_100_000 flows to the old lender in full.
	if got := new(big.Int).Sub(f.store.Balance(currency, f.lender), oldLenderBefore); got.Int64() != 1_100_000 {
		t.Fatalf("old lender received %s", got)
	}
	// New lender funds principal + lender fee = 1_005_000.
	if got := f.store.Balance(currency, newLender); got.Int64() != 5_000_000-1_005_000 {
		t.Fatalf("new lender balance = %s", got)
	}
	if got := f.store.Balance(currency, custodian); got.Sign() != 0 {
		t.Fatalf("custodian retains %s", got)
	}
}

func TestRolloverLoan_StateAndMatchGuards(t *testing.T) {
	f := newFixture(t)
	oldID := f.startLoan(t)

	props := typeddata.SigProperties{Nonce: 5, MaxUses: 1}
	mkInput := func(terms loan.Terms) RolloverInput {
		digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))
		return RolloverInput{
			Caller:        borrower,
			OldLoanID:     oldID,
			Lender:        f.lender,
			Terms:         terms,
			Signature:     f.sign(t, digest, f.lenderKey),
			SigProperties: props,
		}
	}

	terms := validTerms()
	otherCurrency := common.HexToAddress("0x0000000000000000000000000000000000007777")
	f.store.Allow(allowlist.KindCurrency, otherCurrency)
	terms.PayableCurrency = otherCurrency
	if _, err := f.uc.RolloverLoan(context.Background(), mkInput(terms)); !errors.Is(err, loan.ErrRolloverCurrencyMismatch) {
		t.Fatalf("currency mismatch err = %v", err)
	}

	terms = validTerms()
	terms.CollateralID = big.NewInt(99)
	if _, err := f.uc.RolloverLoan(context.Background(), mkInput(terms)); !errors.Is(err, loan.ErrRolloverCollateralMismatch) {
		t.Fatalf("collateral mismatch err = %v", err)
	}

	// Roll over once, then the old loan is no longer active.
	if _, err := f.uc.RolloverLoan(context.Background(), mkInput(validTerms())); err != nil {
		t.Fatalf("valid rollover: %v", err)
	}
	props.Nonce = 6
	if _, err := f.uc.RolloverLoan(context.Background(), mkInput(validTerms())); !errors.Is(err, loan.ErrInvalidState) {
		t.Fatalf("rolled-over loan err = %v", err)
	}
}

func TestRolloverLoan_UnknownLoan(t *testing.T) {
	f := newFixture(t)
	terms := validTerms()
	props := typeddata.SigProperties{Nonce: 1, MaxUses: 1}
	digest := typeddata.TokenDigest(f.uc.domain, termsInput(terms), props, uint8(loan.SideLend))

	_, err := f.uc.RolloverLoan(context.Background(), RolloverInput{
		Caller:        borrower,
		OldLoanID:     12345,
		Lender:        f.lender,
		Terms:         terms,
		Signature:     f.sign(t, digest, f.lenderKey),
		SigProperties: props,
	})
	if !errors.Is(err, loan.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// recordingCallback captures the custody state at callback time: principal
// must already be disbursed, collateral not yet pulled.
type recordingCallback struct {
	store           *memuow.Store
	borrowerBalance *big.Int
	collateralOwner common.Address
	invocations     int
}

func (c *recordingCallback) ExecuteOperation(_ context.Context, _, _ common.Address, terms loan.Terms, _ *big.Int, _ []byte) error {
	c.invocations++
	c.borrowerBalance = c.store.Balance(terms.PayableCurrency, borrower)
	owner, _ := c.store.Repos().Collateral.OwnerOf(context.Background(), terms.CollateralAddress, terms.CollateralID)
	c.collateralOwner = owner
	return nil
}

func TestInitializeLoan_CallbackRunsBetweenDisbursementAndCollateralPull(t *testing.T) {
	f := newFixture(t)
	cb := &recordingCallback{store: f.store}
	f.uc.callback = cb

	in := f.lenderSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1})
	in.BorrowerData = []byte("payload")

	if _, err := f.uc.InitializeLoan(context.Background(), in); err != nil {
		t.Fatalf("InitializeLoan: %v", err)
	}
	if cb.invocations != 1 {
		t.Fatalf("callback invocations = %d", cb.invocations)
	}
	if cb.borrowerBalance.Int64() != 990_000 {
		t.Fatalf("principal not yet disbursed at callback: %s", cb.borrowerBalance)
	}
	if cb.collateralOwner != borrower {
		t.Fatalf("collateral already pulled at callback: %s", cb.collateralOwner.Hex())
	}
}

func TestInitializeLoan_NoCallbackWithoutData(t *testing.T) {
	f := newFixture(t)
	cb := &recordingCallback{store: f.store}
	f.uc.callback = cb

	if _, err := f.uc.InitializeLoan(context.Background(), f.lenderSignedInit(t, validTerms(), typeddata.SigProperties{Nonce: 1, MaxUses: 1})); err != nil {
		t.Fatalf("InitializeLoan: %v", err)
	}
	if cb.invocations != 0 {
		t.Fatal("callback ran without borrower data")
	}
}
