// Package memuow is an in-memory unit of work backing usecase tests: every
// repository works off plain maps, and WithinTx snapshots state so a failed
// callback observably rolls back.
package memuow

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xScratch/arcade-protocol/internal/domain/allowlist"
	"github.com/0xScratch/arcade-protocol/internal/domain/custody"
	"github.com/0xScratch/arcade-protocol/internal/domain/fee"
	"github.com/0xScratch/arcade-protocol/internal/domain/loan"
	"github.com/0xScratch/arcade-protocol/internal/domain/uow"
)

type Store struct {
	NextLoanID uint64
	Loans      map[uint64]*loan.Loan
	Approvals  map[[2]common.Address]bool
	Allowed    map[string]bool // kind/address
	Balances   map[string]*big.Int
	Owners     map[string]common.Address
	Bundles    map[string][]custody.Holding
	Projects   map[string]bool
	Rates      fee.Rates
	Events     []string

	// TransferLog records every fungible and collateral movement in order,
	// so tests can assert the custody sequence.
	TransferLog []string
}

func New() *Store {
	return &Store{
		NextLoanID: 1,
		Loans:      make(map[uint64]*loan.Loan),
		Approvals:  make(map[[2]common.Address]bool),
		Allowed:    make(map[string]bool),
		Balances:   make(map[string]*big.Int),
		Owners:     make(map[string]common.Address),
		Bundles:    make(map[string][]custody.Holding),
		Projects:   make(map[string]bool),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	backup := s.snapshot()
	err := fn(uow.Repos{
		Loans:      (*loanRepo)(s),
		Approvals:  (*approvalRepo)(s),
		Allowlists: (*allowlistRepo)(s),
		Funds:      (*fundsRepo)(s),
		Collateral: (*collateralRepo)(s),
		Bundles:    (*bundleRepo)(s),
		Fees:       (*feeRepo)(s),
		Events:     (*eventRepo)(s),
	})
	if err != nil {
		s.restore(backup)
	}
	return err
}

// Repos returns the repository set outside a transaction, for test setup.
func (s *Store) Repos() uow.Repos {
	return uow.Repos{
		Loans:      (*loanRepo)(s),
		Approvals:  (*approvalRepo)(s),
		Allowlists: (*allowlistRepo)(s),
		Funds:      (*fundsRepo)(s),
		Collateral: (*collateralRepo)(s),
		Bundles:    (*bundleRepo)(s),
		Fees:       (*feeRepo)(s),
		Events:     (*eventRepo)(s),
	}
}

// SetBalance seeds a fungible balance.
func (s *Store) SetBalance(currency, holder common.Address, amount int64) {
	s.Balances[balKey(currency, holder)] = big.NewInt(amount)
}

// Balance reads a fungible balance, zero when absent.
func (s *Store) Balance(currency, holder common.Address) *big.Int {
	if b, ok := s.Balances[balKey(currency, holder)]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// SetOwner seeds collateral ownership.
func (s *Store) SetOwner(asset common.Address, id *big.Int, owner common.Address) {
	s.Owners[itemKey(asset, id)] = owner
}

// Allow adds an address to one allow-list.
func (s *Store) Allow(kind allowlist.Kind, addr common.Address) {
	s.Allowed[listKey(kind, addr)] = true
}

type snapshotState struct {
	nextLoanID uint64
	loans      map[uint64]*loan.Loan
	approvals  map[[2]common.Address]bool
	allowed    map[string]bool
	balances   map[string]*big.Int
	owners     map[string]common.Address
	events     []string
	log        []string
}

func (s *Store) snapshot() snapshotState {
	b := snapshotState{
		nextLoanID: s.NextLoanID,
		loans:      make(map[uint64]*loan.Loan, len(s.Loans)),
		approvals:  make(map[[2]common.Address]bool, len(s.Approvals)),
		allowed:    make(map[string]bool, len(s.Allowed)),
		balances:   make(map[string]*big.Int, len(s.Balances)),
		owners:     make(map[string]common.Address, len(s.Owners)),
		events:     append([]string(nil), s.Events...),
		log:        append([]string(nil), s.TransferLog...),
	}
	for k, v := range s.Loans {
		cp := *v
		b.loans[k] = &cp
	}
	for k, v := range s.Approvals {
		b.approvals[k] = v
	}
	for k, v := range s.Allowed {
		b.allowed[k] = v
	}
	for k, v := range s.Balances {
		b.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range s.Owners {
		b.owners[k] = v
	}
	return b
}

func (s *Store) restore(b snapshotState) {
	s.NextLoanID = b.nextLoanID
	s.Loans = b.loans
	s.Approvals = b.approvals
	s.Allowed = b.allowed
	s.Balances = b.balances
	s.Owners = b.owners
	s.Events = b.events
	s.TransferLog = b.log
}

func balKey(currency, holder common.Address) string  { return currency.Hex() + "/" + holder.Hex() }
func itemKey(asset common.Address, id *big.Int) string { return asset.Hex() + "/" + id.String() }
func listKey(kind allowlist.Kind, addr common.Address) string {
	return string(kind) + "/" + addr.Hex()
}

// --- loan.Repository ---

type loanRepo Store

func (r *loanRepo) GetByID(_ context.Context, id uint64) (*loan.Loan, error) {
	l, ok := r.Loans[id]
	if !ok {
		return nil, loan.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *loanRepo) Start(_ context.Context, l *loan.Loan) error {
	l.ID = r.NextLoanID
	r.NextLoanID++
	cp := *l
	r.Loans[l.ID] = &cp
	return nil
}

func (r *loanRepo) Rollover(_ context.Context, oldID uint64, replacement *loan.Loan, _ loan.Settlement) (uint64, error) {
	old, ok := r.Loans[oldID]
	if !ok {
		return 0, loan.ErrNotFound
	}
	old.State = loan.StateRolledOver
	replacement.ID = r.NextLoanID
	r.NextLoanID++
	cp := *replacement
	r.Loans[replacement.ID] = &cp
	return replacement.ID, nil
}

// --- approval.Repository ---

type approvalRepo Store

func (r *approvalRepo) Set(_ context.Context, owner, delegate common.Address, allowed bool) error {
	r.Approvals[[2]common.Address{owner, delegate}] = allowed
	return nil
}

func (r *approvalRepo) IsApproved(_ context.Context, owner, delegate common.Address) (bool, error) {
	return r.Approvals[[2]common.Address{owner, delegate}], nil
}

// --- allowlist.Repository ---

type allowlistRepo Store

func (r *allowlistRepo) SetBatch(_ context.Context, kind allowlist.Kind, addrs []common.Address, allowed bool) error {
	for _, a := range addrs {
		r.Allowed[listKey(kind, a)] = allowed
	}
	return nil
}

func (r *allowlistRepo) IsAllowed(_ context.Context, kind allowlist.Kind, addr common.Address) (bool, error) {
	return r.Allowed[listKey(kind, addr)], nil
}

// --- custody.FungibleCustody ---

type fundsRepo Store

func (r *fundsRepo) Transfer(_ context.Context, currency, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer %s", amount)
	}
	fromKey := balKey(currency, from)
	have := r.Balances[fromKey]
	if have == nil || have.Cmp(amount) < 0 {
		return custody.ErrInsufficientBalance
	}
	r.Balances[fromKey] = new(big.Int).Sub(have, amount)
	toKey := balKey(currency, to)
	if r.Balances[toKey] == nil {
		r.Balances[toKey] = new(big.Int)
	}
	r.Balances[toKey] = new(big.Int).Add(r.Balances[toKey], amount)
	r.TransferLog = append(r.TransferLog, fmt.Sprintf("funds %s->%s %s", from.Hex(), to.Hex(), amount))
	return nil
}

func (r *fundsRepo) BalanceOf(_ context.Context, currency, holder common.Address) (*big.Int, error) {
	return (*Store)(r).Balance(currency, holder), nil
}

// --- custody.CollateralCustody ---

type collateralRepo Store

func (r *collateralRepo) TransferItem(_ context.Context, asset common.Address, id *big.Int, from, to common.Address) error {
	key := itemKey(asset, id)
	owner, ok := r.Owners[key]
	if !ok {
		return custody.ErrItemNotFound
	}
	if owner != from {
		return custody.ErrNotOwner
	}
	r.Owners[key] = to
	r.TransferLog = append(r.TransferLog, fmt.Sprintf("collateral %s->%s %s/%s", from.Hex(), to.Hex(), asset.Hex(), id))
	return nil
}

func (r *collateralRepo) OwnerOf(_ context.Context, asset common.Address, id *big.Int) (common.Address, error) {
	owner, ok := r.Owners[itemKey(asset, id)]
	if !ok {
		return common.Address{}, custody.ErrItemNotFound
	}
	return owner, nil
}

// --- custody.BundleStore ---

type bundleRepo Store

func (r *bundleRepo) Holdings(_ context.Context, bundleAsset common.Address, bundleID *big.Int) ([]custody.Holding, error) {
	return r.Bundles[itemKey(bundleAsset, bundleID)], nil
}

func (r *bundleRepo) HasProject(_ context.Context, asset common.Address, projectID uint64) (bool, error) {
	return r.Projects[fmt.Sprintf("%s/%d", asset.Hex(), projectID)], nil
}

// --- fee.Registry ---

type feeRepo Store

func (r *feeRepo) OriginationRates(context.Context) (fee.Rates, error) { return r.Rates, nil }

func (r *feeRepo) SetOriginationRates(_ context.Context, rates fee.Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	r.Rates = rates
	return nil
}

// --- event.Repository ---

type eventRepo Store

func (r *eventRepo) Append(_ context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.Events = append(r.Events, kind+":"+string(raw))
	return nil
}
