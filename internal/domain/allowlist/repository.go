package allowlist

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	// SetBatch upserts the allowed flag for every address in one batch.
	// Batches are validated by the caller via ValidateBatch.
	SetBatch(ctx context.Context, kind Kind, addrs []common.Address, allowed bool) error
	IsAllowed(ctx context.Context, kind Kind, addr common.Address) (bool, error)
}

// ValidateBatch enforces the batch bounds shared by every mutator: non-empty,
// at most MaxBatch entries, no zero addresses, no duplicates.
func ValidateBatch(addrs []common.Address) error {
	if len(addrs) == 0 {
		return ErrEmptyBatch
	}
	if len(addrs) > MaxBatch {
		return ErrBatchTooLarge
	}
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if a == (common.Address{}) {
			return ErrZeroEntry
		}
		if _, dup := seen[a]; dup {
			return ErrDuplicateEntry
		}
		seen[a] = struct{}{}
	}
	return nil
}
