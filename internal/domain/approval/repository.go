package approval

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	// Set upserts the owner→delegate grant.
	Set(ctx context.Context, owner, delegate common.Address, allowed bool) error
	IsApproved(ctx context.Context, owner, delegate common.Address) (bool, error)
}
