// Package nonce defines the signature replay store contract.
package nonce

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrExhausted is returned once a (signer, nonce) pairing has been consumed
// maxUses times.
var ErrExhausted = errors.New("signature nonce exhausted")

// Store counts consumption per (signer, nonce) pairing. Consume charges one
// use and fails with ErrExhausted past maxUses. Release refunds one use; it
// is only valid after a successful Consume whose guarded work was rolled
// back.
type Store interface {
	Consume(ctx context.Context, signer common.Address, nonce, maxUses uint64) error
	Release(ctx context.Context, signer common.Address, nonce uint64) error
}
