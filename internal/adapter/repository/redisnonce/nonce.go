// Package redisnonce counts signature nonce consumption in redis, so replay
// protection holds across api instances.
package redisnonce

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/0xScratch/arcade-protocol/internal/domain/nonce"
)

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Consume increments the (signer, nonce) counter and fails once the count
// exceeds maxUses. Keys have no TTL: a consumed nonce stays consumed.
func (s *Store) Consume(ctx context.Context, signer common.Address, n, maxUses uint64) error {
	key := nonceKey(signer, n)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis incr %s: %w", key, err)
	}
	if uint64(count) > maxUses {
		return nonce.ErrExhausted
	}
	return nil
}

// Release decrements the counter after a settlement that charged it rolled
// back. Only called after a successful Consume, so the key exists.
func (s *Store) Release(ctx context.Context, signer common.Address, n uint64) error {
	key := nonceKey(signer, n)
	if err := s.rdb.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis decr %s: %w", key, err)
	}
	return nil
}

// Remaining reports how many uses are left, for diagnostics.
func (s *Store) Remaining(ctx context.Context, signer common.Address, n, maxUses uint64) (uint64, error) {
	used, err := s.rdb.Get(ctx, nonceKey(signer, n)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if used >= maxUses {
		return 0, nil
	}
	return maxUses - used, nil
}

func nonceKey(signer common.Address, n uint64) string {
	return fmt.Sprintf("nonce:%s:%d", strings.ToLower(signer.Hex()), n)
}
