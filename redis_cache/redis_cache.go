// Package redis_cache keeps a Redis copy of bank rows in front of the
// bank store. Banks are seeded out of band and never change, so entries
// are only dropped by their TTL.
package redis_cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	models "fin-ledger/models_package"
)

const keyPrefix = "fintrans:bank:"

// DefaultTTL bounds how long a cached bank outlives a manual edit of the
// banks table.
const DefaultTTL = 10 * time.Minute

var _ models.BankStore = (*BankCache)(nil)

// BankCache is a read-through cache for FindBankByName. Redis failures are
// logged and the lookup falls back to the wrapped store; misses are not
// cached.
type BankCache struct {
	rdb  redis.Cmdable
	next models.BankStore
	ttl  time.Duration
	log  *slog.Logger
}

func NewBankCache(rdb redis.Cmdable, next models.BankStore, ttl time.Duration, log *slog.Logger) *BankCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &BankCache{rdb: rdb, next: next, ttl: ttl, log: log}
}

func (c *BankCache) FindBankByName(ctx context.Context, name string) (*models.Bank, error) {
	cached, err := c.rdb.Get(ctx, keyPrefix+name).Bytes()
	switch {
	case err == nil:
		var bank models.Bank
		if err := json.Unmarshal(cached, &bank); err == nil {
			return &bank, nil
		}
		c.log.WarnContext(ctx, "dropping undecodable cache entry", "bank", name)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "bank cache read failed", "bank", name, "error", err)
	}

	bank, err := c.next.FindBankByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, bank)
	return bank, nil
}

// Warm loads the named banks into the cache. Unknown names are skipped.
func (c *BankCache) Warm(ctx context.Context, names []string) error {
	for _, name := range names {
		bank, err := c.next.FindBankByName(ctx, name)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		c.store(ctx, bank)
	}
	return nil
}

func (c *BankCache) store(ctx context.Context, bank *models.Bank) {
	b, err := json.Marshal(bank)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+bank.Name, b, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "bank cache write failed", "bank", bank.Name, "error", err)
	}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
