// Package redis is a distributed-lock adapter fronting the ERP outbox's
// enqueue path: a best-effort SetNX guard so two API instances racing to
// enqueue the same (tenant, purchase_order_id) fail fast before either
// one opens a database transaction, rather than both discovering the
// conflict only at the DB round trip. Grounded on the teacher's
// query.GetAccountRedisOrDatabase SetNX-lock pattern
// (components/ledger/internal/services/query/get-account-redis-or-database.go)
// and its redis.RedisRepository port shape
// (components/ledger/internal/adapters/interface/redis/redis_repository.go).
//
// The database's exactly-one-pending invariant (C5) remains the source of
// truth; a Redis outage degrades this to "no fast-path guard", never to
// "duplicate enqueue accepted" — every caller must still proceed to the
// transactional check when the lock is unavailable.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// Repository is the lock port command.UseCase depends on. Nil-safe
// callers must treat every method as best-effort: a Redis-layer error is
// never itself a reason to reject a command.
type Repository interface {
	// Lock attempts to acquire key for ttl, returning true if this
	// caller won the race.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock releases key, idempotently.
	Unlock(ctx context.Context, key string) error
}

// TokenIndex is the cross-tenant RfqSupplierInvite token lookup the
// public supplier portal needs before it can construct any tenant-scoped
// repository (C3's construction-time tenant binding has no notion of
// "unknown tenant yet"). Keyed by the token itself rather than by
// tenant, since that is the only thing the portal's request carries.
type TokenIndex interface {
	// RememberToken records that token belongs to tenantID until ttl
	// elapses. Called once when an invite is issued or reissued, with
	// ttl set to the invite's own expiry window so the index never
	// outlives the invite it indexes.
	RememberToken(ctx context.Context, token string, tenantID uuid.UUID, ttl time.Duration) error
	// TenantForToken returns the tenant a token was last remembered
	// against, and false if it is unknown or has expired.
	TenantForToken(ctx context.Context, token string) (uuid.UUID, bool, error)
}

// Client wraps a go-redis connection.
type Client struct {
	rdb    *goredis.Client
	Logger mlog.Logger
}

var (
	_ Repository  = (*Client)(nil)
	_ TokenIndex  = (*Client)(nil)
)

const tokenKeyPrefix = "rfq-invite-token:"

// New dials addr (host:port) eagerly, mirroring the teacher's
// mpostgres.Connection.Connect/ping-at-construction discipline so a
// misconfigured cache is discovered at startup, not on the first request.
func New(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return mlog.NoneLogger{}
}

// Lock is a thin SetNX wrapper: "locked" is a sentinel value, the key
// itself carries all the identity the caller needs.
func (c *Client) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		c.logger().Warnf("redis lock %s: %v", key, err)

		return false, err
	}

	return ok, nil
}

// Unlock deletes key. A missing key is not an error — the lock may have
// already expired via its TTL.
func (c *Client) Unlock(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger().Warnf("redis unlock %s: %v", key, err)

		return err
	}

	return nil
}

// RememberToken stores token -> tenantID with a TTL matching the
// invite's own expiry, so a stale index entry can never outlive the
// invite it points at.
func (c *Client) RememberToken(ctx context.Context, token string, tenantID uuid.UUID, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, tokenKeyPrefix+token, tenantID.String(), ttl).Err(); err != nil {
		c.logger().Warnf("redis remember token: %v", err)

		return err
	}

	return nil
}

// TenantForToken looks up the tenant a token was last remembered
// against.
func (c *Client) TenantForToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	val, err := c.rdb.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, false, nil
	}

	if err != nil {
		c.logger().Warnf("redis tenant for token: %v", err)

		return uuid.Nil, false, err
	}

	tenantID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, err
	}

	return tenantID, true, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
