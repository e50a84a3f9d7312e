package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/flowdeck/flowdeck/pkg/authz"
)

const (
	defaultListTTL = 5 * time.Minute
	defaultL1Size  = 4096
)

// CachedStore wraps a Store with an in-process LRU in front of Redis for the
// hot per-user membership list. Both layers expire entries after the same
// TTL, so a stale list can never outlive the TTL even if an invalidation is
// lost. Mutations invalidate both layers for the affected user before and
// after the write: the second pass evicts any entry a concurrent read
// repopulated from pre-write state.
type CachedStore struct {
	store Store
	redis *redis.Client
	l1    *expirable.LRU[string, []*Membership]
	ttl   time.Duration
}

// NewCachedStore creates a CachedStore. redisClient may be nil, leaving only
// the L1 layer active.
func NewCachedStore(store Store, redisClient *redis.Client) (*CachedStore, error) {
	return &CachedStore{
		store: store,
		redis: redisClient,
		l1:    expirable.NewLRU[string, []*Membership](defaultL1Size, nil, defaultListTTL),
		ttl:   defaultListTTL,
	}, nil
}

func listKey(userID string) string {
	return fmt.Sprintf("memberships:user:%s", userID)
}

// ListActiveForUser returns the cached membership list, falling through
// L1 -> Redis -> Postgres. Cache population failures are ignored; the
// database result is authoritative.
func (c *CachedStore) ListActiveForUser(ctx context.Context, userID string) ([]*Membership, error) {
	if cached, ok := c.l1.Get(userID); ok {
		return cached, nil
	}

	// Redis being down or holding garbage degrades to the database; it never
	// fails the request.
	if c.redis != nil {
		data, err := c.redis.Get(ctx, listKey(userID)).Result()
		if err == nil {
			var memberships []*Membership
			if jerr := json.Unmarshal([]byte(data), &memberships); jerr == nil {
				c.l1.Add(userID, memberships)
				return memberships, nil
			}
		}
	}

	memberships, err := c.store.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.l1.Add(userID, memberships)
	if c.redis != nil {
		if data, jerr := json.Marshal(memberships); jerr == nil {
			c.redis.Set(ctx, listKey(userID), data, c.ttl)
		}
	}
	return memberships, nil
}

// ListForGroup is a pass-through; group rosters are not on the request path.
func (c *CachedStore) ListForGroup(ctx context.Context, groupID string) ([]*Membership, error) {
	return c.store.ListForGroup(ctx, groupID)
}

// Upsert writes through and invalidates the user's cached list.
func (c *CachedStore) Upsert(ctx context.Context, m *Membership) error {
	c.invalidate(ctx, m.UserID)
	err := c.store.Upsert(ctx, m)
	if err == nil {
		c.invalidate(ctx, m.UserID)
	}
	return err
}

// UpdateRole writes through and invalidates the user's cached list.
func (c *CachedStore) UpdateRole(ctx context.Context, userID, groupID string, role authz.Role) error {
	c.invalidate(ctx, userID)
	err := c.store.UpdateRole(ctx, userID, groupID, role)
	if err == nil {
		c.invalidate(ctx, userID)
	}
	return err
}

// Remove writes through and invalidates the user's cached list.
func (c *CachedStore) Remove(ctx context.Context, userID, groupID string) error {
	c.invalidate(ctx, userID)
	err := c.store.Remove(ctx, userID, groupID)
	if err == nil {
		c.invalidate(ctx, userID)
	}
	return err
}

// Invalidate drops both cache layers for userID. Exposed for admin paths that
// mutate memberships outside this store.
func (c *CachedStore) Invalidate(ctx context.Context, userID string) {
	c.invalidate(ctx, userID)
}

func (c *CachedStore) invalidate(ctx context.Context, userID string) {
	c.l1.Remove(userID)
	if c.redis != nil {
		c.redis.Del(ctx, listKey(userID))
	}
}
