package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	runKeyPrefix  = "rumoo:run:"
	defaultRunTTL = 5 * time.Minute
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lease taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunGuard serializes pipeline runs per property with SET NX leases.
type RunGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunGuard creates a RunGuard. A zero ttl uses five minutes.
func NewRunGuard(c *Client, ttl time.Duration) *RunGuard {
	if ttl <= 0 {
		ttl = defaultRunTTL
	}
	return &RunGuard{client: c.Client, ttl: ttl}
}

// TryLock takes the lease for key. ok is false when another run holds it.
func (g *RunGuard) TryLock(ctx context.Context, key string) (func(context.Context), bool, error) {
	token := uuid.NewString()
	k := runKeyPrefix + key

	ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: acquire run lock")
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, g.client, []string{k}, token).Err(); err != nil {
			zap.L().Warn("redis: release run lock", zap.String("key", k), zap.Error(err))
		}
	}
	return unlock, true, nil
}
