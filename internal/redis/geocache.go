package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/pkg/geocode"
)

const geocodeKeyPrefix = "rumoo:geocode:"

// GeocodeCache stores geocode results as JSON with a TTL.
type GeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGeocodeCache creates a GeocodeCache. A zero ttl keeps entries forever.
func NewGeocodeCache(c *Client, ttl time.Duration) *GeocodeCache {
	return &GeocodeCache{client: c.Client, ttl: ttl}
}

// Get returns the cached result for key, if any.
func (c *GeocodeCache) Get(ctx context.Context, key string) (*geocode.Result, bool, error) {
	raw, err := c.client.Get(ctx, geocodeKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: get geocode")
	}

	var r geocode.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, eris.Wrap(err, "redis: decode geocode")
	}
	return &r, true, nil
}

// Set stores r under key.
func (c *GeocodeCache) Set(ctx context.Context, key string, r *geocode.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "redis: encode geocode")
	}
	return eris.Wrap(c.client.Set(ctx, geocodeKeyPrefix+key, raw, c.ttl).Err(), "redis: set geocode")
}
