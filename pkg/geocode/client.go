// Package geocode resolves free-text addresses to coordinates via the Google
// Geocoding API, with an optional result cache.
package geocode

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client geocodes addresses.
type Client interface {
	// Geocode returns nil without error when the address cannot be resolved
	// or no API key is configured.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	Zip              string  `json:"zip"`
	Quality          string  `json:"quality"`
	FormattedAddress string  `json:"formatted_address"`
}

// Cache stores geocode results keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result) error
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey sets the Google Geocoding API key.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithBaseURL overrides the Maps API base URL.
func WithBaseURL(url string) Option {
	return func(g *geocoder) {
		if url != "" {
			g.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	googleKey  string
	limiter    *rate.Limiter
	cache      Cache
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode checks the cache, then Google. Only matches are cached.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	if g.googleKey == "" || address == "" {
		return nil, nil
	}

	key := CacheKey(address)
	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			zap.L().Debug("geocode: cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	result, err := g.geocodeGoogle(ctx, address)
	if err != nil || result == nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, result); err != nil {
			zap.L().Debug("geocode: cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
