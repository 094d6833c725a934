package enrich

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/rumoo/internal/geo"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/resilience"
	"github.com/sells-group/rumoo/internal/scoring"
	"github.com/sells-group/rumoo/pkg/google"
)

// Locator finds walking minutes to the nearest amenity of a category.
type Locator interface {
	NearestWalkingMinutes(ctx context.Context, lat, lng float64, c model.AmenityCategory) (int, bool)
}

// AmenityLocator answers Locator via Places nearby search plus a walking
// Distance Matrix lookup.
type AmenityLocator struct {
	client  google.Client
	guard   *resilience.Guard
	limiter *rate.Limiter
}

// NewAmenityLocator creates an AmenityLocator. rps <= 0 disables limiting.
func NewAmenityLocator(client google.Client, guard *resilience.Guard, rps float64) *AmenityLocator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return &AmenityLocator{client: client, guard: guard, limiter: limiter}
}

// NearestWalkingMinutes reports false when no place or route was found.
func (a *AmenityLocator) NearestWalkingMinutes(ctx context.Context, lat, lng float64, c model.AmenityCategory) (int, bool) {
	log := zap.L().With(zap.String("category", string(c)))

	if err := a.limiter.Wait(ctx); err != nil {
		return 0, false
	}
	place, err := resilience.Call(ctx, a.guard, func(ctx context.Context) (*google.Place, error) {
		return a.client.NearestPlace(ctx, lat, lng, c.PlaceType())
	})
	if err != nil {
		log.Warn("enrich: nearby search failed", zap.Error(err))
		return 0, false
	}
	if place == nil || place.PlaceID == "" {
		return 0, false
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return 0, false
	}
	secs, err := resilience.Call(ctx, a.guard, func(ctx context.Context) (int, error) {
		return a.client.WalkingSeconds(ctx, lat, lng, place.PlaceID)
	})
	if err != nil {
		log.Warn("enrich: walking distance failed", zap.String("place_id", place.PlaceID), zap.Error(err))
		return 0, false
	}
	if secs == 0 {
		return 0, false
	}
	return int(math.Round(float64(secs) / 60)), true
}

// LocationAnalyzer builds the neighbourhood snapshot for a coordinate.
type LocationAnalyzer struct {
	locator Locator
}

// NewLocationAnalyzer creates a LocationAnalyzer. A nil locator yields the
// default amenity minutes.
func NewLocationAnalyzer(locator Locator) *LocationAnalyzer {
	return &LocationAnalyzer{locator: locator}
}

// Analyze looks up all six categories concurrently. Categories that fail keep
// their default minutes. The result is never nil.
func (la *LocationAnalyzer) Analyze(ctx context.Context, lat, lng float64) *model.LocationInsight {
	amenities := model.DefaultAmenities()

	if la != nil && la.locator != nil {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range model.AmenityCategories() {
			g.Go(func() error {
				minutes, ok := la.locator.NearestWalkingMinutes(gctx, lat, lng, c)
				if !ok {
					return nil
				}
				mu.Lock()
				amenities.Set(c, minutes)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	li := scoring.DeriveLocation(amenities)
	li.Geohash = geo.Hash(geo.Point{Lat: lat, Lng: lng})
	return &li
}
