// Package enrich adapts third-party lookups to the ingestion pipeline. Every
// adapter absorbs its failures into nil or default values and logs them; none
// returns an error to the caller.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/resilience"
	"github.com/sells-group/rumoo/pkg/geocode"
)

// Geocoder resolves an address to a coordinate.
type Geocoder struct {
	client geocode.Client
	guard  *resilience.Guard
}

// NewGeocoder creates a Geocoder. A nil client disables geocoding.
func NewGeocoder(client geocode.Client, guard *resilience.Guard) *Geocoder {
	return &Geocoder{client: client, guard: guard}
}

// Geocode returns nil when the address cannot be resolved for any reason.
func (g *Geocoder) Geocode(ctx context.Context, address string) *model.GeoResult {
	if g == nil || g.client == nil {
		return nil
	}
	r, err := resilience.Call(ctx, g.guard, func(ctx context.Context) (*geocode.Result, error) {
		return g.client.Geocode(ctx, address)
	})
	if err != nil {
		zap.L().Warn("enrich: geocode failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	if r == nil {
		return nil
	}
	return &model.GeoResult{Lat: r.Lat, Lng: r.Lng, City: r.City, State: r.State, Zip: r.Zip}
}
