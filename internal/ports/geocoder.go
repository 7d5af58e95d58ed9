package ports

import (
	"context"
	"trip-route-engine/internal/domain"
)

// Geocoder resolves free-text locations to coordinates.
// Implementations return an error wrapping domain.ErrGeocodeNotFound when
// the text matches nothing.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (domain.Coordinates, error)
}

// CoordinateResolver is the cache-fronted geocoding boundary the optimizer
// depends on.
type CoordinateResolver interface {
	Resolve(ctx context.Context, text string) (domain.Coordinates, error)
}
