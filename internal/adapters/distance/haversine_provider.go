package distance

import (
	"context"
	"trip-route-engine/internal/domain"

	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371008.8

// HaversineProvider estimates road distance from great-circle distance.
// It never calls out and never fails, which makes it the offline provider
// when no routing key is configured.
type HaversineProvider struct {
	// DetourFactor scales straight-line distance toward typical road distance.
	DetourFactor float64
	// SpeedMetersPerSecond converts distance to duration.
	SpeedMetersPerSecond float64
}

// NewHaversineProvider returns a provider tuned for urban driving
// (1.3 detour, ~30 km/h average).
func NewHaversineProvider() *HaversineProvider {
	return &HaversineProvider{DetourFactor: 1.3, SpeedMetersPerSecond: 8.33}
}

// GreatCircleMeters returns the great-circle distance between two coordinates.
func GreatCircleMeters(from, to domain.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(from.Lat, from.Lon)
	p2 := s2.LatLngFromDegrees(to.Lat, to.Lon)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}

func (h *HaversineProvider) GetDistance(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.DistanceResult{}, err
	}

	meters := GreatCircleMeters(from, to) * h.DetourFactor
	seconds := 0.0
	if h.SpeedMetersPerSecond > 0 {
		seconds = meters / h.SpeedMetersPerSecond
	}

	return domain.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}

func (h *HaversineProvider) GetDistances(ctx context.Context, from domain.Coordinates, to []domain.Coordinates) ([]domain.DistanceResult, error) {
	out := make([]domain.DistanceResult, len(to))
	for i, c := range to {
		r, err := h.GetDistance(ctx, from, c)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
