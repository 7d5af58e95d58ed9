package ports

import (
	"context"
	"trip-route-engine/internal/domain"
)

// Contract for retrieving travel distance and duration between coordinates.
// Implementations may be asymmetric: GetDistance(a, b) need not equal GetDistance(b, a).
type DistanceProvider interface {
	// Return travel distance and estimated duration between two coordinates.
	GetDistance(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error)
}

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return distances from one origin to many destinations, index-aligned.
	GetDistances(ctx context.Context, from domain.Coordinates, to []domain.Coordinates) ([]domain.DistanceResult, error)
}
