package domain

import "time"

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Duration returns the travel time as a time.Duration.
func (r DistanceResult) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}
