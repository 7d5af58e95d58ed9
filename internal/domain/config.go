package domain

import (
	"fmt"
	"time"
)

// SegmentAssignment selects how free stops are assigned to anchor-bounded segments.
type SegmentAssignment string

const (
	// AssignInsertion puts each free stop into the segment where inserting it
	// adds the least distance.
	AssignInsertion SegmentAssignment = "insertion"
	// AssignPosition keeps each free stop between the anchors it was already
	// placed between in the original order.
	AssignPosition SegmentAssignment = "position"
)

// OptimizationConfig tunes the optimizer and its caches.
//
// The cache TTL and capacity fields are read once, when the caches are
// built; changing them on a per-call config has no effect on a running
// cache. Route store freshness follows the route cache's own TTL.
type OptimizationConfig struct {
	MealWindowHours         float64           `yaml:"meal_window_hours" json:"meal_window_hours"`
	RouteCacheTTLDays       int               `yaml:"route_cache_ttl_days" json:"route_cache_ttl_days"`
	CoordinateCacheTTLDays  int               `yaml:"coordinate_cache_ttl_days" json:"coordinate_cache_ttl_days"`
	RouteCacheCapacity      int               `yaml:"route_cache_capacity" json:"route_cache_capacity"`
	CoordinateCacheCapacity int               `yaml:"coordinate_cache_capacity" json:"coordinate_cache_capacity"`
	ProviderTimeoutSeconds  float64           `yaml:"provider_timeout_seconds" json:"provider_timeout_seconds"`
	ProviderRetries         int               `yaml:"provider_retries" json:"provider_retries"`
	RetryBackoffMillis      int               `yaml:"retry_backoff_millis" json:"retry_backoff_millis"`
	FallbackPenaltyMeters   float64           `yaml:"fallback_penalty_meters" json:"fallback_penalty_meters"`
	FallbackPenaltySeconds  float64           `yaml:"fallback_penalty_seconds" json:"fallback_penalty_seconds"`
	TieEpsilonMeters        float64           `yaml:"tie_epsilon_meters" json:"tie_epsilon_meters"`
	LookupConcurrency       int               `yaml:"lookup_concurrency" json:"lookup_concurrency"`
	SegmentAssignment       SegmentAssignment `yaml:"segment_assignment" json:"segment_assignment"`
}

func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		MealWindowHours:         4.5,
		RouteCacheTTLDays:       7,
		CoordinateCacheTTLDays:  30,
		RouteCacheCapacity:      100,
		CoordinateCacheCapacity: 200,
		ProviderTimeoutSeconds:  12,
		ProviderRetries:         1,
		RetryBackoffMillis:      250,
		FallbackPenaltyMeters:   1_000_000,
		FallbackPenaltySeconds:  36_000,
		TieEpsilonMeters:        1,
		LookupConcurrency:       4,
		SegmentAssignment:       AssignInsertion,
	}
}

// Validate rejects configurations the optimizer cannot run with.
func (c OptimizationConfig) Validate() error {
	switch {
	case c.MealWindowHours <= 0:
		return fmt.Errorf("%w: meal_window_hours must be > 0, got %v", ErrInvalidInput, c.MealWindowHours)
	case c.RouteCacheTTLDays <= 0 || c.CoordinateCacheTTLDays <= 0:
		return fmt.Errorf("%w: cache ttl days must be > 0", ErrInvalidInput)
	case c.RouteCacheCapacity <= 0 || c.CoordinateCacheCapacity <= 0:
		return fmt.Errorf("%w: cache capacities must be > 0", ErrInvalidInput)
	case c.ProviderTimeoutSeconds <= 0:
		return fmt.Errorf("%w: provider_timeout_seconds must be > 0, got %v", ErrInvalidInput, c.ProviderTimeoutSeconds)
	case c.ProviderRetries < 0 || c.RetryBackoffMillis < 0:
		return fmt.Errorf("%w: retries and backoff must be >= 0", ErrInvalidInput)
	case c.FallbackPenaltyMeters <= 0 || c.FallbackPenaltySeconds <= 0:
		return fmt.Errorf("%w: fallback penalties must be > 0", ErrInvalidInput)
	case c.TieEpsilonMeters < 0:
		return fmt.Errorf("%w: tie_epsilon_meters must be >= 0", ErrInvalidInput)
	case c.LookupConcurrency <= 0:
		return fmt.Errorf("%w: lookup_concurrency must be > 0", ErrInvalidInput)
	}

	switch c.SegmentAssignment {
	case AssignInsertion, AssignPosition:
	default:
		return fmt.Errorf("%w: unknown segment_assignment %q", ErrInvalidInput, c.SegmentAssignment)
	}
	return nil
}

func (c OptimizationConfig) MealWindow() time.Duration {
	return time.Duration(c.MealWindowHours * float64(time.Hour))
}

func (c OptimizationConfig) RouteCacheTTL() time.Duration {
	return time.Duration(c.RouteCacheTTLDays) * 24 * time.Hour
}

func (c OptimizationConfig) CoordinateCacheTTL() time.Duration {
	return time.Duration(c.CoordinateCacheTTLDays) * 24 * time.Hour
}

func (c OptimizationConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds * float64(time.Second))
}

func (c OptimizationConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

// FallbackPenalty is the large-but-finite distance used when a lookup fails.
func (c OptimizationConfig) FallbackPenalty() DistanceResult {
	return DistanceResult{
		DistanceMeters:  c.FallbackPenaltyMeters,
		DurationSeconds: c.FallbackPenaltySeconds,
	}
}
