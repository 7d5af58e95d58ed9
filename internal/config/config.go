package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"trip-route-engine/internal/domain"

	"gopkg.in/yaml.v3"
)

// Get returns the value of the environment variable key, or fallback when it
// is unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Server holds process-level settings read from the environment.
type Server struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	ORSAPIKey        string
	ORSBaseURL       string
	ORSProfile       string
	OptimizationFile string
	StartLocation    string
}

// LoadServer reads Server settings. Empty DatabaseURL, RedisURL or ORSAPIKey
// disable the matching component.
func LoadServer() Server {
	return Server{
		Port:             Get("PORT", "8080"),
		DatabaseURL:      Get("DATABASE_URL", ""),
		RedisURL:         Get("REDIS_URL", ""),
		ORSAPIKey:        Get("ORS_API_KEY", ""),
		ORSBaseURL:       Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSProfile:       Get("ORS_PROFILE", "driving-car"),
		OptimizationFile: Get("OPTIMIZATION_CONFIG", ""),
		StartLocation:    Get("DEFAULT_START", ""),
	}
}

// LoadOptimization builds the optimizer configuration: defaults, then the
// YAML file at path when path is non-empty, then environment overrides.
// The result is validated.
func LoadOptimization(path string) (domain.OptimizationConfig, error) {
	cfg := domain.DefaultOptimizationConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return domain.OptimizationConfig{}, fmt.Errorf("load optimization config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return domain.OptimizationConfig{}, fmt.Errorf("load optimization config: parse %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return domain.OptimizationConfig{}, fmt.Errorf("load optimization config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.OptimizationConfig{}, fmt.Errorf("load optimization config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *domain.OptimizationConfig) error {
	floats := map[string]*float64{
		"MEAL_WINDOW_HOURS":        &cfg.MealWindowHours,
		"PROVIDER_TIMEOUT_SECONDS": &cfg.ProviderTimeoutSeconds,
		"FALLBACK_PENALTY_METERS":  &cfg.FallbackPenaltyMeters,
		"FALLBACK_PENALTY_SECONDS": &cfg.FallbackPenaltySeconds,
		"TIE_EPSILON_METERS":       &cfg.TieEpsilonMeters,
	}
	ints := map[string]*int{
		"ROUTE_CACHE_TTL_DAYS":      &cfg.RouteCacheTTLDays,
		"COORDINATE_CACHE_TTL_DAYS": &cfg.CoordinateCacheTTLDays,
		"ROUTE_CACHE_CAPACITY":      &cfg.RouteCacheCapacity,
		"COORDINATE_CACHE_CAPACITY": &cfg.CoordinateCacheCapacity,
		"PROVIDER_RETRIES":          &cfg.ProviderRetries,
		"RETRY_BACKOFF_MILLIS":      &cfg.RetryBackoffMillis,
		"LOOKUP_CONCURRENCY":        &cfg.LookupConcurrency,
	}

	var errs []error
	for key, dst := range floats {
		v := Get(key, "")
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = f
	}
	for key, dst := range ints {
		v := Get(key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = n
	}

	if v := Get("SEGMENT_ASSIGNMENT", ""); v != "" {
		cfg.SegmentAssignment = domain.SegmentAssignment(strings.ToLower(v))
	}

	return errors.Join(errs...)
}
