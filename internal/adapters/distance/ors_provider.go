package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/obs"

	"golang.org/x/time/rate"
)

// ORSProvider implements DistanceMatrixProvider and Geocoder using
// OpenRouteService.
//
// It coordinates:
//   - Client-side rate limiting (free ORS keys allow ~40 matrix calls/min)
//   - External API calls with retry/backoff
//
// Caching lives in front of the provider (route lookup and coordinate cache).
// The provider is safe for concurrent use.
type ORSProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	limiter *rate.Limiter
}

type ORSOption func(*ORSProvider)

// WithBaseURL points the provider at another ORS deployment (or a test server).
func WithBaseURL(u string) ORSOption {
	return func(o *ORSProvider) { o.baseURL = u }
}

// WithProfile selects the ORS routing profile, e.g. "foot-walking".
func WithProfile(p string) ORSOption {
	return func(o *ORSProvider) { o.profile = p }
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) ORSOption {
	return func(o *ORSProvider) { o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewORSProvider(apiKey string, opts ...ORSOption) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	provider := &ORSProvider{
		session: &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
		limiter: rate.NewLimiter(rate.Limit(40.0/60.0), 5),
	}
	for _, opt := range opts {
		opt(provider)
	}

	return provider, nil
}

// Delegate to the batched path to reuse matrix logic.
func (o *ORSProvider) GetDistance(
	ctx context.Context,
	from domain.Coordinates,
	to domain.Coordinates,
) (domain.DistanceResult, error) {
	results, err := o.GetDistances(ctx, from, []domain.Coordinates{to})
	if err != nil {
		return domain.DistanceResult{}, fmt.Errorf("get ORS distance %s -> %s: %w", from.Key(), to.Key(), err)
	}

	return results[0], nil
}

// Compute distances from a single origin to many destinations (index-aligned).
func (o *ORSProvider) GetDistances(
	ctx context.Context,
	from domain.Coordinates,
	to []domain.Coordinates,
) (_ []domain.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if !from.Valid() {
		return nil, fmt.Errorf("origin has invalid coordinates %+v", from)
	}

	if len(to) == 0 {
		return []domain.DistanceResult{}, nil
	}

	for i, c := range to {
		if !c.Valid() {
			return nil, fmt.Errorf("destination #%d has invalid coordinates %+v", i, c)
		}
	}

	// Fetch a single origin->many matrix row.
	row, err := o.fetchMatrixRow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	return row, nil
}
