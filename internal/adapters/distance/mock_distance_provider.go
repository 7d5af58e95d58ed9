package distance

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"trip-route-engine/internal/domain"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockDistanceProvider serves fixed pairs. Pairs not listed fall back to
// planar Euclidean distance on the raw coordinates (1 degree = 1 km at
// 10 m/s) when Planar is set, and fail otherwise.
type MockDistanceProvider struct {
	mu     sync.Mutex
	m      map[string]domain.DistanceResult
	fail   map[string]error
	Planar bool
	calls  atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]domain.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[domain.RouteKey(p.From, p.To)] = domain.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m, fail: map[string]error{}}
}

// NewPlanarMockProvider returns a provider that answers every pair with
// planar distance, handy for geometric test scenarios.
func NewPlanarMockProvider() *MockDistanceProvider {
	p := NewMockDistanceProvider(nil)
	p.Planar = true
	return p
}

// FailPair makes lookups for from->to return err.
func (p *MockDistanceProvider) FailPair(from, to domain.Coordinates, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[domain.RouteKey(from, to)] = err
}

// Calls returns how many lookups reached the provider.
func (p *MockDistanceProvider) Calls() int64 { return p.calls.Load() }

func (p *MockDistanceProvider) GetDistance(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error) {
	p.calls.Add(1)

	key := domain.RouteKey(from, to)

	p.mu.Lock()
	failErr, failing := p.fail[key]
	r, ok := p.m[key]
	p.mu.Unlock()

	if failing {
		return domain.DistanceResult{}, failErr
	}
	if ok {
		return r, nil
	}
	if p.Planar {
		d := math.Hypot(to.Lat-from.Lat, to.Lon-from.Lon) * 1000
		return domain.DistanceResult{DistanceMeters: d, DurationSeconds: d / 10}, nil
	}

	return domain.DistanceResult{}, fmt.Errorf("missing pair %s -> %s", from.Key(), to.Key())
}
