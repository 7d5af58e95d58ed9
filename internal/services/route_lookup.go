package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/metrics"
	"trip-route-engine/internal/ports"
)

// RouteLookup answers distance queries for the optimizer, consulting in
// order: the in-memory RouteCache, the optional shared RouteStore and the
// DistanceProvider. Provider failures never reach the caller; they turn
// into a fallback penalty and are reported as degraded pairs.
type RouteLookup struct {
	cache    ports.RouteCache
	store    ports.RouteStore
	provider ports.DistanceProvider
	now      func() time.Time
}

// NewRouteLookup wires the lookup chain. store may be nil.
func NewRouteLookup(cache ports.RouteCache, store ports.RouteStore, provider ports.DistanceProvider) *RouteLookup {
	return &RouteLookup{cache: cache, store: store, provider: provider, now: time.Now}
}

// lookupSession scopes one optimization: it memoizes every answer (including
// fallbacks) so a pair is resolved at most once per call and the heuristic
// sees consistent distances, and it collects degraded pairs.
type lookupSession struct {
	l        *RouteLookup
	cfg      domain.OptimizationConfig
	mu       sync.Mutex
	memo     map[string]domain.DistanceResult
	degraded []domain.DegradedPair
}

func (l *RouteLookup) session(cfg domain.OptimizationConfig) *lookupSession {
	return &lookupSession{l: l, cfg: cfg, memo: make(map[string]domain.DistanceResult)}
}

// DegradedPairs returns the pairs answered with the fallback penalty, in the
// order they were first seen.
func (s *lookupSession) DegradedPairs() []domain.DegradedPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DegradedPair(nil), s.degraded...)
}

// distance returns the travel distance from -> to. The only error it returns
// is the parent context's, once the caller cancelled.
func (s *lookupSession) distance(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error) {
	if from.SamePoint(to) {
		return domain.DistanceResult{}, nil
	}

	key := domain.RouteKey(from, to)

	s.mu.Lock()
	r, ok := s.memo[key]
	s.mu.Unlock()
	if ok {
		return r, nil
	}

	// Cancellation stops new lookups; cached answers above are still served.
	if err := ctx.Err(); err != nil {
		return domain.DistanceResult{}, err
	}

	r, err := s.resolve(ctx, key, from, to)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.DistanceResult{}, ctxErr
		}

		reason := domain.DegradeUnavailable
		if errors.Is(err, domain.ErrProviderTimeout) {
			reason = domain.DegradeTimeout
		}
		log.Printf("route lookup degraded: pair=%s reason=%s err=%v", key, reason, err)

		r = s.cfg.FallbackPenalty()
		s.mu.Lock()
		if _, seen := s.memo[key]; !seen {
			s.degraded = append(s.degraded, domain.DegradedPair{From: from, To: to, Reason: reason})
		}
		s.memo[key] = r
		s.mu.Unlock()
		return r, nil
	}

	s.remember(key, r)
	return r, nil
}

// prefetch warms the session with one batched provider call for the pairs
// from -> tos that are not already memoized, cached or stored. It only runs
// when the provider supports matrix lookups. Pairs the batch cannot answer
// are left for distance to resolve one by one.
func (s *lookupSession) prefetch(ctx context.Context, from domain.Coordinates, tos []domain.Coordinates) {
	mp, ok := s.l.provider.(ports.DistanceMatrixProvider)
	if !ok || ctx.Err() != nil {
		return
	}

	var missing []domain.Coordinates
	seen := make(map[string]struct{}, len(tos))
	for _, to := range tos {
		key := domain.RouteKey(from, to)
		if _, dup := seen[key]; dup || from.SamePoint(to) {
			continue
		}
		seen[key] = struct{}{}

		s.mu.Lock()
		_, memoized := s.memo[key]
		s.mu.Unlock()
		if memoized {
			continue
		}
		if r, ok := s.cached(ctx, key, from, to); ok {
			s.remember(key, r)
			continue
		}
		missing = append(missing, to)
	}

	if len(missing) < 2 {
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout())
	defer cancel()

	rows, err := mp.GetDistances(callCtx, from, missing)
	if err != nil || len(rows) != len(missing) {
		metrics.ProviderCalls.WithLabelValues("distance_matrix", "error").Inc()
		log.Printf("route prefetch failed: from=%s destinations=%d err=%v", from.Key(), len(missing), err)
		return
	}
	metrics.ProviderCalls.WithLabelValues("distance_matrix", "ok").Inc()

	now := s.l.now()
	for i, to := range missing {
		if !validResult(rows[i]) {
			continue
		}
		key := domain.RouteKey(from, to)
		s.remember(key, rows[i])
		if s.l.cache != nil {
			s.l.cache.Put(from, to, rows[i])
		}
		if s.l.store != nil {
			if err := s.l.store.PutRoute(context.WithoutCancel(ctx), key, rows[i], now); err != nil {
				log.Printf("route store write failed: pair=%s err=%v", key, err)
			}
		}
	}
}

func (s *lookupSession) remember(key string, r domain.DistanceResult) {
	s.mu.Lock()
	s.memo[key] = r
	s.mu.Unlock()
}

// routeTTL is the lifetime the in-memory cache was built with. Without a
// cache the per-call config is the only source.
func (s *lookupSession) routeTTL() time.Duration {
	if s.l.cache != nil {
		return s.l.cache.TTL()
	}
	return s.cfg.RouteCacheTTL()
}

// cached consults the in-memory cache and then the store, promoting fresh
// store entries into the cache.
func (s *lookupSession) cached(ctx context.Context, key string, from, to domain.Coordinates) (domain.DistanceResult, bool) {
	l := s.l

	if l.cache != nil {
		if r, ok := l.cache.Get(from, to); ok {
			return r, true
		}
	}

	if l.store != nil {
		r, computedAt, ok, err := l.store.GetRoute(ctx, key)
		if err != nil {
			log.Printf("route store read failed: pair=%s err=%v", key, err)
		} else if ok && l.now().Sub(computedAt) < s.routeTTL() {
			if l.cache != nil {
				l.cache.Put(from, to, r)
			}
			return r, true
		}
	}

	return domain.DistanceResult{}, false
}

func (s *lookupSession) resolve(ctx context.Context, key string, from, to domain.Coordinates) (domain.DistanceResult, error) {
	l := s.l

	if r, ok := s.cached(ctx, key, from, to); ok {
		return r, nil
	}

	if l.provider == nil {
		return domain.DistanceResult{}, fmt.Errorf("%w: no distance provider configured", domain.ErrProviderUnavailable)
	}

	r, err := s.fetch(ctx, from, to)
	if err != nil {
		return domain.DistanceResult{}, err
	}

	// Successful answers are cached even when the caller has since cancelled.
	if l.cache != nil {
		l.cache.Put(from, to, r)
	}
	if l.store != nil {
		if err := l.store.PutRoute(context.WithoutCancel(ctx), key, r, l.now()); err != nil {
			log.Printf("route store write failed: pair=%s err=%v", key, err)
		}
	}

	return r, nil
}

// fetch calls the provider with a per-attempt timeout and a bounded retry.
// In-flight attempts are detached from the caller's cancellation so they
// can finish; the timeout still bounds them.
func (s *lookupSession) fetch(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error) {
	attempts := s.cfg.ProviderRetries + 1
	backoff := s.cfg.RetryBackoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout())
		r, err := s.l.provider.GetDistance(callCtx, from, to)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err == nil && validResult(r):
			metrics.ProviderCalls.WithLabelValues("distance", "ok").Inc()
			return r, nil
		case err == nil:
			lastErr = fmt.Errorf("%w: attempt %d: invalid result %+v", domain.ErrProviderUnavailable, attempt, r)
			metrics.ProviderCalls.WithLabelValues("distance", "invalid").Inc()
		case timedOut || errors.Is(err, context.DeadlineExceeded):
			lastErr = fmt.Errorf("%w: attempt %d after %s: %v", domain.ErrProviderTimeout, attempt, s.cfg.ProviderTimeout(), err)
			metrics.ProviderCalls.WithLabelValues("distance", "timeout").Inc()
		default:
			lastErr = fmt.Errorf("%w: attempt %d: %v", domain.ErrProviderUnavailable, attempt, err)
			metrics.ProviderCalls.WithLabelValues("distance", "error").Inc()
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.DistanceResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	return domain.DistanceResult{}, lastErr
}

func validResult(r domain.DistanceResult) bool {
	for _, v := range []float64{r.DistanceMeters, r.DurationSeconds} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}
