package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/metrics"
	"trip-route-engine/internal/platform/obs"
	"trip-route-engine/internal/ports"
)

// RouteOptimizer reorders one day's stops with a nearest-neighbor heuristic
// anchored on fixed-time stops.
//
// The optimizer is stateless per call: caches and providers are borrowed,
// never owned, and the input Day is never modified. It is safe to run
// several optimizations concurrently against the same caches.
type RouteOptimizer struct {
	lookup  *RouteLookup
	coords  ports.CoordinateResolver
	meals   MealPolicy
	checker ConstraintChecker
}

type OptimizerOption func(*RouteOptimizer)

// WithMealPolicy replaces the default rolling-window meal policy.
func WithMealPolicy(p MealPolicy) OptimizerOption {
	return func(o *RouteOptimizer) { o.meals = p }
}

// WithCoordinateResolver enables resolving address-only stops before optimizing.
func WithCoordinateResolver(r ports.CoordinateResolver) OptimizerOption {
	return func(o *RouteOptimizer) { o.coords = r }
}

func NewRouteOptimizer(lookup *RouteLookup, opts ...OptimizerOption) *RouteOptimizer {
	o := &RouteOptimizer{lookup: lookup}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outcome is delivered by OptimizeAsync.
type Outcome struct {
	Result *domain.OptimizationResult
	Err    error
}

// OptimizeAsync runs Optimize on its own goroutine. The returned channel
// receives exactly one Outcome. Cancel ctx to stop issuing new lookups.
func (o *RouteOptimizer) OptimizeAsync(
	ctx context.Context,
	day *domain.Day,
	start domain.Coordinates,
	cfg domain.OptimizationConfig,
) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		res, err := o.Optimize(ctx, day, start, cfg)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// Optimize proposes a visiting order for day starting at start.
//
// Only structurally invalid input (domain.ErrInvalidInput) and caller
// cancellation are returned as errors. Provider failures are absorbed into
// the result as degraded pairs; stops without coordinates keep their
// original position and are listed as unresolved.
func (o *RouteOptimizer) Optimize(
	ctx context.Context,
	day *domain.Day,
	start domain.Coordinates,
	cfg domain.OptimizationConfig,
) (_ *domain.OptimizationResult, err error) {
	ctx, runID := obs.WithRequestID(ctx, obs.RequestID(ctx))
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	if o.lookup == nil {
		return nil, errors.New("optimize day: route lookup must be non-nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optimize day: config: %w", err)
	}
	if err := day.Validate(); err != nil {
		return nil, fmt.Errorf("optimize day: %w", err)
	}
	if !start.Valid() {
		return nil, fmt.Errorf("optimize day: %w: start has invalid coordinates %+v", domain.ErrInvalidInput, start)
	}

	began := time.Now()

	ordered := day.Ordered()
	res := &domain.OptimizationResult{
		RunID:           runID,
		OriginalOrder:   make([]string, 0, len(ordered)),
		ProposedOrder:   []domain.Stop{},
		MealSuggestions: []domain.MealSuggestion{},
		Violations:      []domain.Violation{},
		DegradedPairs:   []domain.DegradedPair{},
		Unresolved:      []string{},
	}
	for _, s := range ordered {
		res.OriginalOrder = append(res.OriginalOrder, s.ID)
	}

	if len(ordered) == 0 {
		return res, nil
	}

	if err := o.resolveCoordinates(ctx, ordered, cfg.ProviderTimeout()); err != nil {
		return nil, fmt.Errorf("optimize day: %w", err)
	}

	items := make([]placed, len(ordered))
	for i, s := range ordered {
		items[i] = placed{stop: s, pos: i}
		if !s.Resolved() {
			res.Unresolved = append(res.Unresolved, s.ID)
		}
	}

	sess := o.lookup.session(cfg)
	dist := sess.distance

	anchors, free, unresolved := partition(items)
	bounds := boundaries(start, anchors)

	if cfg.SegmentAssignment == domain.AssignInsertion && len(free) > 1 {
		tos := make([]domain.Coordinates, 0, len(free))
		for _, f := range free {
			tos = append(tos, f.coord())
		}
		for _, b := range bounds {
			sess.prefetch(ctx, b, tos)
		}
	}

	segments, err := assignSegments(ctx, bounds, anchors, free, cfg.SegmentAssignment, dist, cfg.TieEpsilonMeters)
	if err != nil {
		return nil, fmt.Errorf("optimize day: assign segments: %w", err)
	}

	proposed := make([]placed, 0, len(items))
	for k, seg := range segments {
		run, err := nearestNeighborOrder(ctx, bounds[k], seg, dist, sess.prefetch, cfg.TieEpsilonMeters, cfg.LookupConcurrency)
		if err != nil {
			return nil, fmt.Errorf("optimize day: order segment %d: %w", k, err)
		}
		proposed = append(proposed, run...)
		if k < len(anchors) {
			proposed = append(proposed, anchors[k])
		}
	}
	proposed = reinsert(proposed, unresolved)

	for i, p := range proposed {
		s := p.stop.Clone()
		s.Order = i
		res.ProposedOrder = append(res.ProposedOrder, s)
	}

	before, beforeDur, _, err := sequenceTotals(ctx, start, ordered, dist)
	if err != nil {
		return nil, fmt.Errorf("optimize day: original totals: %w", err)
	}
	after, afterDur, visits, err := sequenceTotals(ctx, start, res.ProposedOrder, dist)
	if err != nil {
		return nil, fmt.Errorf("optimize day: proposed totals: %w", err)
	}
	res.TotalDistanceBefore, res.TotalDurationBefore = before, beforeDur
	res.TotalDistanceAfter, res.TotalDurationAfter = after, afterDur

	res.Violations = append(res.Violations, o.checker.Validate(day.StartTime, visits)...)

	meals := o.meals
	if meals == nil {
		meals = RollingWindowPolicy{Window: cfg.MealWindow()}
	}
	res.MealSuggestions = append(res.MealSuggestions, meals.Suggest(visits)...)

	res.DegradedPairs = append(res.DegradedPairs, sess.DegradedPairs()...)
	res.Degraded = len(res.DegradedPairs) > 0

	metrics.OptimizeDuration.WithLabelValues(strconv.FormatBool(res.Degraded)).Observe(time.Since(began).Seconds())
	log.Printf(
		"optimize day: run_id=%s stops=%d anchors=%d unresolved=%d before=%.0fm after=%.0fm degraded_pairs=%d",
		runID, len(ordered), len(anchors), len(res.Unresolved), before, after, len(res.DegradedPairs),
	)

	return res, nil
}

// resolveCoordinates fills in coordinates for address-only stops in place.
// Each lookup is bounded by timeout; stops that cannot be resolved in time
// stay unresolved.
func (o *RouteOptimizer) resolveCoordinates(ctx context.Context, stops []domain.Stop, timeout time.Duration) error {
	if o.coords == nil {
		return nil
	}

	for i, s := range stops {
		if s.Resolved() || s.Address == "" {
			continue
		}

		rctx, cancel := context.WithTimeout(ctx, timeout)
		c, err := o.coords.Resolve(rctx, s.Address)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Printf("resolve stop failed: stop_id=%s address=%q err=%v", s.ID, s.Address, err)
			continue
		}
		stops[i].Coordinates = &c
	}
	return nil
}

// reinsert puts unresolved stops back at their original positions.
func reinsert(seq []placed, unresolved []placed) []placed {
	if len(unresolved) == 0 {
		return seq
	}

	sorted := append([]placed(nil), unresolved...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].pos < sorted[j].pos })

	out := append([]placed(nil), seq...)
	for _, u := range sorted {
		idx := u.pos
		if idx > len(out) {
			idx = len(out)
		}
		out = append(out, placed{})
		copy(out[idx+1:], out[idx:])
		out[idx] = u
	}
	return out
}
