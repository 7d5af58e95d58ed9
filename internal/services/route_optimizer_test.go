package services

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
	"trip-route-engine/internal/adapters/distance"
	"trip-route-engine/internal/domain"
)

func scenarioStops() []domain.Stop {
	return []domain.Stop{
		anchorStop("A", pt(10, 0), at(9, 0)),
		anchorStop("B", pt(10, 10), at(13, 0)),
		freeStop("P", pt(1, 0)),
		freeStop("Q", pt(9, 1)),
		freeStop("R", pt(11, 9)),
	}
}

func TestOptimizeScenario(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	stops := scenarioStops()
	// Deliberately scrambled input order.
	day := dayOf(stops[4], stops[1], stops[2], stops[0], stops[3])

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := res.ProposedIDs()
	want := []string{"P", "Q", "A", "R", "B"}
	if !slices.Equal(got, want) {
		t.Fatalf("proposed order = %v, want %v", got, want)
	}

	if res.Degraded {
		t.Fatalf("expected non-degraded result, got %+v", res.DegradedPairs)
	}
	if res.TotalDistanceAfter > res.TotalDistanceBefore {
		t.Fatalf("distance after = %.1f, want <= before %.1f", res.TotalDistanceAfter, res.TotalDistanceBefore)
	}
	for i, s := range res.ProposedOrder {
		if s.Order != i {
			t.Errorf("stop %q order = %d, want %d", s.ID, s.Order, i)
		}
	}
}

func TestOptimizeKeepsAnchorOrderForAnyPermutation(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	for _, perm := range permutations(scenarioStops()) {
		day := dayOf(perm...)

		res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
		if err != nil {
			t.Fatalf("input %v: unexpected error: %v", ids(perm), err)
		}

		got := res.ProposedIDs()
		if len(got) != 5 {
			t.Fatalf("input %v: proposed %v, want 5 stops", ids(perm), got)
		}

		seen := map[string]int{}
		for _, id := range got {
			seen[id]++
		}
		for _, id := range []string{"A", "B", "P", "Q", "R"} {
			if seen[id] != 1 {
				t.Fatalf("input %v: stop %q appears %d times in %v", ids(perm), id, seen[id], got)
			}
		}

		if slices.Index(got, "A") > slices.Index(got, "B") {
			t.Fatalf("input %v: anchors out of order in %v", ids(perm), got)
		}
		for _, v := range res.Violations {
			if v.Kind == domain.ViolationAnchorOrder {
				t.Fatalf("input %v: unexpected anchor order violation %+v", ids(perm), v)
			}
		}
	}
}

func TestOptimizeEmptyAndSingleDay(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	res, err := opt.Optimize(context.Background(), dayOf(), *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.ProposedOrder) != 0 || res.TotalDistanceBefore != 0 || res.TotalDistanceAfter != 0 {
		t.Fatalf("empty day result = %+v, want empty with zero totals", res)
	}

	res, err = opt.Optimize(context.Background(), dayOf(freeStop("only", pt(3, 4))), *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.ProposedIDs(); !slices.Equal(got, []string{"only"}) {
		t.Fatalf("proposed = %v, want [only]", got)
	}
	if res.TotalDistanceBefore != res.TotalDistanceAfter {
		t.Fatalf("before = %.1f, after = %.1f, want equal", res.TotalDistanceBefore, res.TotalDistanceAfter)
	}
	if res.TotalDistanceBefore != 5000 {
		t.Fatalf("distance = %.1f, want 5000", res.TotalDistanceBefore)
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())
	cfg := testConfig()

	day := dayOf(
		freeStop("far", pt(8, 8)),
		freeStop("near", pt(1, 1)),
		anchorStop("lunch", pt(5, 5), at(12, 0)),
		freeStop("mid", pt(3, 2)),
		freeStop("late", pt(9, 2)),
	)

	first, err := opt.Optimize(context.Background(), day, *pt(0, 0), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	applied, err := day.Apply(first)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	second, err := opt.Optimize(context.Background(), applied, *pt(0, 0), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.TotalDistanceAfter != second.TotalDistanceBefore {
		t.Fatalf("after = %.3f, before = %.3f, want equal", second.TotalDistanceAfter, second.TotalDistanceBefore)
	}
	if !slices.Equal(first.ProposedIDs(), second.ProposedIDs()) {
		t.Fatalf("second run = %v, want %v", second.ProposedIDs(), first.ProposedIDs())
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	day := dayOf(freeStop("b", pt(5, 0)), freeStop("a", pt(1, 0)))
	before := ids(day.Stops)

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.ProposedIDs(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("proposed = %v, want [a b]", got)
	}
	if !slices.Equal(ids(day.Stops), before) || day.Stops[0].Order != 0 || day.Stops[1].Order != 1 {
		t.Fatalf("input day mutated: %+v", day.Stops)
	}

	res.ProposedOrder[0].Coordinates.Lat = 42
	if day.Stops[1].Coordinates.Lat == 42 {
		t.Fatalf("result shares coordinate pointers with input day")
	}
}

func TestOptimizeUnresolvedStopKeepsPosition(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	day := dayOf(
		freeStop("far", pt(9, 0)),
		freeStop("ghost", nil),
		freeStop("near", pt(1, 0)),
	)

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.ProposedIDs(); !slices.Equal(got, []string{"near", "ghost", "far"}) {
		t.Fatalf("proposed = %v, want [near ghost far]", got)
	}
	if !slices.Equal(res.Unresolved, []string{"ghost"}) {
		t.Fatalf("unresolved = %v, want [ghost]", res.Unresolved)
	}
	if res.Degraded {
		t.Fatalf("unresolved stops must not mark the result degraded")
	}
}

type stubResolver map[string]domain.Coordinates

func (r stubResolver) Resolve(ctx context.Context, text string) (domain.Coordinates, error) {
	c, ok := r[text]
	if !ok {
		return domain.Coordinates{}, domain.ErrGeocodeNotFound
	}
	return c, nil
}

func TestOptimizeResolvesAddresses(t *testing.T) {
	opt, _ := newTestOptimizer(
		distance.NewPlanarMockProvider(),
		WithCoordinateResolver(stubResolver{"museum": {Lat: 1, Lon: 0}}),
	)

	museum := freeStop("museum", nil)
	museum.Address = "museum"
	nowhere := freeStop("nowhere", nil)
	nowhere.Address = "atlantis"

	day := dayOf(freeStop("park", pt(4, 0)), museum, nowhere)

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.ProposedIDs(); !slices.Equal(got, []string{"museum", "park", "nowhere"}) {
		t.Fatalf("proposed = %v, want [museum park nowhere]", got)
	}
	if res.ProposedOrder[0].Coordinates == nil {
		t.Fatalf("resolved coordinates were not carried into the result")
	}
	if !slices.Equal(res.Unresolved, []string{"nowhere"}) {
		t.Fatalf("unresolved = %v, want [nowhere]", res.Unresolved)
	}
	if day.Stops[1].Coordinates != nil {
		t.Fatalf("input stop was mutated by coordinate resolution")
	}
}

// hangingResolver blocks until its context ends.
type hangingResolver struct {
	calls       atomic.Int64
	hadDeadline atomic.Bool
}

func (r *hangingResolver) Resolve(ctx context.Context, text string) (domain.Coordinates, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		r.hadDeadline.Store(true)
	}
	<-ctx.Done()
	return domain.Coordinates{}, ctx.Err()
}

func TestOptimizeBoundsHangingGeocoder(t *testing.T) {
	resolver := &hangingResolver{}
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider(), WithCoordinateResolver(resolver))

	cfg := testConfig()
	cfg.ProviderTimeoutSeconds = 0.05

	hung := freeStop("hung", nil)
	hung.Address = "somewhere slow"
	day := dayOf(freeStop("park", pt(4, 0)), hung)

	type outcome struct {
		res *domain.OptimizationResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := opt.Optimize(context.Background(), day, *pt(0, 0), cfg)
		done <- outcome{res, err}
	}()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Optimize still blocked on the geocoder after 2s (timeout %s)", cfg.ProviderTimeout())
	}

	if got.err != nil {
		t.Fatalf("geocoder timeout must be absorbed, got %v", got.err)
	}
	if !resolver.hadDeadline.Load() {
		t.Fatalf("geocoder was called without a deadline")
	}
	if resolver.calls.Load() != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls.Load())
	}
	if !slices.Equal(got.res.Unresolved, []string{"hung"}) {
		t.Fatalf("unresolved = %v, want [hung]", got.res.Unresolved)
	}
	if ids := got.res.ProposedIDs(); !slices.Equal(ids, []string{"park", "hung"}) {
		t.Fatalf("proposed = %v, want [park hung]", ids)
	}
}

func TestOptimizeProviderAlwaysTimesOut(t *testing.T) {
	provider := &blockingProvider{}
	opt, routes := newTestOptimizer(provider)

	cfg := testConfig()
	cfg.ProviderTimeoutSeconds = 0.02
	cfg.ProviderRetries = 1
	cfg.RetryBackoffMillis = 1

	day := dayOf(freeStop("a", pt(1, 0)), freeStop("b", pt(2, 0)), freeStop("c", pt(3, 0)))

	// Directional pairs among start and three stops.
	const maxLookups = 4 * 3
	perLookup := time.Duration(cfg.ProviderRetries+1)*cfg.ProviderTimeout() + cfg.RetryBackoff()
	budget := maxLookups*perLookup + time.Second

	began := time.Now()
	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), cfg)
	elapsed := time.Since(began)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed > budget {
		t.Fatalf("optimize took %s, want <= %s", elapsed, budget)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded result")
	}

	degraded := map[string]domain.DegradeReason{}
	for _, p := range res.DegradedPairs {
		degraded[domain.RouteKey(p.From, p.To)] = p.Reason
	}
	if len(degraded) != len(res.DegradedPairs) {
		t.Fatalf("degraded pairs listed more than once: %+v", res.DegradedPairs)
	}

	current := *pt(0, 0)
	for _, s := range res.ProposedOrder {
		key := domain.RouteKey(current, *s.Coordinates)
		reason, ok := degraded[key]
		if !ok {
			t.Fatalf("leg %s missing from degraded pairs", key)
		}
		if reason != domain.DegradeTimeout {
			t.Fatalf("leg %s reason = %q, want timeout", key, reason)
		}
		current = *s.Coordinates
	}

	want := 3 * cfg.FallbackPenaltyMeters
	if res.TotalDistanceAfter != want {
		t.Fatalf("distance after = %.0f, want %.0f", res.TotalDistanceAfter, want)
	}
	if routes.Len() != 0 {
		t.Fatalf("route cache holds %d entries, fallbacks must not be cached", routes.Len())
	}
	if calls := provider.calls.Load(); calls != int64(len(res.DegradedPairs)*(cfg.ProviderRetries+1)) {
		t.Fatalf("provider calls = %d, want %d (one retry per degraded pair)", calls, len(res.DegradedPairs)*2)
	}
}

func TestOptimizeProviderFailureIsAbsorbed(t *testing.T) {
	provider := distance.NewPlanarMockProvider()
	provider.FailPair(*pt(0, 0), *pt(2, 0), errors.New("connection refused"))

	opt, _ := newTestOptimizer(provider)

	day := dayOf(freeStop("a", pt(2, 0)), freeStop("b", pt(3, 0)))
	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Degraded || len(res.DegradedPairs) != 1 {
		t.Fatalf("degraded pairs = %+v, want exactly one", res.DegradedPairs)
	}
	if res.DegradedPairs[0].Reason != domain.DegradeUnavailable {
		t.Fatalf("reason = %q, want unavailable", res.DegradedPairs[0].Reason)
	}
	// The penalty pushes "a" behind "b".
	if got := res.ProposedIDs(); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("proposed = %v, want [b a]", got)
	}
}

func TestOptimizeRejectsInvalidInput(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	bad := freeStop("a", pt(1, 0))
	bad.VisitDuration = -time.Minute

	tests := []struct {
		name  string
		day   *domain.Day
		start domain.Coordinates
		cfg   func(*domain.OptimizationConfig)
	}{
		{name: "nil day", day: nil, start: *pt(0, 0)},
		{name: "negative duration", day: dayOf(bad), start: *pt(0, 0)},
		{name: "duplicate ids", day: dayOf(freeStop("a", pt(1, 0)), freeStop("a", pt(2, 0))), start: *pt(0, 0)},
		{name: "bad start", day: dayOf(freeStop("a", pt(1, 0))), start: *pt(100, 0)},
		{
			name: "bad config", day: dayOf(freeStop("a", pt(1, 0))), start: *pt(0, 0),
			cfg: func(c *domain.OptimizationConfig) { c.MealWindowHours = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			_, err := opt.Optimize(context.Background(), tt.day, tt.start, cfg)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestOptimizeCancelled(t *testing.T) {
	opt, _ := newTestOptimizer(&blockingProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.Optimize(ctx, dayOf(freeStop("a", pt(1, 0)), freeStop("b", pt(2, 0))), *pt(0, 0), testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOptimizeAsyncCancelDuringLookup(t *testing.T) {
	provider := &blockingProvider{}
	opt, _ := newTestOptimizer(provider)

	cfg := testConfig()
	cfg.ProviderTimeoutSeconds = 0.05

	ctx, cancel := context.WithCancel(context.Background())
	ch := opt.OptimizeAsync(ctx, dayOf(freeStop("a", pt(1, 0)), freeStop("b", pt(2, 0))), *pt(0, 0), cfg)

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case out := <-ch:
		if !errors.Is(out.Err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", out.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("optimize did not return after cancellation")
	}
}

func TestOptimizeReportsMealsAndViolations(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	cfg := testConfig()
	cfg.MealWindowHours = 4

	stops := []domain.Stop{
		freeStop("s1", pt(0, 1)),
		freeStop("s2", pt(0, 2)),
		freeStop("s3", pt(0, 3)),
		anchorStop("show", pt(0, 4), at(9, 0)),
	}
	for i := range stops {
		stops[i].VisitDuration = 2 * time.Hour
	}
	day := dayOf(stops...)
	day.StartTime = at(8, 0)

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.MealSuggestions) == 0 {
		t.Fatalf("expected meal suggestions for an 8h day without meals")
	}
	if res.MealSuggestions[0].ElapsedSinceLastMeal > cfg.MealWindow() {
		t.Fatalf("first suggestion at %s, want <= %s", res.MealSuggestions[0].ElapsedSinceLastMeal, cfg.MealWindow())
	}

	var unreachable bool
	for _, v := range res.Violations {
		if v.Kind == domain.ViolationAnchorUnreachable && v.StopID == "show" {
			unreachable = true
		}
	}
	if !unreachable {
		t.Fatalf("violations = %+v, want show unreachable", res.Violations)
	}
}

func TestOptimizeWithCustomMealPolicy(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider(), WithMealPolicy(NoMealPolicy{}))

	s := freeStop("long", pt(1, 0))
	s.VisitDuration = 10 * time.Hour

	res, err := opt.Optimize(context.Background(), dayOf(s), *pt(0, 0), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MealSuggestions) != 0 {
		t.Fatalf("suggestions = %+v, want none", res.MealSuggestions)
	}
}

func TestOptimizePositionAssignmentKeepsRuns(t *testing.T) {
	opt, _ := newTestOptimizer(distance.NewPlanarMockProvider())

	cfg := testConfig()
	cfg.SegmentAssignment = domain.AssignPosition

	// "x" sits after the anchor in the input; position mode keeps it there
	// even though it is next to the start.
	day := dayOf(
		freeStop("y", pt(5, 0)),
		anchorStop("A", pt(10, 0), at(10, 0)),
		freeStop("x", pt(1, 0)),
	)

	res, err := opt.Optimize(context.Background(), day, *pt(0, 0), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.ProposedIDs(); !slices.Equal(got, []string{"y", "A", "x"}) {
		t.Fatalf("proposed = %v, want [y A x]", got)
	}
}
