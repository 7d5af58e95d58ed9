package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
	"trip-route-engine/internal/domain"
)

// partition splits stops into anchors (sorted chronologically, ties by
// original position), resolved free stops and unresolved free stops.
func partition(stops []placed) (anchors, free, unresolved []placed) {
	for _, s := range stops {
		switch {
		case s.stop.IsAnchor():
			anchors = append(anchors, s)
		case s.stop.Resolved():
			free = append(free, s)
		default:
			unresolved = append(unresolved, s)
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		ti, tj := *anchors[i].stop.FixedTime, *anchors[j].stop.FixedTime
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return anchors[i].pos < anchors[j].pos
	})
	return anchors, free, unresolved
}

// boundaries returns the coordinate each segment starts from:
// boundaries[0] is the day start, boundaries[k] the k-th anchor. An
// unresolved anchor inherits the previous boundary's coordinate.
func boundaries(start domain.Coordinates, anchors []placed) []domain.Coordinates {
	out := make([]domain.Coordinates, 0, len(anchors)+1)
	out = append(out, start)
	for _, a := range anchors {
		if a.stop.Resolved() {
			out = append(out, a.coord())
		} else {
			out = append(out, out[len(out)-1])
		}
	}
	return out
}

// assignSegments distributes free stops over the len(anchors)+1 segments
// [start->A1], [A1->A2], ..., [An->end]. Each returned segment keeps the
// input order of its stops.
func assignSegments(
	ctx context.Context,
	bounds []domain.Coordinates,
	anchors []placed,
	free []placed,
	mode domain.SegmentAssignment,
	dist distanceFunc,
	epsilon float64,
) ([][]placed, error) {
	segments := make([][]placed, len(anchors)+1)

	for _, s := range free {
		var k int
		switch mode {
		case domain.AssignPosition:
			for _, a := range anchors {
				if a.pos < s.pos {
					k++
				}
			}
		case domain.AssignInsertion:
			var err error
			k, err = cheapestSegment(ctx, bounds, s.coord(), dist, epsilon)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("assign segments: unknown mode %q", mode)
		}
		segments[k] = append(segments[k], s)
	}

	return segments, nil
}

// cheapestSegment returns the segment where visiting at adds the least
// distance: d(prev,at)+d(at,next)-d(prev,next) for bounded segments and
// d(prev,at) for the open tail. Ties go to the earlier segment.
func cheapestSegment(
	ctx context.Context,
	bounds []domain.Coordinates,
	at domain.Coordinates,
	dist distanceFunc,
	epsilon float64,
) (int, error) {
	best, bestCost := -1, math.Inf(1)

	for k := range bounds {
		prev := bounds[k]

		in, err := dist(ctx, prev, at)
		if err != nil {
			return 0, err
		}
		cost := in.DistanceMeters

		if k+1 < len(bounds) {
			next := bounds[k+1]
			out, err := dist(ctx, at, next)
			if err != nil {
				return 0, err
			}
			direct, err := dist(ctx, prev, next)
			if err != nil {
				return 0, err
			}
			cost += out.DistanceMeters - direct.DistanceMeters
		}

		if cost < bestCost-epsilon {
			best, bestCost = k, cost
		}
	}

	return best, nil
}

// sequenceTotals sums consecutive legs from start across seq and builds the
// visit timeline. Unresolved stops contribute no travel and do not move the
// current position.
func sequenceTotals(
	ctx context.Context,
	start domain.Coordinates,
	seq []domain.Stop,
	dist distanceFunc,
) (float64, time.Duration, []domain.Visit, error) {
	var meters float64
	var travel time.Duration

	visits := make([]domain.Visit, 0, len(seq))
	current := start
	for _, s := range seq {
		if !s.Resolved() {
			visits = append(visits, domain.Visit{Stop: s})
			continue
		}

		r, err := dist(ctx, current, *s.Coordinates)
		if err != nil {
			return 0, 0, nil, err
		}
		meters += r.DistanceMeters
		travel += r.Duration()
		visits = append(visits, domain.Visit{Stop: s, Travel: r.Duration()})
		current = *s.Coordinates
	}

	return meters, travel, visits, nil
}
