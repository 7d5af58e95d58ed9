package services

import (
	"context"
	"math"
	"trip-route-engine/internal/domain"

	"golang.org/x/sync/errgroup"
)

// placed is a stop together with its position in the original order.
type placed struct {
	stop domain.Stop
	pos  int
}

func (p placed) coord() domain.Coordinates { return *p.stop.Coordinates }

// distanceFunc resolves one directional pair.
type distanceFunc func(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error)

// prefetchFunc warms answers for one origin and many destinations.
type prefetchFunc func(ctx context.Context, from domain.Coordinates, tos []domain.Coordinates)

// candidate is one unvisited stop considered by a greedy step.
type candidate struct {
	id     string
	pos    int
	meters float64
}

// selectNearest picks the closest candidate. Candidates within epsilon of
// each other are ties and resolve to the earlier original position.
// It returns -1 for an empty slice.
func selectNearest(cands []candidate, epsilon float64) int {
	best := -1
	for i, c := range cands {
		if best == -1 {
			best = i
			continue
		}
		b := cands[best]
		if c.meters < b.meters-epsilon {
			best = i
			continue
		}
		if math.Abs(c.meters-b.meters) <= epsilon && c.pos < b.pos {
			best = i
		}
	}
	return best
}

// NearestNeighborOrder orders stops greedily starting at start: each step
// visits the closest unvisited stop. The input slice is not modified.
//
// The algorithm minimizes immediate travel distance at each step.
// It does not attempt global route optimization.
// Distances for one step are fetched concurrently, at most concurrency at a
// time, after an optional batched prefetch.
func nearestNeighborOrder(
	ctx context.Context,
	start domain.Coordinates,
	stops []placed,
	dist distanceFunc,
	prefetch prefetchFunc,
	epsilon float64,
	concurrency int,
) ([]placed, error) {
	if len(stops) <= 1 {
		return append([]placed(nil), stops...), nil
	}

	byID := make(map[string]placed, len(stops))
	unvisited := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		byID[s.stop.ID] = s
		unvisited[s.stop.ID] = struct{}{}
	}

	current := start
	out := make([]placed, 0, len(stops))

	for len(unvisited) > 0 {
		// Walk the input slice, not the map, so candidate order is deterministic.
		cands := make([]candidate, 0, len(unvisited))
		for _, s := range stops {
			if _, ok := unvisited[s.stop.ID]; ok {
				cands = append(cands, candidate{id: s.stop.ID, pos: s.pos})
			}
		}

		if prefetch != nil {
			tos := make([]domain.Coordinates, 0, len(cands))
			for _, c := range cands {
				tos = append(tos, byID[c.id].coord())
			}
			prefetch(ctx, current, tos)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := range cands {
			i := i
			to := byID[cands[i].id].coord()
			from := current
			g.Go(func() error {
				r, err := dist(gctx, from, to)
				if err != nil {
					return err
				}
				cands[i].meters = r.DistanceMeters
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		// Select next stop by minimum travel distance (greedy step).
		next := cands[selectNearest(cands, epsilon)]

		out = append(out, byID[next.id])
		delete(unvisited, next.id)
		current = byID[next.id].coord()
	}

	return out, nil
}
