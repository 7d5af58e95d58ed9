package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Day is one trip day: an ordered sequence of stops plus where and when the
// day begins. A Day exclusively owns its stop sequence.
type Day struct {
	Date      time.Time    `json:"date"`
	StartTime *time.Time   `json:"start_time,omitempty"`
	Start     *Coordinates `json:"start,omitempty"`
	Stops     []Stop       `json:"stops"`
}

// Validate checks the structural invariants of the day.
func (d *Day) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: day must be non-nil", ErrInvalidInput)
	}
	if d.Start != nil && !d.Start.Valid() {
		return fmt.Errorf("%w: day start has invalid coordinates %+v", ErrInvalidInput, *d.Start)
	}

	seen := make(map[string]struct{}, len(d.Stops))
	for _, s := range d.Stops {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: duplicate stop id %q", ErrInvalidInput, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Ordered returns a copy of the stops sorted by Order. Stops sharing an
// Order keep their slice position.
func (d *Day) Ordered() []Stop {
	out := make([]Stop, len(d.Stops))
	for i, s := range d.Stops {
		out[i] = s.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Apply returns a new Day whose stops follow the result's proposed order.
// The receiver is left untouched; persisting the returned Day is up to the caller.
func (d *Day) Apply(res *OptimizationResult) (*Day, error) {
	if res == nil {
		return nil, errors.New("apply optimization: result must be non-nil")
	}
	if len(res.ProposedOrder) != len(d.Stops) {
		return nil, fmt.Errorf(
			"apply optimization: result has %d stops, day has %d",
			len(res.ProposedOrder), len(d.Stops),
		)
	}

	known := make(map[string]struct{}, len(d.Stops))
	for _, s := range d.Stops {
		known[s.ID] = struct{}{}
	}

	stops := make([]Stop, 0, len(res.ProposedOrder))
	for i, s := range res.ProposedOrder {
		if _, ok := known[s.ID]; !ok {
			return nil, fmt.Errorf("apply optimization: unknown stop %q", s.ID)
		}
		delete(known, s.ID)

		c := s.Clone()
		c.Order = i
		stops = append(stops, c)
	}

	out := *d
	out.Stops = stops
	return &out, nil
}
