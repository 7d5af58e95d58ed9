package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a stop. Meal stops reset the meal window.
type Category string

const (
	CategoryMeal       Category = "meal"
	CategoryAttraction Category = "attraction"
	CategoryLodging    Category = "lodging"
	CategoryOther      Category = "other"
)

// Valid reports whether c is a known category. The empty category is
// treated as CategoryOther.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryMeal, CategoryAttraction, CategoryLodging, CategoryOther:
		return true
	}
	return false
}

// Represents a single place visited during a trip day.
// A Stop with FixedTime set is an anchor: its time is caller-specified and
// it is never reordered relative to other anchors. Coordinates may be nil
// when the location could not be resolved.
type Stop struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Address       string        `json:"address,omitempty"`
	Coordinates   *Coordinates  `json:"coordinates,omitempty"`
	Category      Category      `json:"category"`
	FixedTime     *time.Time    `json:"fixed_time,omitempty"`
	VisitDuration time.Duration `json:"visit_duration"`
	Order         int           `json:"order"`
}

// IsAnchor reports whether the stop has a fixed time.
func (s Stop) IsAnchor() bool { return s.FixedTime != nil }

// IsMeal reports whether the stop is a meal stop.
func (s Stop) IsMeal() bool { return s.Category == CategoryMeal }

// Resolved reports whether the stop has usable coordinates.
func (s Stop) Resolved() bool { return s.Coordinates != nil }

// Clone returns a deep copy so callers can hand out stops without sharing
// pointer fields with the owning Day.
func (s Stop) Clone() Stop {
	out := s
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	if s.FixedTime != nil {
		t := *s.FixedTime
		out.FixedTime = &t
	}
	return out
}

// Visit is a stop placed on a timeline: Travel is the leg duration from the
// previous point of the sequence (or the day start) to this stop.
type Visit struct {
	Stop   Stop
	Travel time.Duration
}

// Validate checks the structural invariants of a single stop.
func (s Stop) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: stop id must be non-empty", ErrInvalidInput)
	}
	if s.VisitDuration < 0 {
		return fmt.Errorf("%w: stop %q has negative visit duration %s", ErrInvalidInput, s.ID, s.VisitDuration)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%w: stop %q has unknown category %q", ErrInvalidInput, s.ID, s.Category)
	}
	if s.Coordinates != nil && !s.Coordinates.Valid() {
		return fmt.Errorf("%w: stop %q has invalid coordinates %+v", ErrInvalidInput, s.ID, *s.Coordinates)
	}
	return nil
}
