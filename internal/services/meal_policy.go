package services

import (
	"time"
	"trip-route-engine/internal/domain"
)

// MealPolicy decides where meal stops should be suggested. Implementations
// must not mutate visits.
type MealPolicy interface {
	Suggest(visits []domain.Visit) []domain.MealSuggestion
}

// RollingWindowPolicy suggests a meal whenever the time since the last meal
// (travel plus visit time) would exceed Window.
//
// The suggestion is placed before the visit that would cross the window, so
// it always falls at or before the window mark, and the window restarts
// there. A single visit longer than the window still gets a suggestion
// before it, even at the start of the day or right after a meal. Meal stops
// restart the window when they end.
type RollingWindowPolicy struct {
	Window time.Duration
}

func (p RollingWindowPolicy) Suggest(visits []domain.Visit) []domain.MealSuggestion {
	if p.Window <= 0 {
		return nil
	}

	var out []domain.MealSuggestion
	var elapsed time.Duration

	for i, v := range visits {
		if v.Stop.IsMeal() {
			elapsed = 0
			continue
		}

		step := v.Travel + v.Stop.VisitDuration
		if elapsed+step > p.Window {
			out = append(out, domain.MealSuggestion{Index: i, ElapsedSinceLastMeal: elapsed})
			elapsed = 0
		}
		elapsed += step
	}

	return out
}

// NoMealPolicy never suggests meals.
type NoMealPolicy struct{}

func (NoMealPolicy) Suggest([]domain.Visit) []domain.MealSuggestion { return nil }
