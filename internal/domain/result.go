package domain

import "time"

// ViolationKind names a ConstraintChecker finding.
type ViolationKind string

const (
	ViolationAnchorOrder       ViolationKind = "anchor_order"
	ViolationAnchorUnreachable ViolationKind = "anchor_unreachable"
)

// Violation is an informational constraint finding. Violations never fail
// an optimization.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	StopID  string        `json:"stop_id"`
	OtherID string        `json:"other_id,omitempty"`
	// Lateness is how far past its fixed time an unreachable anchor is reached.
	Lateness time.Duration `json:"lateness,omitempty"`
}

// MealSuggestion proposes inserting a meal before the stop at Index.
// Index == len(sequence) means after the last stop.
type MealSuggestion struct {
	Index                int           `json:"index"`
	ElapsedSinceLastMeal time.Duration `json:"elapsed_since_last_meal"`
}

// DegradeReason explains why a pair fell back to the penalty distance.
type DegradeReason string

const (
	DegradeTimeout     DegradeReason = "timeout"
	DegradeUnavailable DegradeReason = "unavailable"
)

// DegradedPair is a coordinate pair whose distance is a fallback estimate.
type DegradedPair struct {
	From   Coordinates   `json:"from"`
	To     Coordinates   `json:"to"`
	Reason DegradeReason `json:"reason"`
}

// Represents the outcome of optimizing a single day.
// It is proposal data only: the Day it was computed from is not modified and
// nothing is persisted until the caller applies it.
type OptimizationResult struct {
	RunID               string           `json:"run_id"`
	OriginalOrder       []string         `json:"original_order"`
	ProposedOrder       []Stop           `json:"proposed_order"`
	TotalDistanceBefore float64          `json:"total_distance_before"`
	TotalDistanceAfter  float64          `json:"total_distance_after"`
	TotalDurationBefore time.Duration    `json:"total_duration_before"`
	TotalDurationAfter  time.Duration    `json:"total_duration_after"`
	MealSuggestions     []MealSuggestion `json:"meal_suggestions"`
	Violations          []Violation      `json:"violations"`
	DegradedPairs       []DegradedPair   `json:"degraded_pairs"`
	// Unresolved lists stops that could not be optimized (no coordinates).
	Unresolved []string `json:"unresolved"`
	Degraded   bool     `json:"degraded"`
}

// ProposedIDs returns the stop IDs of the proposed order.
func (r *OptimizationResult) ProposedIDs() []string {
	ids := make([]string, 0, len(r.ProposedOrder))
	for _, s := range r.ProposedOrder {
		ids = append(ids, s.ID)
	}
	return ids
}
