package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StopRequest struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Coordinates  *Coordinates `json:"coordinates"`
	Category     string       `json:"category"`
	FixedTime    *time.Time   `json:"fixed_time"`
	VisitMinutes int          `json:"visit_minutes"`
	Order        *int         `json:"order"`
}

// OptionsRequest overrides selected optimizer settings for one call.
type OptionsRequest struct {
	MealWindowHours   *float64 `json:"meal_window_hours"`
	SegmentAssignment string   `json:"segment_assignment"`
}

type OptimizeRequest struct {
	Date         time.Time       `json:"date"`
	StartTime    *time.Time      `json:"start_time"`
	Start        *Coordinates    `json:"start"`
	StartAddress string          `json:"start_address"`
	Stops        []StopRequest   `json:"stops"`
	Options      *OptionsRequest `json:"options"`
}

type StopResponse struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	Coordinates  *Coordinates `json:"coordinates"`
	Category     string       `json:"category"`
	FixedTime    *time.Time   `json:"fixed_time,omitempty"`
	VisitMinutes int          `json:"visit_minutes"`
	Order        int          `json:"order"`
}

type MealSuggestionResponse struct {
	Index          int     `json:"index"`
	ElapsedMinutes float64 `json:"elapsed_minutes"`
}

type ViolationResponse struct {
	Kind            string  `json:"kind"`
	StopID          string  `json:"stop_id"`
	OtherID         string  `json:"other_id,omitempty"`
	LatenessMinutes float64 `json:"lateness_minutes,omitempty"`
}

type DegradedPairResponse struct {
	From   Coordinates `json:"from"`
	To     Coordinates `json:"to"`
	Reason string      `json:"reason"`
}

type OptimizeResponse struct {
	RunID                      string                   `json:"run_id"`
	OriginalOrder              []string                 `json:"original_order"`
	ProposedOrder              []StopResponse           `json:"proposed_order"`
	TotalDistanceBeforeMeters  float64                  `json:"total_distance_before_meters"`
	TotalDistanceAfterMeters   float64                  `json:"total_distance_after_meters"`
	TotalDurationBeforeSeconds float64                  `json:"total_duration_before_seconds"`
	TotalDurationAfterSeconds  float64                  `json:"total_duration_after_seconds"`
	MealSuggestions            []MealSuggestionResponse `json:"meal_suggestions"`
	Violations                 []ViolationResponse      `json:"violations"`
	DegradedPairs              []DegradedPairResponse   `json:"degraded_pairs"`
	Unresolved                 []string                 `json:"unresolved"`
	Degraded                   bool                     `json:"degraded"`
}

type ClearCachesResponse struct {
	RoutesCleared      int  `json:"routes_cleared"`
	CoordinatesCleared int  `json:"coordinates_cleared"`
	StoreCleared       bool `json:"store_cleared"`
}
