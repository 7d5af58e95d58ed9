package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"trip-route-engine/internal/domain"
)

type StopSeed struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Address              string              `json:"address"`
	Coordinates          *domain.Coordinates `json:"coordinates"`
	Category             string              `json:"category"`
	FixedTime            *time.Time          `json:"fixed_time"`
	VisitDurationMinutes float64             `json:"visit_duration_minutes"`
}

type DaySeed struct {
	Date      time.Time           `json:"date"`
	StartTime *time.Time          `json:"start_time"`
	Start     *domain.Coordinates `json:"start"`
	Stops     []StopSeed          `json:"stops"`
}

// LoadDayFromJSON reads a day definition from a JSON file. Stops are ordered
// as they appear in the file.
func LoadDayFromJSON(jsonPath string) (*domain.Day, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load day: read %q: %w", jsonPath, err)
	}

	var seed DaySeed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return nil, fmt.Errorf("load day: parse json: %w", err)
	}

	day, err := seed.ToDay()
	if err != nil {
		return nil, fmt.Errorf("load day %q: %w", jsonPath, err)
	}
	return day, nil
}

// ToDay converts the seed into a validated domain.Day.
func (seed DaySeed) ToDay() (*domain.Day, error) {
	day := &domain.Day{
		Date:      seed.Date,
		StartTime: seed.StartTime,
		Start:     seed.Start,
		Stops:     make([]domain.Stop, 0, len(seed.Stops)),
	}

	for i, item := range seed.Stops {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: stop at index %d: id cannot be empty", domain.ErrInvalidInput, i+1)
		}

		day.Stops = append(day.Stops, domain.Stop{
			ID:            id,
			Name:          strings.TrimSpace(item.Name),
			Address:       strings.TrimSpace(item.Address),
			Coordinates:   item.Coordinates,
			Category:      domain.Category(strings.ToLower(strings.TrimSpace(item.Category))),
			FixedTime:     item.FixedTime,
			VisitDuration: time.Duration(item.VisitDurationMinutes * float64(time.Minute)),
			Order:         i,
		})
	}

	if err := day.Validate(); err != nil {
		return nil, err
	}
	return day, nil
}
