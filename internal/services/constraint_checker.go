package services

import (
	"time"
	"trip-route-engine/internal/domain"
)

// ConstraintChecker reports anchors that are out of chronological order or
// cannot be reached by their fixed time. Findings are informational; the
// optimizer attaches them to the result and never fails on them.
type ConstraintChecker struct{}

// Validate walks visits on a clock. The clock starts at dayStart when set;
// otherwise it starts at the first anchor, so that anchor is never reported
// unreachable. Arriving early at an anchor waits until its fixed time;
// arriving late starts the visit on arrival.
func (ConstraintChecker) Validate(dayStart *time.Time, visits []domain.Visit) []domain.Violation {
	var violations []domain.Violation

	var clock *time.Time
	if dayStart != nil {
		t := *dayStart
		clock = &t
	}

	var latest *domain.Stop
	for i := range visits {
		v := visits[i]
		s := v.Stop

		var arrive time.Time
		if clock != nil {
			arrive = clock.Add(v.Travel)
		}

		if !s.IsAnchor() {
			if clock != nil {
				t := arrive.Add(s.VisitDuration)
				clock = &t
			}
			continue
		}

		fixed := *s.FixedTime
		if latest != nil && fixed.Before(*latest.FixedTime) {
			violations = append(violations, domain.Violation{
				Kind:    domain.ViolationAnchorOrder,
				StopID:  s.ID,
				OtherID: latest.ID,
			})
		}
		if latest == nil || !fixed.Before(*latest.FixedTime) {
			latest = &visits[i].Stop
		}

		begin := fixed
		if clock != nil && arrive.After(fixed) {
			violations = append(violations, domain.Violation{
				Kind:     domain.ViolationAnchorUnreachable,
				StopID:   s.ID,
				Lateness: arrive.Sub(fixed),
			})
			begin = arrive
		}

		t := begin.Add(s.VisitDuration)
		clock = &t
	}

	return violations
}
