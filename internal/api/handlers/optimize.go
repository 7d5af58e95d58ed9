package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"trip-route-engine/internal/api/dto"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/ports"
	"trip-route-engine/internal/services"
)

type OptimizeHandler struct {
	Optimizer *services.RouteOptimizer
	Config    domain.OptimizationConfig
	// Resolver geocodes start_address and DefaultStart. May be nil.
	Resolver     ports.CoordinateResolver
	DefaultStart string
}

// Optimize proposes a reordering for one day. The request's day is never
// persisted; clients apply the proposed order themselves.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.OptimizeRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	cfg, err := h.configFor(req.Options)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	day := toDay(req)

	start, err := h.startFor(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrGeocodeNotFound) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("resolve start failed: %v", err)
		writeError(w, r, http.StatusBadGateway, "could not resolve start location")
		return
	}

	res, err := h.Optimizer.Optimize(r.Context(), day, start, cfg)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("optimize day failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toResponse(res))
}

func (h *OptimizeHandler) configFor(opts *dto.OptionsRequest) (domain.OptimizationConfig, error) {
	cfg := h.Config
	if opts == nil {
		return cfg, nil
	}

	if opts.MealWindowHours != nil {
		cfg.MealWindowHours = *opts.MealWindowHours
	}
	if s := strings.TrimSpace(opts.SegmentAssignment); s != "" {
		cfg.SegmentAssignment = domain.SegmentAssignment(strings.ToLower(s))
	}

	if err := cfg.Validate(); err != nil {
		return domain.OptimizationConfig{}, fmt.Errorf("options: %w", err)
	}
	return cfg, nil
}

// startFor picks the day's starting point: explicit coordinates, then
// start_address, then the configured default address.
func (h *OptimizeHandler) startFor(ctx context.Context, req dto.OptimizeRequest) (domain.Coordinates, error) {
	if req.Start != nil {
		return domain.Coordinates{Lat: req.Start.Lat, Lon: req.Start.Lon}, nil
	}

	addr := strings.TrimSpace(req.StartAddress)
	if addr == "" {
		addr = strings.TrimSpace(h.DefaultStart)
	}
	if addr == "" {
		return domain.Coordinates{}, fmt.Errorf("%w: start or start_address is required", domain.ErrInvalidInput)
	}
	if h.Resolver == nil {
		return domain.Coordinates{}, fmt.Errorf("%w: address lookup is not configured, send start coordinates", domain.ErrInvalidInput)
	}

	return h.Resolver.Resolve(ctx, addr)
}

func toDay(req dto.OptimizeRequest) *domain.Day {
	day := &domain.Day{
		Date:      req.Date,
		StartTime: req.StartTime,
		Stops:     make([]domain.Stop, 0, len(req.Stops)),
	}
	if req.Start != nil {
		day.Start = &domain.Coordinates{Lat: req.Start.Lat, Lon: req.Start.Lon}
	}

	for i, s := range req.Stops {
		stop := domain.Stop{
			ID:            s.ID,
			Name:          s.Name,
			Address:       s.Address,
			Category:      domain.Category(s.Category),
			FixedTime:     s.FixedTime,
			VisitDuration: time.Duration(s.VisitMinutes) * time.Minute,
			Order:         i,
		}
		if stop.Category == "" {
			stop.Category = domain.CategoryOther
		}
		if s.Coordinates != nil {
			stop.Coordinates = &domain.Coordinates{Lat: s.Coordinates.Lat, Lon: s.Coordinates.Lon}
		}
		if s.Order != nil {
			stop.Order = *s.Order
		}
		day.Stops = append(day.Stops, stop)
	}

	return day
}

func toResponse(res *domain.OptimizationResult) dto.OptimizeResponse {
	out := dto.OptimizeResponse{
		RunID:                      res.RunID,
		OriginalOrder:              res.OriginalOrder,
		ProposedOrder:              make([]dto.StopResponse, 0, len(res.ProposedOrder)),
		TotalDistanceBeforeMeters:  res.TotalDistanceBefore,
		TotalDistanceAfterMeters:   res.TotalDistanceAfter,
		TotalDurationBeforeSeconds: res.TotalDurationBefore.Seconds(),
		TotalDurationAfterSeconds:  res.TotalDurationAfter.Seconds(),
		MealSuggestions:            make([]dto.MealSuggestionResponse, 0, len(res.MealSuggestions)),
		Violations:                 make([]dto.ViolationResponse, 0, len(res.Violations)),
		DegradedPairs:              make([]dto.DegradedPairResponse, 0, len(res.DegradedPairs)),
		Unresolved:                 res.Unresolved,
		Degraded:                   res.Degraded,
	}

	for _, s := range res.ProposedOrder {
		sr := dto.StopResponse{
			ID:           s.ID,
			Name:         s.Name,
			Address:      s.Address,
			Category:     string(s.Category),
			FixedTime:    s.FixedTime,
			VisitMinutes: int(s.VisitDuration / time.Minute),
			Order:        s.Order,
		}
		if s.Coordinates != nil {
			sr.Coordinates = &dto.Coordinates{Lat: s.Coordinates.Lat, Lon: s.Coordinates.Lon}
		}
		out.ProposedOrder = append(out.ProposedOrder, sr)
	}

	for _, m := range res.MealSuggestions {
		out.MealSuggestions = append(out.MealSuggestions, dto.MealSuggestionResponse{
			Index:          m.Index,
			ElapsedMinutes: m.ElapsedSinceLastMeal.Minutes(),
		})
	}

	for _, v := range res.Violations {
		out.Violations = append(out.Violations, dto.ViolationResponse{
			Kind:            string(v.Kind),
			StopID:          v.StopID,
			OtherID:         v.OtherID,
			LatenessMinutes: v.Lateness.Minutes(),
		})
	}

	for _, p := range res.DegradedPairs {
		out.DegradedPairs = append(out.DegradedPairs, dto.DegradedPairResponse{
			From:   dto.Coordinates{Lat: p.From.Lat, Lon: p.From.Lon},
			To:     dto.Coordinates{Lat: p.To.Lat, Lon: p.To.Lon},
			Reason: string(p.Reason),
		})
	}

	return out
}
