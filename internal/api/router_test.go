package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"trip-route-engine/internal/adapters/cache"
	"trip-route-engine/internal/adapters/distance"
	"trip-route-engine/internal/api/dto"
	"trip-route-engine/internal/api/handlers"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/services"

	"github.com/stretchr/testify/require"
)

type fixedResolver map[string]domain.Coordinates

func (f fixedResolver) Resolve(ctx context.Context, text string) (domain.Coordinates, error) {
	c, ok := f[text]
	if !ok {
		return domain.Coordinates{}, domain.ErrGeocodeNotFound
	}
	return c, nil
}

type testServer struct {
	handler http.Handler
	routes  *cache.RouteCache
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	cfg := domain.DefaultOptimizationConfig()
	routes := cache.NewRouteCache(cfg.RouteCacheCapacity, cfg.RouteCacheTTL())
	coords := cache.NewCoordinateCache(cfg.CoordinateCacheCapacity, cfg.CoordinateCacheTTL(), nil, nil)
	resolver := fixedResolver{"hotel": {Lat: 0, Lon: 0}}

	opt := services.NewRouteOptimizer(
		services.NewRouteLookup(routes, nil, distance.NewPlanarMockProvider()),
		services.WithCoordinateResolver(resolver),
	)

	h := NewRouter(Deps{
		Optimize: &handlers.OptimizeHandler{Optimizer: opt, Config: cfg, Resolver: resolver},
		Caches:   &handlers.CacheHandler{Routes: routes, Coordinates: coords},
	})
	return testServer{handler: h, routes: routes}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","route_cache_entries":0,"coordinate_cache_entries":0}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestOptimizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{
		"date":          "2026-06-01T00:00:00Z",
		"start_address": "hotel",
		"stops": []map[string]any{
			{"id": "far", "name": "Far", "coordinates": map[string]float64{"lat": 5, "lon": 0}, "visit_minutes": 60},
			{"id": "near", "name": "Near", "coordinates": map[string]float64{"lat": 1, "lon": 0}, "visit_minutes": 30},
			{"id": "dinner", "name": "Dinner", "category": "meal",
				"coordinates": map[string]float64{"lat": 9, "lon": 0}, "fixed_time": "2026-06-01T19:00:00Z"},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/v1/optimize", string(raw))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res dto.OptimizeResponse
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&res))

	require.Equal(t, []string{"far", "near", "dinner"}, res.OriginalOrder)

	got := make([]string, 0, len(res.ProposedOrder))
	for i, stop := range res.ProposedOrder {
		require.Equal(t, i, stop.Order)
		got = append(got, stop.ID)
	}
	require.Equal(t, []string{"near", "far", "dinner"}, got)
	require.InDelta(t, 9000, res.TotalDistanceAfterMeters, 1e-6)
	require.Greater(t, res.TotalDistanceBeforeMeters, res.TotalDistanceAfterMeters)
	require.False(t, res.Degraded)
	require.NotEmpty(t, res.RunID)
	require.Positive(t, s.routes.Len())
}

func TestOptimizeEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{name: "wrong method", method: http.MethodGet, status: http.StatusMethodNotAllowed},
		{name: "malformed json", method: http.MethodPost, body: `{"stops":`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, body: `{"bogus":1}`, status: http.StatusBadRequest},
		{name: "two objects", method: http.MethodPost, body: `{} {}`, status: http.StatusBadRequest},
		{name: "missing start", method: http.MethodPost, body: `{"stops":[]}`, status: http.StatusBadRequest},
		{name: "unknown start address", method: http.MethodPost, body: `{"start_address":"moon","stops":[]}`, status: http.StatusBadRequest},
		{
			name:   "duplicate stop ids",
			method: http.MethodPost,
			body:   `{"start":{"lat":0,"lon":0},"stops":[{"id":"a","name":"A"},{"id":"a","name":"B"}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid options",
			method: http.MethodPost,
			body:   `{"start":{"lat":0,"lon":0},"stops":[],"options":{"segment_assignment":"random"}}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, "/v1/optimize", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var e map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			require.NotEmpty(t, e["error"])
			require.Equal(t, rec.Header().Get("X-Request-ID"), e["request_id"])
		})
	}
}

func TestClearCaches(t *testing.T) {
	s := newTestServer(t)
	s.routes.Put(domain.Coordinates{Lat: 0, Lon: 0}, domain.Coordinates{Lat: 1, Lon: 1}, domain.DistanceResult{DistanceMeters: 1})

	rec := s.do(t, http.MethodPost, "/v1/caches", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/caches", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.ClearCachesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.RoutesCleared)
	require.False(t, res.StoreCleared)
	require.Zero(t, s.routes.Len())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/health", "")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
	require.Contains(t, rec.Body.String(), `path="/health"`)
}
