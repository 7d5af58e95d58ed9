package handlers

import "net/http"

// HealthHandler is a liveness check that also reports cache occupancy.
// Either cache may be nil.
type HealthHandler struct {
	Routes      Clearable
	Coordinates Clearable
}

type healthResponse struct {
	Status            string `json:"status"`
	RouteEntries      int    `json:"route_cache_entries"`
	CoordinateEntries int    `json:"coordinate_cache_entries"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := healthResponse{Status: "ok"}
	if h.Routes != nil {
		res.RouteEntries = h.Routes.Len()
	}
	if h.Coordinates != nil {
		res.CoordinateEntries = h.Coordinates.Len()
	}
	writeJSON(w, r, http.StatusOK, res)
}
