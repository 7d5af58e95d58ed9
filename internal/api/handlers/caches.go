package handlers

import (
	"log"
	"net/http"
	"trip-route-engine/internal/api/dto"
	"trip-route-engine/internal/ports"
)

// Clearable is an in-memory cache that can be emptied.
type Clearable interface {
	Clear()
	Len() int
}

// CacheHandler empties the route and coordinate caches. Store is optional.
type CacheHandler struct {
	Routes      Clearable
	Coordinates Clearable
	Store       ports.CacheStore
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var res dto.ClearCachesResponse

	if h.Routes != nil {
		res.RoutesCleared = h.Routes.Len()
		h.Routes.Clear()
	}
	if h.Coordinates != nil {
		res.CoordinatesCleared = h.Coordinates.Len()
		h.Coordinates.Clear()
	}

	if h.Store != nil && r.URL.Query().Get("store") == "true" {
		if err := h.Store.Clear(r.Context()); err != nil {
			log.Printf("clear cache store failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		res.StoreCleared = true
	}

	log.Printf("caches cleared: routes=%d coordinates=%d store=%t", res.RoutesCleared, res.CoordinatesCleared, res.StoreCleared)
	writeJSON(w, r, http.StatusOK, res)
}
