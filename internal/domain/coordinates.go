package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid reports whether the coordinates are finite and inside WGS84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Key renders the coordinates rounded to 5 decimal places (~1m), so nearby
// float noise maps onto the same cache entry.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.5f,%.5f", roundCoord(c.Lat), roundCoord(c.Lon))
}

// SamePoint reports whether both coordinates share a cache key.
func (c Coordinates) SamePoint(other Coordinates) bool {
	return c.Key() == other.Key()
}

func roundCoord(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// RouteKey identifies a directional coordinate pair. A->B and B->A are
// distinct keys since a road network may be asymmetric (one-way streets).
func RouteKey(from, to Coordinates) string {
	return from.Key() + "->" + to.Key()
}
