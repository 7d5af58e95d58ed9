package domain

import "errors"

var (
	// ErrInvalidInput marks structurally invalid optimization input. It is the
	// only failure kind surfaced to callers as a hard error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeocodeNotFound is returned by geocoders when free text resolves to nothing.
	ErrGeocodeNotFound = errors.New("geocode: location not found")

	// ErrProviderTimeout is returned when a distance lookup exceeds its timeout.
	ErrProviderTimeout = errors.New("distance provider: timeout")

	// ErrProviderUnavailable is returned for any other distance lookup failure.
	ErrProviderUnavailable = errors.New("distance provider: unavailable")
)
