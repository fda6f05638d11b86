package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a geocoding lookup yields no result.
	ErrNotFound = errors.New("location not found")
	// ErrGeolocationUnavailable covers absent, denied or timed-out positioning.
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	// ErrEmptyQuery is returned for blank search text; nothing is submitted.
	ErrEmptyQuery = errors.New("search query must not be empty")
	// ErrNetworkFailure is the kind matched by every *FetchFailure.
	ErrNetworkFailure = errors.New("network failure")
	// ErrClosed is returned when a widget instance has been shut down.
	ErrClosed = errors.New("widget closed")
	// ErrCacheMiss is returned by cache adapters for absent keys.
	ErrCacheMiss = errors.New("cache miss")
)

// Operations a FetchFailure can belong to.
const (
	OpLandmarks = "landmarks"
	OpGeocode   = "geocode"
)

// FetchFailure describes a failed landmark or geocoding request: transport error
// or non-success HTTP status. Op is OpLandmarks when empty.
type FetchFailure struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (f *FetchFailure) Error() string {
	switch {
	case f.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", f.Message, f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	default:
		return f.Message
	}
}

func (f *FetchFailure) Unwrap() error { return f.Err }

// Is lets errors.Is(err, ErrNetworkFailure) match any FetchFailure.
func (f *FetchFailure) Is(target error) bool { return target == ErrNetworkFailure }

// UserMessage returns the banner text for err. Stale discards never reach here.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Location not found. Try a different search."
	case isGeocodeFailure(err):
		return "Location not found. The search service could not be reached, please try again."
	case errors.Is(err, ErrGeolocationUnavailable):
		return "Unable to determine your location."
	case errors.Is(err, ErrNetworkFailure):
		return "Could not load landmarks. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func isGeocodeFailure(err error) bool {
	var ff *FetchFailure
	return errors.As(err, &ff) && ff.Op == OpGeocode
}
