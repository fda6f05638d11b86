package ports

import (
	"context"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

// LandmarkSource queries the remote landmark catalog.
type LandmarkSource interface {
	Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error)
}

// Geocoder resolves free text to a coordinate. An empty result is domain.ErrNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (domain.GeoPoint, error)
}

// PositionProvider is a one-shot "get current position" capability.
// Absent or denied capability is reported as domain.ErrGeolocationUnavailable.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (domain.GeoPoint, error)
}

// EventPublisher publishes widget activity to a message broker.
type EventPublisher interface {
	PublishFetchResolved(ctx context.Context, event *domain.FetchEvent) error
	PublishSearch(ctx context.Context, event *domain.SearchEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
