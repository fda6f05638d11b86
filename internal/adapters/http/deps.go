package http

import (
	"time"

	natsadapter "github.com/samirrijal/landmarkmap/internal/adapters/nats"
	"github.com/samirrijal/landmarkmap/internal/adapters/valkey"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers and widget sessions.
type Dependencies struct {
	// Catalog backs /get_landmarks and /graphql.
	Catalog *usecases.CatalogService

	// Landmarks, Geocoder and Publisher are shared by every widget session.
	Landmarks ports.LandmarkSource
	Geocoder  ports.Geocoder
	Publisher ports.EventPublisher
	// Positions overrides browser geolocation when set (host positioning).
	Positions ports.PositionProvider

	// Map is the template for each session's coordinator options.
	Map             usecases.Options
	PositionTimeout time.Duration

	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string

	NATS  *natsadapter.Publisher
	Cache *valkey.Cache
}
