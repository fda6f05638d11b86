package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/pkg/metrics"
)

// GeocodeService adds read-through caching to a Geocoder.
type GeocodeService struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
	ttl      int
}

// NewGeocodeService creates a GeocodeService. cache may be nil.
func NewGeocodeService(geocoder ports.Geocoder, cache ports.CacheService, ttlSeconds int) *GeocodeService {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return &GeocodeService{geocoder: geocoder, cache: cache, ttl: ttlSeconds}
}

// Geocode resolves text to a coordinate. Only successful lookups are cached.
func (s *GeocodeService) Geocode(ctx context.Context, text string) (domain.GeoPoint, error) {
	norm := normalizeSearch(text)
	if norm == "" {
		return domain.GeoPoint{}, domain.ErrEmptyQuery
	}

	// Try cache
	cacheKey := "geocode:" + norm
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var p domain.GeoPoint
			if err := json.Unmarshal(data, &p); err == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				metrics.GeocodeRequests.WithLabelValues("cached").Inc()
				return p, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	p, err := s.geocoder.Geocode(ctx, strings.TrimSpace(text))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.GeoPoint{}, err
	case err != nil:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeoPoint{}, err
	}
	metrics.GeocodeRequests.WithLabelValues("found").Inc()

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}

	return p, nil
}

// normalizeSearch lower-cases text and collapses whitespace.
func normalizeSearch(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
