package usecases

import (
	"sync"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/pkg/geospatial"
)

// Viewport tracks the map's visible region as last reported by the rendering
// layer, or as last set by the core when it re-centers the map.
type Viewport struct {
	mu       sync.RWMutex
	bounds   domain.Bounds
	center   domain.GeoPoint
	zoom     int
	radius   float64
	handlers []func(domain.Bounds)
}

// NewViewport creates a viewport centered on center. Until the rendering layer
// reports an extent, CurrentBounds is a box of fallbackRadius meters around the
// center.
func NewViewport(center domain.GeoPoint, zoom int, fallbackRadius float64) *Viewport {
	return &Viewport{center: center, zoom: zoom, radius: fallbackRadius}
}

// CurrentBounds returns the current extent.
func (v *Viewport) CurrentBounds() domain.Bounds {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.bounds.IsZero() {
		return geospatial.BoundingBox(v.center, v.radius)
	}
	return v.bounds
}

// Center returns the current center and zoom.
func (v *Viewport) Center() (domain.GeoPoint, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.center, v.zoom
}

// OnViewportSettled registers h to run after every settle.
func (v *Viewport) OnViewportSettled(h func(domain.Bounds)) {
	v.mu.Lock()
	v.handlers = append(v.handlers, h)
	v.mu.Unlock()
}

// Settle records the extent the map came to rest at and notifies handlers.
// Handlers run on the caller's goroutine, outside the lock.
func (v *Viewport) Settle(b domain.Bounds, zoom int) {
	v.mu.Lock()
	v.bounds = b
	v.center = b.Center()
	if zoom > 0 {
		v.zoom = zoom
	}
	handlers := make([]func(domain.Bounds), len(v.handlers))
	copy(handlers, v.handlers)
	v.mu.Unlock()

	for _, h := range handlers {
		h(b)
	}
}

// Recenter moves the intended region to center at zoom without notifying
// handlers. A known extent is shifted and scaled; otherwise the fallback box is used.
func (v *Viewport) Recenter(center domain.GeoPoint, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.bounds.IsZero() {
		v.bounds = geospatial.Recenter(v.bounds, center, v.zoom, zoom)
	}
	v.center = center
	v.zoom = zoom
}
