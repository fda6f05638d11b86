package ports

import "github.com/samirrijal/landmarkmap/internal/core/domain"

// MapWidget is the rendering layer as seen by the core. Calls are made from a
// single goroutine; commands issued between two Flush calls must become
// visible together.
type MapWidget interface {
	SetView(center domain.GeoPoint, zoom int)
	FitBounds(b domain.Bounds)
	AddMarker(m domain.MarkerVisual)
	RemoveMarker(id string)
	Flush() error
}

// StatusSurface is the loading indicator and error banner.
type StatusSurface interface {
	SetLoading(visible bool)
	ShowError(message string)
	ClearError()
}
