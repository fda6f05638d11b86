package geospatial

import (
	"math"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / metersPerDegreeLat
	cos := math.Cos(toRad(center.Lat))
	lonDelta := 180.0
	if cos > 1e-9 {
		lonDelta = math.Min(radiusMeters/(metersPerDegreeLat*cos), 180)
	}

	return domain.Bounds{
		North: math.Min(center.Lat+latDelta, 90),
		South: math.Max(center.Lat-latDelta, -90),
		East:  center.Lon + lonDelta,
		West:  center.Lon - lonDelta,
	}
}

// Midpoint is the arithmetic mean of two coordinates. It is not the geodesic
// midpoint; the initial locate view is defined by this approximation.
func Midpoint(a, b domain.GeoPoint) domain.GeoPoint {
	return domain.GeoPoint{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
}

// Enclose returns the smallest box containing every point. ok is false for no points.
func Enclose(points []domain.GeoPoint) (b domain.Bounds, ok bool) {
	if len(points) == 0 {
		return domain.Bounds{}, false
	}
	b = domain.Bounds{North: points[0].Lat, South: points[0].Lat, East: points[0].Lon, West: points[0].Lon}
	for _, p := range points[1:] {
		b.North = math.Max(b.North, p.Lat)
		b.South = math.Min(b.South, p.Lat)
		b.East = math.Max(b.East, p.Lon)
		b.West = math.Min(b.West, p.Lon)
	}
	return b, true
}

// Recenter moves b so that it is centered on c, scaling its span by the zoom
// change (each zoom level halves the visible span).
func Recenter(b domain.Bounds, c domain.GeoPoint, fromZoom, toZoom int) domain.Bounds {
	scale := math.Pow(2, float64(fromZoom-toZoom))
	halfLat := (b.North - b.South) / 2 * scale
	halfLon := (b.East - b.West) / 2 * scale

	return domain.Bounds{
		North: math.Min(c.Lat+halfLat, 90),
		South: math.Max(c.Lat-halfLat, -90),
		East:  c.Lon + halfLon,
		West:  c.Lon - halfLon,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
