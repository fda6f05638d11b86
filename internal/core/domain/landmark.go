package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Landmark is a single entry of the remote landmark catalog.
// Markers are keyed by position in a fetch result; two landmarks with the same
// coordinates and title are indistinguishable to the marker store.
type Landmark struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Category Category `json:"category"`
}

// UnmarshalJSON resolves an absent category to Other; present values go
// through Category.UnmarshalJSON.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	type plain Landmark
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Category = ParseCategory(string(p.Category))
	*l = Landmark(p)
	return nil
}

// Location returns the landmark's coordinate.
func (l Landmark) Location() GeoPoint {
	return GeoPoint{Lat: l.Lat, Lon: l.Lon}
}

// QueryKind discriminates the two viewport query variants.
type QueryKind string

const (
	QueryBounds QueryKind = "bounds"
	QueryPoint  QueryKind = "point"
)

// PointQuery asks for landmarks around a searched location.
type PointQuery struct {
	Location   GeoPoint `json:"location"`
	SearchText string   `json:"search"`
}

// ViewportQuery is either a bounding box or a point query. Exactly one variant
// is active, selected by Kind.
type ViewportQuery struct {
	Kind   QueryKind  `json:"kind"`
	Bounds Bounds     `json:"bounds,omitempty"`
	Point  PointQuery `json:"point,omitempty"`
}

// BoundsQuery builds a bounding-box query.
func BoundsQuery(b Bounds) ViewportQuery {
	return ViewportQuery{Kind: QueryBounds, Bounds: b}
}

// NearQuery builds a point query carrying the user's search text.
func NearQuery(p GeoPoint, searchText string) ViewportQuery {
	return ViewportQuery{Kind: QueryPoint, Point: PointQuery{Location: p, SearchText: searchText}}
}

// Validate checks that the active variant carries usable coordinates.
func (q ViewportQuery) Validate() error {
	switch q.Kind {
	case QueryBounds:
		return q.Bounds.Validate()
	case QueryPoint:
		if !q.Point.Location.Valid() {
			return fmt.Errorf("invalid point %.6f,%.6f", q.Point.Location.Lat, q.Point.Location.Lon)
		}
		return nil
	default:
		return fmt.Errorf("unknown query kind %q", q.Kind)
	}
}

func (q ViewportQuery) String() string {
	if q.Kind == QueryPoint {
		return fmt.Sprintf("point(%.4f,%.4f %q)", q.Point.Location.Lat, q.Point.Location.Lon, strings.TrimSpace(q.Point.SearchText))
	}
	return fmt.Sprintf("bounds(n=%.4f s=%.4f e=%.4f w=%.4f)", q.Bounds.North, q.Bounds.South, q.Bounds.East, q.Bounds.West)
}

// FetchRequest is one landmark query tagged with its issue order.
type FetchRequest struct {
	Sequence uint64        `json:"sequence"`
	Query    ViewportQuery `json:"query"`
}

// MarkerVisual is the rendering-side handle of a marker. ID is opaque to the
// rendering layer and stable for the lifetime of the marker.
type MarkerVisual struct {
	ID       string   `json:"id"`
	Location GeoPoint `json:"location"`
	Title    string   `json:"title"`
	Popup    string   `json:"popup,omitempty"`
	Glyph    string   `json:"glyph"`
	Color    string   `json:"color"`
}
