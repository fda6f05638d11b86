package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is a finite coordinate inside latitude range.
func (p GeoPoint) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		!math.IsInf(p.Lat, 0) && !math.IsInf(p.Lon, 0) &&
		p.Lat >= -90 && p.Lat <= 90
}

// Bounds represents a geographic bounding box.
// East may be numerically smaller than West when the box crosses the antimeridian
// the way the map widget reports it; the core passes it through untouched.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Center returns the arithmetic center of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.North + b.South) / 2, Lon: (b.East + b.West) / 2}
}

// IsZero reports whether no extent has been recorded.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Validate checks the box is usable as a query.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounds contain a non-finite coordinate")
		}
	}
	if b.North > 90 || b.South < -90 {
		return fmt.Errorf("latitude must be within -90..90")
	}
	if b.North < b.South {
		return fmt.Errorf("north (%.6f) must not be below south (%.6f)", b.North, b.South)
	}
	return nil
}
