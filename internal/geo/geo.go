// Package geo holds the distance and bounding-box math behind the radius
// query.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

var ErrInvalidPoint = errors.New("invalid coordinate")

type Point struct {
	Lat float64
	Lon float64
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidPoint
	}
	return nil
}

// Box is an axis-aligned latitude/longitude rectangle. When MinLon > MaxLon
// the box wraps across the antimeridian.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := lat2 - lat1
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Within reports whether b lies at most radius meters from a.
func Within(a, b Point, radius float64) bool {
	return Distance(a, b) <= radius
}

// BoundingBox returns a box containing every point within radius meters of
// center. It may include points near the corners that are farther away.
func BoundingBox(center Point, radius float64) Box {
	dLat := toDeg(radius / EarthRadiusMeters)
	box := Box{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	// A circle touching a pole covers every longitude.
	if box.MinLat == -90 || box.MaxLat == 90 {
		return box
	}
	// Widest longitude span is at the latitude farthest from the equator.
	maxAbsLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	dLon := toDeg(radius / (EarthRadiusMeters * math.Cos(toRad(maxAbsLat))))
	if dLon >= 180 {
		return box
	}
	box.MinLon = normalizeLon(center.Lon - dLon)
	box.MaxLon = normalizeLon(center.Lon + dLon)
	return box
}

// Wraps reports whether the box crosses the antimeridian.
func (b Box) Wraps() bool {
	return b.MinLon > b.MaxLon
}

func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.Wraps() {
		return p.Lon >= b.MinLon || p.Lon <= b.MaxLon
	}
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }
