// Package geo holds coordinate types and the great-circle math used to
// cluster geotagged media.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and within range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// String formats the pair with four decimals, e.g. "37.7749, -122.4194".
// This is also the place-name fallback when reverse geocoding fails.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// Distance returns the haversine great-circle distance between a and b in miles.
func Distance(a, b Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMiles * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Centroid returns the arithmetic mean of latitudes and of longitudes.
// The second return value is false when points is empty.
func Centroid(points []Coordinates) (Coordinates, bool) {
	if len(points) == 0 {
		return Coordinates{}, false
	}

	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}

	n := float64(len(points))
	return Coordinates{Lat: sumLat / n, Lng: sumLng / n}, true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
