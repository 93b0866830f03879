// Package geo computes great-circle distances between delivery coordinates
// and stores.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Distance returns the haversine great-circle distance between a and b in
// kilometers. Pure and deterministic; zero-distance and antipodal inputs are
// safe because the central angle argument is clamped into [0, 1] before the
// square root.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Floating point error can push h a hair outside [0, 1] for antipodal
	// points; clamp so Asin never sees an invalid argument.
	if h > 1 {
		h = 1
	}
	if h < 0 {
		h = 0
	}

	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
