package domain

import "math"

// Mean Earth radius used by the great-circle formula, in meters.
const EarthRadiusMeters = 6371000.0

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// ComputeDistance returns the great-circle distance in meters between two points
// using the spherical law of cosines. It only feeds the curvature statistic.
func ComputeDistance(from, to Coordinates) float64 {
	if from == to {
		return 0
	}

	const dr = math.Pi / 180.0
	cos := math.Sin(from.Lat*dr)*math.Sin(to.Lat*dr) +
		math.Cos(from.Lat*dr)*math.Cos(to.Lat*dr)*math.Cos(math.Abs(from.Lng-to.Lng)*dr)

	// Rounding can push nearly-identical points slightly outside acos' domain.
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * EarthRadiusMeters
}
