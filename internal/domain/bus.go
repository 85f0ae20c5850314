package domain

// BusID is the dense, append-only index of a bus inside its catalogue.
type BusID int

// NoBus marks the absence of a bus reference (e.g. on wait edges).
const NoBus BusID = -1

// Represents a bus line and its fully expanded stop sequence.
//
// Route is always the forward path a rider can travel: for a non-roundtrip bus
// it already contains the return leg (outward stops, then all but the last in
// reverse), so no consumer needs to traverse it backwards.
// UniqueStops holds each stop of Route once, ordered by StopID.
type Bus struct {
	ID          BusID
	Name        string
	Route       []StopID
	UniqueStops []StopID
	IsRoundtrip bool
}

// Derived statistics for a bus route.
// RouteLength is the sum of directed road distances in meters; Curvature is
// RouteLength divided by the great-circle length of the same route.
type RouteStats struct {
	RouteLength int
	Curvature   float64
}
