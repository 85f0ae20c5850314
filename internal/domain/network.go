package domain

// StopDefinition is the raw input for a stop as supplied by a network source.
// RoadDistances maps a neighbour stop name to the road distance in meters
// from this stop to that neighbour.
type StopDefinition struct {
	Name          string
	Coordinates   Coordinates
	RoadDistances map[string]int
}

// BusDefinition is the raw input for a bus line. For a non-roundtrip bus Stops
// lists only the outward sequence; the catalogue appends the return leg.
type BusDefinition struct {
	Name        string
	Stops       []string
	IsRoundtrip bool
}

// Network is the full set of definitions consumed by the build phase.
type Network struct {
	Stops []StopDefinition
	Buses []BusDefinition
}
