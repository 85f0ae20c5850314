package domain

// StopID is the dense, append-only index of a stop inside its catalogue.
// Every cross-reference (bus routes, distance keys, graph vertices, snapshot
// records) goes through this index rather than through names or pointers.
type StopID int

// Represents a single named transit stop.
// A Stop is created once during the bulk-load phase and never moved or deleted.
type Stop struct {
	ID          StopID
	Name        string
	Coordinates Coordinates
}
