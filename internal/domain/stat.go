package domain

// Kinds of stat query.
const (
	StatBus   = "Bus"
	StatStop  = "Stop"
	StatRoute = "Route"
	StatMap   = "Map"
)

// Represents one query of a stat batch.
// Bus and Stop use Name, Route uses From and To, Map takes no arguments.
type StatRequest struct {
	ID   int
	Type string
	Name string
	From string
	To   string
}
