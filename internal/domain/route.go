package domain

// Kind of an itinerary segment.
type SegmentKind int

const (
	// Waiting at a stop for the next bus.
	SegmentWait SegmentKind = iota
	// Riding one bus for SpanCount stop-to-stop hops without alighting.
	SegmentRide
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentWait:
		return "Wait"
	case SegmentRide:
		return "Bus"
	default:
		return "Unknown"
	}
}

// Represents a single step of an itinerary.
// Wait segments carry StopName; ride segments carry BusName and SpanCount.
// Time is expressed in minutes.
type Segment struct {
	Kind      SegmentKind
	StopName  string
	BusName   string
	SpanCount int
	Time      float64
}

// Represents the minimal-time itinerary between two stops.
// TotalTime is the sum of all segment times, in minutes.
type Itinerary struct {
	Segments  []Segment
	TotalTime float64
}
