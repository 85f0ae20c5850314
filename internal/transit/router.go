package transit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/graph"
)

// ErrNoRoute reports that both stops exist but no itinerary connects them.
var ErrNoRoute = errors.New("no route")

// VertexRole tells which of a stop's two graph vertices is meant.
type VertexRole int

const (
	// Arrival is reached by riding a bus to the stop (or by standing at it).
	Arrival VertexRole = iota
	// Departure is reached after waiting bus_wait_time minutes at the stop.
	Departure
)

// Vertex identifies a graph vertex by stop and role.
// Every stop owns exactly one Arrival and one Departure vertex.
type Vertex struct {
	Stop domain.StopID
	Role VertexRole
}

func (v Vertex) ID() graph.VertexID {
	return graph.VertexID(int(v.Stop)*2 + int(v.Role))
}

func VertexOf(id graph.VertexID) Vertex {
	return Vertex{Stop: domain.StopID(id / 2), Role: VertexRole(id % 2)}
}

// EdgeInfo is the rider-facing meaning of a graph edge.
// Wait edges carry the stop; ride edges carry the bus and the number of hops.
type EdgeInfo struct {
	Kind      domain.SegmentKind
	Stop      domain.StopID
	Bus       domain.BusID
	SpanCount int
}

// EdgeRecord pairs a graph edge with its meaning, in EdgeID order.
type EdgeRecord struct {
	Edge graph.Edge
	Info EdgeInfo
}

// TransportRouter turns a catalogue into a wait/ride graph, owns the
// precomputed all-pairs table over it and reconstructs itineraries.
type TransportRouter struct {
	settings  Settings
	catalogue *catalogue.Catalogue
	graph     *graph.DirectedWeightedGraph
	edges     []EdgeInfo
	router    *graph.Router
}

// Build constructs the routing graph for cat and runs the all-pairs
// precomputation. The catalogue must not change afterwards.
func Build(ctx context.Context, cat *catalogue.Catalogue, settings Settings, workers int) (*TransportRouter, error) {
	if cat == nil {
		return nil, errors.New("build router: catalogue is nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	tr := &TransportRouter{
		settings:  settings,
		catalogue: cat,
		graph:     graph.NewDirectedWeightedGraph(2 * cat.StopCount()),
	}

	for _, stop := range cat.GetStops() {
		err := tr.addEdge(graph.Edge{
			From:   Vertex{Stop: stop.ID, Role: Arrival}.ID(),
			To:     Vertex{Stop: stop.ID, Role: Departure}.ID(),
			Weight: float64(settings.BusWaitTime),
		}, EdgeInfo{Kind: domain.SegmentWait, Stop: stop.ID, Bus: domain.NoBus})
		if err != nil {
			return nil, fmt.Errorf("build router: wait edge for stop %q: %w", stop.Name, err)
		}
	}

	for _, bus := range cat.GetRoutes() {
		if err := tr.addBusEdges(bus); err != nil {
			return nil, fmt.Errorf("build router: bus %q: %w", bus.Name, err)
		}
	}

	r, err := graph.NewRouter(ctx, tr.graph, workers)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	tr.router = r

	return tr, nil
}

// addBusEdges adds one ride edge per (board, alight) position pair i < c.
//
// Distance and hop count are accumulated from position i until the stop found
// at position c is met again, which may happen before c itself on routes that
// revisit a stop. This keeps a ride from being counted through a revisited stop.
func (tr *TransportRouter) addBusEdges(bus *domain.Bus) error {
	route := bus.Route
	for i := 0; i < len(route); i++ {
		for c := i + 1; c < len(route); c++ {
			meters := 0
			spans := 0
			for b := i; b < len(route); b++ {
				if route[b] == route[c] {
					break
				}
				meters += tr.catalogue.GetStopDistance(route[b], route[b+1])
				spans++
			}

			err := tr.addEdge(graph.Edge{
				From:   Vertex{Stop: route[i], Role: Departure}.ID(),
				To:     Vertex{Stop: route[c], Role: Arrival}.ID(),
				Weight: tr.settings.rideMinutes(meters),
			}, EdgeInfo{Kind: domain.SegmentRide, Stop: route[i], Bus: bus.ID, SpanCount: spans})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (tr *TransportRouter) addEdge(e graph.Edge, info EdgeInfo) error {
	if _, err := tr.graph.AddEdge(e); err != nil {
		return err
	}
	tr.edges = append(tr.edges, info)
	return nil
}

// Restore rebuilds a router from persisted edges and a persisted all-pairs
// table. Edge order is preserved so predecessor edge IDs stay valid; nothing is
// recomputed.
func Restore(cat *catalogue.Catalogue, settings Settings, vertexCount int, records []EdgeRecord, table []graph.Entry) (*TransportRouter, error) {
	if cat == nil {
		return nil, errors.New("restore router: catalogue is nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("restore router: %w", err)
	}
	if vertexCount != 2*cat.StopCount() {
		return nil, fmt.Errorf("restore router: %d vertices for %d stops", vertexCount, cat.StopCount())
	}

	tr := &TransportRouter{
		settings:  settings,
		catalogue: cat,
		graph:     graph.NewDirectedWeightedGraph(vertexCount),
		edges:     make([]EdgeInfo, 0, len(records)),
	}

	for i, rec := range records {
		if err := tr.checkRecord(rec); err != nil {
			return nil, fmt.Errorf("restore router: edge %d: %w", i, err)
		}
		if err := tr.addEdge(rec.Edge, rec.Info); err != nil {
			return nil, fmt.Errorf("restore router: edge %d: %w", i, err)
		}
	}

	r, err := graph.RestoreRouter(tr.graph, table)
	if err != nil {
		return nil, fmt.Errorf("restore router: %w", err)
	}
	tr.router = r

	return tr, nil
}

func (tr *TransportRouter) checkRecord(rec EdgeRecord) error {
	from, to := VertexOf(rec.Edge.From), VertexOf(rec.Edge.To)
	switch rec.Info.Kind {
	case domain.SegmentWait:
		if from.Role != Arrival || to.Role != Departure || from.Stop != to.Stop || rec.Info.Stop != from.Stop {
			return errors.New("wait edge must link arrival and departure of one stop")
		}
		if rec.Edge.Weight != float64(tr.settings.BusWaitTime) {
			return fmt.Errorf("wait edge weighs %v, bus_wait_time is %d", rec.Edge.Weight, tr.settings.BusWaitTime)
		}
	case domain.SegmentRide:
		bus, ok := tr.catalogue.Bus(rec.Info.Bus)
		if !ok {
			return fmt.Errorf("ride edge references bus id %d: %w", rec.Info.Bus, catalogue.ErrBusNotFound)
		}
		if from.Role != Departure || to.Role != Arrival {
			return errors.New("ride edge must link a departure to an arrival")
		}
		if !boardsBefore(bus.Route, from.Stop, to.Stop) {
			return fmt.Errorf("ride edge %d -> %d is not a ride on bus %q", from.Stop, to.Stop, bus.Name)
		}
		if rec.Info.SpanCount < 0 || rec.Info.SpanCount >= len(bus.Route) {
			return fmt.Errorf("ride edge spans %d stops on a %d stop route", rec.Info.SpanCount, len(bus.Route))
		}
	default:
		return fmt.Errorf("unknown edge kind %d", rec.Info.Kind)
	}
	return nil
}

// boardsBefore reports whether route visits board at some position before alight.
func boardsBefore(route []domain.StopID, board, alight domain.StopID) bool {
	for i, id := range route {
		if id == board {
			return slices.Contains(route[i+1:], alight)
		}
	}
	return false
}

// BuildItinerary returns the minimal-time itinerary between two named stops.
//
// The search starts at the arrival vertex of from, so the itinerary opens with
// the wait for the first bus, and ends at the arrival vertex of to.
// Unknown stops yield catalogue.ErrStopNotFound; unconnected stops yield ErrNoRoute.
func (tr *TransportRouter) BuildItinerary(from, to string) (domain.Itinerary, error) {
	src, ok := tr.catalogue.FindStop(from)
	if !ok {
		return domain.Itinerary{}, fmt.Errorf("build itinerary: from %q: %w", from, catalogue.ErrStopNotFound)
	}
	dst, ok := tr.catalogue.FindStop(to)
	if !ok {
		return domain.Itinerary{}, fmt.Errorf("build itinerary: to %q: %w", to, catalogue.ErrStopNotFound)
	}

	route, ok := tr.router.BuildRoute(
		Vertex{Stop: src.ID, Role: Arrival}.ID(),
		Vertex{Stop: dst.ID, Role: Arrival}.ID(),
	)
	if !ok {
		return domain.Itinerary{}, fmt.Errorf("build itinerary: %q -> %q: %w", from, to, ErrNoRoute)
	}

	it := domain.Itinerary{Segments: make([]domain.Segment, 0, len(route.Edges))}
	for _, id := range route.Edges {
		edge := tr.graph.Edge(id)
		info := tr.edges[id]

		seg := domain.Segment{Kind: info.Kind, Time: edge.Weight}
		switch info.Kind {
		case domain.SegmentWait:
			stop, _ := tr.catalogue.Stop(VertexOf(edge.To).Stop)
			seg.StopName = stop.Name
		case domain.SegmentRide:
			bus, _ := tr.catalogue.Bus(info.Bus)
			seg.BusName = bus.Name
			seg.SpanCount = info.SpanCount
		}

		it.Segments = append(it.Segments, seg)
		it.TotalTime += seg.Time
	}

	return it, nil
}

func (tr *TransportRouter) Settings() Settings { return tr.settings }

func (tr *TransportRouter) Catalogue() *catalogue.Catalogue { return tr.catalogue }

func (tr *TransportRouter) Graph() *graph.DirectedWeightedGraph { return tr.graph }

func (tr *TransportRouter) Router() *graph.Router { return tr.router }

// EdgeInfo returns the meaning of one graph edge.
func (tr *TransportRouter) EdgeInfo(id graph.EdgeID) EdgeInfo { return tr.edges[id] }

// Edges returns every graph edge with its meaning, in EdgeID order.
func (tr *TransportRouter) Edges() []EdgeRecord {
	out := make([]EdgeRecord, len(tr.edges))
	for i, info := range tr.edges {
		out[i] = EdgeRecord{Edge: tr.graph.Edge(graph.EdgeID(i)), Info: info}
	}
	return out
}
