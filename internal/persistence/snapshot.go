// Package persistence serializes a built network (catalogue, routing settings,
// routing graph and the precomputed all-pairs table) into a single binary
// snapshot and reloads it without recomputation.
//
// The snapshot is protobuf wire format, hand-encoded with protowire:
//
//	Snapshot    { 1 version; 2 Catalogue; 3 render settings (opaque); 4 Settings; 5 Graph; 6 Table }
//	Catalogue   { 1 Stop*; 2 Bus*; 3 StopBuses*; 4 Distance* }
//	Stop        { 1 name; 2 lat; 3 lng }
//	Bus         { 1 name; 2 stop ids (packed); 3 is_roundtrip; 4 route_length; 5 curvature }
//	StopBuses   { 1 stop id; 2 bus ids (packed) }
//	Distance    { 1 from; 2 to; 3 meters }
//	Settings    { 1 bus_wait_time; 2 bus_velocity }
//	Graph       { 1 vertex_count; 2 Edge* }
//	Edge        { 1 from; 2 to; 3 weight; 4 span_count; 5 bus id (ride edges only) }
//	Table       { 1 Row* }
//	Row         { 1 states (packed); 2 weights (packed) }
//
// Stops and buses are referenced by their catalogue index everywhere. A row
// state is 0 for unreachable, 1 for the source itself and e+2 for predecessor edge e.
package persistence

import (
	"errors"
	"fmt"
	"slices"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/graph"
	"transit-route-service/internal/transit"
)

// FormatVersion is bumped whenever the field layout changes incompatibly.
const FormatVersion = 1

var (
	ErrCorruptSnapshot     = errors.New("corrupt snapshot")
	ErrUnsupportedVersion  = errors.New("unsupported snapshot version")
	errSnapshotIncomplete  = errors.New("snapshot incomplete")
	errRouterCatalogueDiff = errors.New("router was built over a different catalogue")
)

// Snapshot is everything a query process needs.
type Snapshot struct {
	Catalogue *catalogue.Catalogue
	Router    *transit.TransportRouter
	// RenderSettings is the make_base render_settings object, stored verbatim.
	// Nothing in this module reads it: map rendering is left to an external
	// renderer working from the catalogue's GetRoutes and GetStops, which is
	// why Map queries answer "map rendering is not available".
	RenderSettings []byte
}

// Encode serializes a snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil || s.Catalogue == nil || s.Router == nil {
		return nil, fmt.Errorf("encode snapshot: %w", errSnapshotIncomplete)
	}
	if s.Router.Catalogue() != s.Catalogue {
		return nil, fmt.Errorf("encode snapshot: %w", errRouterCatalogueDiff)
	}

	var b []byte
	b = appendVarintField(b, 1, FormatVersion)
	b = appendBytesField(b, 2, encodeCatalogue(s.Catalogue))
	if len(s.RenderSettings) > 0 {
		b = appendBytesField(b, 3, s.RenderSettings)
	}
	b = appendBytesField(b, 4, encodeSettings(s.Router.Settings()))
	b = appendBytesField(b, 5, encodeGraph(s.Router))
	b = appendBytesField(b, 6, encodeTable(s.Router.Router()))

	return b, nil
}

func encodeCatalogue(c *catalogue.Catalogue) []byte {
	var b []byte

	for _, s := range c.GetStops() {
		var m []byte
		m = appendStringField(m, 1, s.Name)
		m = appendFloatField(m, 2, s.Coordinates.Lat)
		m = appendFloatField(m, 3, s.Coordinates.Lng)
		b = appendBytesField(b, 1, m)
	}

	for _, bus := range c.GetRoutes() {
		var m []byte
		m = appendStringField(m, 1, bus.Name)
		m = appendPackedVarints(m, 2, toUint64s(bus.Route))
		if bus.IsRoundtrip {
			m = appendVarintField(m, 3, 1)
		}
		if stats, err := c.GetRouteStats(bus); err == nil {
			m = appendVarintField(m, 4, uint64(stats.RouteLength))
			m = appendFloatField(m, 5, stats.Curvature)
		}
		b = appendBytesField(b, 2, m)
	}

	for _, s := range c.GetStops() {
		buses := c.StopBuses(s.ID)
		if len(buses) == 0 {
			continue
		}
		var m []byte
		m = appendVarintField(m, 1, uint64(s.ID))
		m = appendPackedVarints(m, 2, toUint64s(buses))
		b = appendBytesField(b, 3, m)
	}

	for _, d := range c.Distances() {
		var m []byte
		m = appendVarintField(m, 1, uint64(d.From))
		m = appendVarintField(m, 2, uint64(d.To))
		m = appendVarintField(m, 3, uint64(d.Meters))
		b = appendBytesField(b, 4, m)
	}

	return b
}

func encodeSettings(s transit.Settings) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(s.BusWaitTime))
	b = appendFloatField(b, 2, s.BusVelocity)
	return b
}

func encodeGraph(tr *transit.TransportRouter) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(tr.Graph().VertexCount()))
	for _, rec := range tr.Edges() {
		var m []byte
		m = appendVarintField(m, 1, uint64(rec.Edge.From))
		m = appendVarintField(m, 2, uint64(rec.Edge.To))
		m = appendFloatField(m, 3, rec.Edge.Weight)
		m = appendVarintField(m, 4, uint64(rec.Info.SpanCount))
		if rec.Info.Kind == domain.SegmentRide {
			m = appendVarintField(m, 5, uint64(rec.Info.Bus))
		}
		b = appendBytesField(b, 2, m)
	}
	return b
}

func encodeTable(r *graph.Router) []byte {
	return encodeTableRows(r.Graph().VertexCount(), r.Table())
}

func encodeTableRows(n int, table []graph.Entry) []byte {
	var b []byte
	for u := 0; u < n; u++ {
		states := make([]uint64, n)
		weights := make([]float64, n)
		for v, e := range table[u*n : (u+1)*n] {
			switch {
			case !e.Reachable:
				states[v] = 0
			case e.PrevEdge == graph.NoEdge:
				states[v] = 1
			default:
				states[v] = uint64(e.PrevEdge) + 2
			}
			weights[v] = e.Weight
		}

		var m []byte
		m = appendPackedVarints(m, 1, states)
		m = appendPackedFloats(m, 2, weights)
		b = appendBytesField(b, 1, m)
	}
	return b
}

// Decode rebuilds a snapshot. Any structural inconsistency is reported as
// ErrCorruptSnapshot; nothing partially decoded is returned.
func Decode(data []byte) (*Snapshot, error) {
	var (
		version    uint64
		hasVersion bool
		sections   = map[int][]byte{}
	)
	err := forEachField(data, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.varint()
			if err != nil {
				return err
			}
			version, hasVersion = v, true
		case 2, 3, 4, 5, 6:
			b, err := f.bytes()
			if err != nil {
				return err
			}
			sections[int(f.num)] = b
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if !hasVersion {
		return nil, fmt.Errorf("decode snapshot: %w: missing version", ErrCorruptSnapshot)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("decode snapshot: %w: %d", ErrUnsupportedVersion, version)
	}
	for _, num := range []int{2, 4, 5, 6} {
		if _, ok := sections[num]; !ok {
			return nil, fmt.Errorf("decode snapshot: %w: missing section %d", ErrCorruptSnapshot, num)
		}
	}

	cat, err := decodeCatalogue(sections[2])
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: catalogue: %w", err)
	}
	settings, err := decodeSettings(sections[4])
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: settings: %w", err)
	}
	vertexCount, records, err := decodeGraph(sections[5], cat)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: graph: %w", err)
	}
	table, err := decodeTable(sections[6], vertexCount, len(records))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: router table: %w", err)
	}

	tr, err := transit.Restore(cat, settings, vertexCount, records, table)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %w", ErrCorruptSnapshot, err)
	}

	return &Snapshot{
		Catalogue:      cat,
		Router:         tr,
		RenderSettings: slices.Clone(sections[3]),
	}, nil
}

type busRecord struct {
	name      string
	route     []domain.StopID
	roundtrip bool
	hasStats  bool
	stats     domain.RouteStats
}

func decodeCatalogue(b []byte) (*catalogue.Catalogue, error) {
	var (
		stops     [][]byte
		buses     [][]byte
		stopBuses [][]byte
		distances [][]byte
	)
	err := forEachField(b, func(f field) error {
		m, err := f.bytes()
		if err != nil {
			return err
		}
		switch f.num {
		case 1:
			stops = append(stops, m)
		case 2:
			buses = append(buses, m)
		case 3:
			stopBuses = append(stopBuses, m)
		case 4:
			distances = append(distances, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cat := catalogue.New()

	for i, m := range stops {
		var name string
		var coords domain.Coordinates
		err := forEachField(m, func(f field) error {
			var err error
			switch f.num {
			case 1:
				var raw []byte
				raw, err = f.bytes()
				name = string(raw)
			case 2:
				coords.Lat, err = f.float()
			case 3:
				coords.Lng, err = f.float()
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("stop %d: %w", i, err)
		}
		if _, err := cat.AddStop(name, coords); err != nil {
			return nil, fmt.Errorf("%w: stop %d: %w", ErrCorruptSnapshot, i, err)
		}
	}

	for i, m := range buses {
		rec, err := decodeBus(m, cat.StopCount())
		if err != nil {
			return nil, fmt.Errorf("bus %d: %w", i, err)
		}
		// Stats depend on distances, which are loaded below; checkBusStats
		// verifies them afterwards.
		if _, err := cat.RestoreBus(rec.name, rec.route, rec.roundtrip); err != nil {
			return nil, fmt.Errorf("%w: bus %d: %w", ErrCorruptSnapshot, i, err)
		}
	}

	for i, m := range distances {
		var from, to, meters int
		err := forEachField(m, func(f field) error {
			var err error
			switch f.num {
			case 1:
				from, err = f.index(cat.StopCount())
			case 2:
				to, err = f.index(cat.StopCount())
			case 3:
				var v uint64
				v, err = f.varint()
				meters = int(v)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("distance %d: %w", i, err)
		}
		if err := cat.SetStopDistanceByID(domain.StopID(from), domain.StopID(to), meters); err != nil {
			return nil, fmt.Errorf("%w: distance %d: %w", ErrCorruptSnapshot, i, err)
		}
	}

	if err := checkStopBuses(cat, stopBuses); err != nil {
		return nil, err
	}
	if err := checkBusStats(cat, buses); err != nil {
		return nil, err
	}

	return cat, nil
}

func decodeBus(m []byte, stopCount int) (busRecord, error) {
	var rec busRecord
	err := forEachField(m, func(f field) error {
		switch f.num {
		case 1:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			rec.name = string(raw)
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			ids, err := unpackVarints(raw)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if id >= uint64(stopCount) {
					return fmt.Errorf("%w: route stop id %d out of range", ErrCorruptSnapshot, id)
				}
				rec.route = append(rec.route, domain.StopID(id))
			}
		case 3:
			v, err := f.varint()
			if err != nil {
				return err
			}
			rec.roundtrip = v != 0
		case 4:
			v, err := f.varint()
			if err != nil {
				return err
			}
			rec.hasStats = true
			rec.stats.RouteLength = int(v)
		case 5:
			v, err := f.float()
			if err != nil {
				return err
			}
			rec.hasStats = true
			rec.stats.Curvature = v
		}
		return nil
	})
	return rec, err
}

// checkStopBuses compares the persisted stop->buses index with the one the
// catalogue rebuilt from bus routes.
func checkStopBuses(cat *catalogue.Catalogue, records [][]byte) error {
	persisted := make(map[domain.StopID][]domain.BusID, len(records))
	for i, m := range records {
		var stop int
		var buses []domain.BusID
		err := forEachField(m, func(f field) error {
			switch f.num {
			case 1:
				v, err := f.index(cat.StopCount())
				stop = v
				return err
			case 2:
				raw, err := f.bytes()
				if err != nil {
					return err
				}
				ids, err := unpackVarints(raw)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if id >= uint64(cat.BusCount()) {
						return fmt.Errorf("%w: bus id %d out of range", ErrCorruptSnapshot, id)
					}
					buses = append(buses, domain.BusID(id))
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("stop buses %d: %w", i, err)
		}
		persisted[domain.StopID(stop)] = buses
	}

	for id := 0; id < cat.StopCount(); id++ {
		want := slices.Clone(persisted[domain.StopID(id)])
		slices.Sort(want)
		got := slices.Clone(cat.StopBuses(domain.StopID(id)))
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return fmt.Errorf("%w: stop %d: bus index does not match routes", ErrCorruptSnapshot, id)
		}
	}
	return nil
}

// checkBusStats verifies persisted route statistics against the reloaded
// distance table.
func checkBusStats(cat *catalogue.Catalogue, buses [][]byte) error {
	for i, m := range buses {
		rec, err := decodeBus(m, cat.StopCount())
		if err != nil {
			return fmt.Errorf("bus %d: %w", i, err)
		}
		if !rec.hasStats {
			continue
		}
		bus, _ := cat.Bus(domain.BusID(i))
		stats, err := cat.GetRouteStats(bus)
		if err != nil {
			return fmt.Errorf("%w: bus %d: %w", ErrCorruptSnapshot, i, err)
		}
		if stats != rec.stats {
			return fmt.Errorf("%w: bus %q: stored statistics do not match distances", ErrCorruptSnapshot, bus.Name)
		}
	}
	return nil
}

func decodeSettings(b []byte) (transit.Settings, error) {
	var s transit.Settings
	err := forEachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v uint64
			v, err = f.varint()
			s.BusWaitTime = int(v)
		case 2:
			s.BusVelocity, err = f.float()
		}
		return err
	})
	return s, err
}

func decodeGraph(b []byte, cat *catalogue.Catalogue) (int, []transit.EdgeRecord, error) {
	vertexCount := -1
	var edges [][]byte
	err := forEachField(b, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.varint()
			if err != nil {
				return err
			}
			vertexCount = int(v)
		case 2:
			m, err := f.bytes()
			if err != nil {
				return err
			}
			edges = append(edges, m)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if vertexCount != 2*cat.StopCount() {
		return 0, nil, fmt.Errorf("%w: vertex count %d for %d stops", ErrCorruptSnapshot, vertexCount, cat.StopCount())
	}

	records := make([]transit.EdgeRecord, 0, len(edges))
	for i, m := range edges {
		rec := transit.EdgeRecord{Info: transit.EdgeInfo{Kind: domain.SegmentWait, Bus: domain.NoBus}}
		err := forEachField(m, func(f field) error {
			var err error
			var v int
			switch f.num {
			case 1:
				v, err = f.index(vertexCount)
				rec.Edge.From = graph.VertexID(v)
			case 2:
				v, err = f.index(vertexCount)
				rec.Edge.To = graph.VertexID(v)
			case 3:
				rec.Edge.Weight, err = f.float()
			case 4:
				var u uint64
				u, err = f.varint()
				rec.Info.SpanCount = int(u)
			case 5:
				v, err = f.index(cat.BusCount())
				rec.Info.Kind = domain.SegmentRide
				rec.Info.Bus = domain.BusID(v)
			}
			return err
		})
		if err != nil {
			return 0, nil, fmt.Errorf("edge %d: %w", i, err)
		}
		rec.Info.Stop = transit.VertexOf(rec.Edge.From).Stop
		records = append(records, rec)
	}

	return vertexCount, records, nil
}

func decodeTable(b []byte, vertexCount, edgeCount int) ([]graph.Entry, error) {
	table := make([]graph.Entry, 0, vertexCount*vertexCount)
	rows := 0
	err := forEachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		m, err := f.bytes()
		if err != nil {
			return err
		}

		var states []uint64
		var weights []float64
		err = forEachField(m, func(f field) error {
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			switch f.num {
			case 1:
				states, err = unpackVarints(raw)
			case 2:
				weights, err = unpackFloats(raw)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("row %d: %w", rows, err)
		}
		if len(states) != vertexCount || len(weights) != vertexCount {
			return fmt.Errorf("%w: row %d has %d states and %d weights, want %d", ErrCorruptSnapshot, rows, len(states), len(weights), vertexCount)
		}

		for v, st := range states {
			e := graph.Entry{Weight: weights[v], PrevEdge: graph.NoEdge}
			switch {
			case st == 0:
				e = graph.Entry{}
			case st == 1:
				if v != rows {
					return fmt.Errorf("%w: row %d: target %d marked as source", ErrCorruptSnapshot, rows, v)
				}
				e.Reachable = true
			case st-2 < uint64(edgeCount):
				e.Reachable = true
				e.PrevEdge = graph.EdgeID(st - 2)
			default:
				return fmt.Errorf("%w: row %d: predecessor edge %d out of range", ErrCorruptSnapshot, rows, st-2)
			}
			table = append(table, e)
		}
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows != vertexCount {
		return nil, fmt.Errorf("%w: %d table rows for %d vertices", ErrCorruptSnapshot, rows, vertexCount)
	}
	return table, nil
}

func toUint64s[T ~int](ids []T) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}
