package catalogue

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"transit-route-service/internal/domain"
)

var (
	ErrStopNotFound  = errors.New("stop not found")
	ErrBusNotFound   = errors.New("bus not found")
	ErrDuplicateStop = errors.New("duplicate stop")
	ErrDuplicateBus  = errors.New("duplicate bus")
	ErrRouteTooShort = errors.New("route has fewer than 2 stops")
)

type stopPair struct {
	from, to domain.StopID
}

// DistanceEntry is one directed road distance record.
type DistanceEntry struct {
	From   domain.StopID
	To     domain.StopID
	Meters int
}

// Catalogue owns every Stop and Bus of a network, the directed distance table
// and the stop->buses index.
//
// Storage is append-only: stops and buses are addressed by dense IDs that stay
// valid for the catalogue's lifetime, and the pointers handed out by lookups are
// never relocated by later insertions. The catalogue is populated once and is
// read-only afterwards, so lookups need no locking.
type Catalogue struct {
	stops []*domain.Stop
	buses []*domain.Bus

	stopByName map[string]domain.StopID
	busByName  map[string]domain.BusID

	// stopBuses[stopID] lists the buses serving that stop, in insertion order.
	stopBuses [][]domain.BusID
	distances map[stopPair]int
}

func New() *Catalogue {
	return &Catalogue{
		stopByName: make(map[string]domain.StopID),
		busByName:  make(map[string]domain.BusID),
		distances:  make(map[stopPair]int),
	}
}

// AddStop registers a new stop and returns its ID.
func (c *Catalogue) AddStop(name string, coords domain.Coordinates) (domain.StopID, error) {
	if name == "" {
		return 0, errors.New("add stop: name must be non-empty")
	}
	if _, ok := c.stopByName[name]; ok {
		return 0, fmt.Errorf("add stop %q: %w", name, ErrDuplicateStop)
	}

	id := domain.StopID(len(c.stops))
	c.stops = append(c.stops, &domain.Stop{ID: id, Name: name, Coordinates: coords})
	c.stopByName[name] = id
	c.stopBuses = append(c.stopBuses, nil)

	return id, nil
}

// AddBusRoute registers a bus line over already-added stops.
// For a non-roundtrip bus the stored route is the outward sequence followed by
// the return leg, e.g. [A B C] is stored as [A B C B A].
func (c *Catalogue) AddBusRoute(name string, stopNames []string, isRoundtrip bool) (domain.BusID, error) {
	route := make([]domain.StopID, 0, 2*len(stopNames))
	for _, sn := range stopNames {
		id, ok := c.stopByName[sn]
		if !ok {
			return 0, fmt.Errorf("add bus %q: stop %q: %w", name, sn, ErrStopNotFound)
		}
		route = append(route, id)
	}

	if !isRoundtrip && len(route) > 1 {
		for i := len(route) - 2; i >= 0; i-- {
			route = append(route, route[i])
		}
	}

	id, err := c.RestoreBus(name, route, isRoundtrip)
	if err != nil {
		return 0, fmt.Errorf("add bus: %w", err)
	}
	return id, nil
}

// RestoreBus registers a bus whose route is already expanded into stop IDs.
// It is the reload path used by snapshot decoding; regular loading goes
// through AddBusRoute.
func (c *Catalogue) RestoreBus(name string, route []domain.StopID, isRoundtrip bool) (domain.BusID, error) {
	if name == "" {
		return 0, errors.New("restore bus: name must be non-empty")
	}
	if _, ok := c.busByName[name]; ok {
		return 0, fmt.Errorf("restore bus %q: %w", name, ErrDuplicateBus)
	}

	seen := make(map[domain.StopID]struct{}, len(route))
	unique := make([]domain.StopID, 0, len(route))
	for _, s := range route {
		if !c.validStop(s) {
			return 0, fmt.Errorf("restore bus %q: stop id %d: %w", name, s, ErrStopNotFound)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	slices.Sort(unique)

	id := domain.BusID(len(c.buses))
	c.buses = append(c.buses, &domain.Bus{
		ID:          id,
		Name:        name,
		Route:       slices.Clone(route),
		UniqueStops: unique,
		IsRoundtrip: isRoundtrip,
	})
	c.busByName[name] = id

	for _, s := range unique {
		c.stopBuses[s] = append(c.stopBuses[s], id)
	}

	return id, nil
}

// SetStopDistance records the road distance from one named stop to another.
// A later call for the same ordered pair overwrites the previous value.
func (c *Catalogue) SetStopDistance(from, to string, meters int) error {
	f, ok := c.stopByName[from]
	if !ok {
		return fmt.Errorf("set distance: from %q: %w", from, ErrStopNotFound)
	}
	t, ok := c.stopByName[to]
	if !ok {
		return fmt.Errorf("set distance: to %q: %w", to, ErrStopNotFound)
	}

	return c.SetStopDistanceByID(f, t, meters)
}

func (c *Catalogue) SetStopDistanceByID(from, to domain.StopID, meters int) error {
	if !c.validStop(from) || !c.validStop(to) {
		return fmt.Errorf("set distance: stop ids %d -> %d: %w", from, to, ErrStopNotFound)
	}
	if meters < 0 {
		return fmt.Errorf("set distance: negative distance %d between stop ids %d -> %d", meters, from, to)
	}

	c.distances[stopPair{from, to}] = meters
	return nil
}

// GetStopDistance returns the road distance from -> to.
// If only the reverse direction was recorded it is used instead; if neither
// direction is known the distance is 0.
func (c *Catalogue) GetStopDistance(from, to domain.StopID) int {
	if d, ok := c.distances[stopPair{from, to}]; ok {
		return d
	}
	if d, ok := c.distances[stopPair{to, from}]; ok {
		return d
	}
	return 0
}

// FindStop returns the stop with the given name, if any.
func (c *Catalogue) FindStop(name string) (*domain.Stop, bool) {
	id, ok := c.stopByName[name]
	if !ok {
		return nil, false
	}
	return c.stops[id], true
}

// FindBusRoute returns the bus with the given name, if any.
func (c *Catalogue) FindBusRoute(name string) (*domain.Bus, bool) {
	id, ok := c.busByName[name]
	if !ok {
		return nil, false
	}
	return c.buses[id], true
}

func (c *Catalogue) Stop(id domain.StopID) (*domain.Stop, bool) {
	if !c.validStop(id) {
		return nil, false
	}
	return c.stops[id], true
}

func (c *Catalogue) Bus(id domain.BusID) (*domain.Bus, bool) {
	if id < 0 || int(id) >= len(c.buses) {
		return nil, false
	}
	return c.buses[id], true
}

func (c *Catalogue) StopCount() int { return len(c.stops) }

func (c *Catalogue) BusCount() int { return len(c.buses) }

// GetStops returns all stops in insertion (ID) order.
func (c *Catalogue) GetStops() []*domain.Stop { return slices.Clone(c.stops) }

// GetRoutes returns all buses in insertion (ID) order.
func (c *Catalogue) GetRoutes() []*domain.Bus { return slices.Clone(c.buses) }

// GetRouteStats computes route length and curvature for a bus.
//
// Curvature is only defined for routes of at least two stops; shorter routes
// return ErrRouteTooShort. A route whose stops all share coordinates has no
// great-circle length and reports a curvature of 0.
func (c *Catalogue) GetRouteStats(bus *domain.Bus) (domain.RouteStats, error) {
	if bus == nil {
		return domain.RouteStats{}, fmt.Errorf("route stats: %w", ErrBusNotFound)
	}
	if len(bus.Route) < 2 {
		return domain.RouteStats{}, fmt.Errorf("route stats for bus %q: %w", bus.Name, ErrRouteTooShort)
	}

	length := 0
	geoLength := 0.0
	for i := 0; i+1 < len(bus.Route); i++ {
		from, to := bus.Route[i], bus.Route[i+1]
		length += c.GetStopDistance(from, to)
		geoLength += domain.ComputeDistance(c.stops[from].Coordinates, c.stops[to].Coordinates)
	}

	stats := domain.RouteStats{RouteLength: length}
	if geoLength > 0 {
		stats.Curvature = float64(length) / geoLength
	}
	return stats, nil
}

// GetStopInfo returns the sorted names of buses serving a stop.
// A stop served by no bus yields an empty, non-nil slice.
func (c *Catalogue) GetStopInfo(stop *domain.Stop) []string {
	if stop == nil || !c.validStop(stop.ID) {
		return []string{}
	}

	names := make([]string, 0, len(c.stopBuses[stop.ID]))
	for _, b := range c.stopBuses[stop.ID] {
		names = append(names, c.buses[b].Name)
	}
	slices.Sort(names)
	return names
}

// StopBuses returns the IDs of buses serving a stop, in insertion order.
func (c *Catalogue) StopBuses(id domain.StopID) []domain.BusID {
	if !c.validStop(id) {
		return nil
	}
	return slices.Clone(c.stopBuses[id])
}

// Distances returns every recorded directed distance ordered by (From, To).
func (c *Catalogue) Distances() []DistanceEntry {
	out := make([]DistanceEntry, 0, len(c.distances))
	for k, v := range c.distances {
		out = append(out, DistanceEntry{From: k.from, To: k.to, Meters: v})
	}
	slices.SortFunc(out, func(a, b DistanceEntry) int {
		if n := cmp.Compare(a.From, b.From); n != 0 {
			return n
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

func (c *Catalogue) validStop(id domain.StopID) bool {
	return id >= 0 && int(id) < len(c.stops)
}
