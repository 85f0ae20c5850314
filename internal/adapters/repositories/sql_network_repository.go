package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/platform/obs"
)

// SQL-backed implementation of the NetworkSource port.
type SQLNetworkRepository struct {
	DB     *sql.DB
	Driver string
}

func NewSQLNetworkRepository(db *sql.DB, driver string) *SQLNetworkRepository {
	return &SQLNetworkRepository{DB: db, Driver: driver}
}

// Return the stored network with stops and buses in seeding order.
func (s *SQLNetworkRepository) LoadNetwork(ctx context.Context) (_ *domain.Network, err error) {
	defer obs.Time(ctx, "network.repository.LoadNetwork")(&err)

	if s.DB == nil {
		return nil, errors.New("sql network repository: DB is nil")
	}

	n := &domain.Network{}
	index := make(map[string]int)

	stopRows, err := s.DB.QueryContext(ctx, `
	SELECT name, latitude, longitude
	FROM stops
	ORDER BY seq;
	`)
	if err != nil {
		return nil, fmt.Errorf("load network: query stops table: %w", err)
	}
	defer stopRows.Close()

	for stopRows.Next() {
		var def domain.StopDefinition
		if err := stopRows.Scan(&def.Name, &def.Coordinates.Lat, &def.Coordinates.Lng); err != nil {
			return nil, fmt.Errorf("load network: scan stop row: %w", err)
		}
		def.RoadDistances = map[string]int{}
		index[def.Name] = len(n.Stops)
		n.Stops = append(n.Stops, def)
	}
	if err := stopRows.Err(); err != nil {
		return nil, fmt.Errorf("load network: stop row iteration: %w", err)
	}

	distRows, err := s.DB.QueryContext(ctx, `
	SELECT from_stop, to_stop, meters
	FROM stop_distances
	ORDER BY from_stop, to_stop;
	`)
	if err != nil {
		return nil, fmt.Errorf("load network: query stop_distances table: %w", err)
	}
	defer distRows.Close()

	for distRows.Next() {
		var from, to string
		var meters int
		if err := distRows.Scan(&from, &to, &meters); err != nil {
			return nil, fmt.Errorf("load network: scan distance row: %w", err)
		}
		i, ok := index[from]
		if !ok {
			return nil, fmt.Errorf("load network: distance from unknown stop %q", from)
		}
		n.Stops[i].RoadDistances[to] = meters
	}
	if err := distRows.Err(); err != nil {
		return nil, fmt.Errorf("load network: distance row iteration: %w", err)
	}

	busRows, err := s.DB.QueryContext(ctx, `
	SELECT b.name, b.is_roundtrip, bs.stop_name
	FROM buses b
	JOIN bus_stops bs ON bs.bus_name = b.name
	ORDER BY b.seq, bs.position;
	`)
	if err != nil {
		return nil, fmt.Errorf("load network: query buses table: %w", err)
	}
	defer busRows.Close()

	for busRows.Next() {
		var name, stop string
		var roundtrip bool
		if err := busRows.Scan(&name, &roundtrip, &stop); err != nil {
			return nil, fmt.Errorf("load network: scan bus row: %w", err)
		}
		if last := len(n.Buses) - 1; last < 0 || n.Buses[last].Name != name {
			n.Buses = append(n.Buses, domain.BusDefinition{Name: name, IsRoundtrip: roundtrip})
		}
		last := &n.Buses[len(n.Buses)-1]
		last.Stops = append(last.Stops, stop)
	}
	if err := busRows.Err(); err != nil {
		return nil, fmt.Errorf("load network: bus row iteration: %w", err)
	}

	return n, nil
}
