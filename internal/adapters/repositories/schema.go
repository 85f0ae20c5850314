package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/platform/db"
)

// Initialize the network schema. The DDL is portable between SQLite and Postgres.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		name TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL
	);
	`

	createDistancesQuery := `
	CREATE TABLE IF NOT EXISTS stop_distances (
		from_stop TEXT NOT NULL REFERENCES stops(name),
		to_stop TEXT NOT NULL REFERENCES stops(name),
		meters INTEGER NOT NULL CHECK (meters >= 0),
		PRIMARY KEY (from_stop, to_stop)
	);
	`

	createBusesQuery := `
	CREATE TABLE IF NOT EXISTS buses (
		name TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		is_roundtrip BOOLEAN NOT NULL
	);
	`

	createBusStopsQuery := `
	CREATE TABLE IF NOT EXISTS bus_stops (
		bus_name TEXT NOT NULL REFERENCES buses(name),
		position INTEGER NOT NULL,
		stop_name TEXT NOT NULL REFERENCES stops(name),
		PRIMARY KEY (bus_name, position)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_bus_stops_stop_name
	ON bus_stops(stop_name);
	`

	statements := []string{
		createStopsQuery,
		createDistancesQuery,
		createBusesQuery,
		createBusStopsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedNetwork replaces the stored network with n. Stop and bus order is kept
// in the seq columns so a later load assigns the same catalogue IDs.
func SeedNetwork(ctx context.Context, conn *sql.DB, driver string, n *domain.Network) error {
	if conn == nil {
		return errors.New("seed network: DB is nil")
	}
	if n == nil {
		return errors.New("seed network: network is nil")
	}

	for i, s := range n.Stops {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("seed network: stop at index %d: name cannot be empty", i)
		}
	}
	for i, b := range n.Buses {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("seed network: bus at index %d: name cannot be empty", i)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed network: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"bus_stops", "buses", "stop_distances", "stops"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return fmt.Errorf("seed network: clear %s: %w", table, err)
		}
	}

	insertStop, err := tx.PrepareContext(ctx, rebind(driver, `
	INSERT INTO stops (name, seq, latitude, longitude)
	VALUES (?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed network: prepare stop insert: %w", err)
	}
	defer insertStop.Close()

	for i, s := range n.Stops {
		if _, err := insertStop.ExecContext(ctx, s.Name, i, s.Coordinates.Lat, s.Coordinates.Lng); err != nil {
			return fmt.Errorf("seed network: insert stop %q: %w", s.Name, err)
		}
	}

	insertDistance, err := tx.PrepareContext(ctx, rebind(driver, `
	INSERT INTO stop_distances (from_stop, to_stop, meters)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed network: prepare distance insert: %w", err)
	}
	defer insertDistance.Close()

	for _, s := range n.Stops {
		for to, meters := range s.RoadDistances {
			if _, err := insertDistance.ExecContext(ctx, s.Name, to, meters); err != nil {
				return fmt.Errorf("seed network: insert distance %q -> %q: %w", s.Name, to, err)
			}
		}
	}

	insertBus, err := tx.PrepareContext(ctx, rebind(driver, `
	INSERT INTO buses (name, seq, is_roundtrip)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed network: prepare bus insert: %w", err)
	}
	defer insertBus.Close()

	insertBusStop, err := tx.PrepareContext(ctx, rebind(driver, `
	INSERT INTO bus_stops (bus_name, position, stop_name)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed network: prepare bus stop insert: %w", err)
	}
	defer insertBusStop.Close()

	for i, b := range n.Buses {
		if _, err := insertBus.ExecContext(ctx, b.Name, i, b.IsRoundtrip); err != nil {
			return fmt.Errorf("seed network: insert bus %q: %w", b.Name, err)
		}
		for pos, stop := range b.Stops {
			if _, err := insertBusStop.ExecContext(ctx, b.Name, pos, stop); err != nil {
				return fmt.Errorf("seed network: insert bus %q stop #%d: %w", b.Name, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed network: commit tx: %w", err)
	}

	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func rebind(driver, query string) string {
	if driver != db.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
