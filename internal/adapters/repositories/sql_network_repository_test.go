package repositories

import (
	"context"
	"database/sql"
	"testing"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))
	return conn
}

func sampleNetwork() *domain.Network {
	return &domain.Network{
		Stops: []domain.StopDefinition{
			{Name: "Rivierskiy most", Coordinates: domain.Coordinates{Lat: 43.587795, Lng: 39.716901}, RoadDistances: map[string]int{"Morskoy vokzal": 850}},
			{Name: "Morskoy vokzal", Coordinates: domain.Coordinates{Lat: 43.581969, Lng: 39.719848}, RoadDistances: map[string]int{"Rivierskiy most": 850}},
			{Name: "Elektroseti", Coordinates: domain.Coordinates{Lat: 43.598701, Lng: 39.730623}, RoadDistances: map[string]int{}},
		},
		Buses: []domain.BusDefinition{
			{Name: "114", Stops: []string{"Morskoy vokzal", "Rivierskiy most"}, IsRoundtrip: false},
			{Name: "24", Stops: []string{"Elektroseti", "Rivierskiy most", "Elektroseti"}, IsRoundtrip: true},
		},
	}
}

func TestSeedAndLoadNetwork(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	want := sampleNetwork()
	require.NoError(t, SeedNetwork(ctx, conn, db.DriverSQLite, want))

	got, err := NewSQLNetworkRepository(conn, db.DriverSQLite).LoadNetwork(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSeedNetworkReplacesPrevious(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	require.NoError(t, SeedNetwork(ctx, conn, db.DriverSQLite, sampleNetwork()))

	smaller := &domain.Network{
		Stops: []domain.StopDefinition{
			{Name: "A", Coordinates: domain.Coordinates{Lat: 1, Lng: 2}, RoadDistances: map[string]int{}},
		},
	}
	require.NoError(t, SeedNetwork(ctx, conn, db.DriverSQLite, smaller))

	got, err := NewSQLNetworkRepository(conn, db.DriverSQLite).LoadNetwork(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller, got)
}

func TestSeedNetworkRejectsDuplicates(t *testing.T) {
	conn := openMemory(t)

	n := sampleNetwork()
	n.Stops = append(n.Stops, n.Stops[0])

	err := SeedNetwork(context.Background(), conn, db.DriverSQLite, n)
	assert.Error(t, err)

	// The failed seed must not leave a partial network behind.
	got, err := NewSQLNetworkRepository(conn, db.DriverSQLite).LoadNetwork(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Stops)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	conn := openMemory(t)
	assert.NoError(t, InitSchema(context.Background(), conn))
	assert.Error(t, InitSchema(context.Background(), nil))
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b, c) VALUES (?, ?, ?);"
	assert.Equal(t, q, rebind(db.DriverSQLite, q))
	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES ($1, $2, $3);", rebind(db.DriverPostgres, q))
}
