package catalogue

import (
	"testing"
	"transit-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalogue(t *testing.T) *Catalogue {
	t.Helper()

	c := New()
	for _, s := range []struct {
		name     string
		lat, lng float64
	}{
		{"A", 55.611087, 37.20829},
		{"B", 55.595884, 37.209755},
		{"C", 55.632761, 37.333324},
		{"D", 55.574371, 37.6517},
	} {
		_, err := c.AddStop(s.name, domain.Coordinates{Lat: s.lat, Lng: s.lng})
		require.NoError(t, err)
	}
	return c
}

func TestCatalogueStopDistanceFallback(t *testing.T) {
	c := newTestCatalogue(t)
	require.NoError(t, c.SetStopDistance("A", "B", 3900))
	require.NoError(t, c.SetStopDistance("B", "C", 9900))
	require.NoError(t, c.SetStopDistance("C", "B", 10000))

	a, _ := c.FindStop("A")
	b, _ := c.FindStop("B")
	cc, _ := c.FindStop("C")
	d, _ := c.FindStop("D")

	assert.Equal(t, 3900, c.GetStopDistance(a.ID, b.ID))
	assert.Equal(t, 3900, c.GetStopDistance(b.ID, a.ID), "reverse direction falls back")
	assert.Equal(t, 9900, c.GetStopDistance(b.ID, cc.ID))
	assert.Equal(t, 10000, c.GetStopDistance(cc.ID, b.ID), "ordered pair wins over fallback")
	assert.Equal(t, 0, c.GetStopDistance(a.ID, d.ID), "unknown pair is 0")
	assert.Equal(t, 0, c.GetStopDistance(d.ID, a.ID))
}

func TestCatalogueSetStopDistanceOverwrites(t *testing.T) {
	c := newTestCatalogue(t)
	require.NoError(t, c.SetStopDistance("A", "B", 100))
	require.NoError(t, c.SetStopDistance("A", "B", 250))

	a, _ := c.FindStop("A")
	b, _ := c.FindStop("B")
	assert.Equal(t, 250, c.GetStopDistance(a.ID, b.ID))
	assert.Len(t, c.Distances(), 1)
}

func TestCatalogueNonRoundtripExpansion(t *testing.T) {
	c := newTestCatalogue(t)
	_, err := c.AddBusRoute("750", []string{"A", "B", "C"}, false)
	require.NoError(t, err)

	bus, ok := c.FindBusRoute("750")
	require.True(t, ok)

	names := make([]string, 0, len(bus.Route))
	for _, id := range bus.Route {
		s, _ := c.Stop(id)
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "B", "A"}, names)
	assert.Len(t, bus.Route, 5)
	assert.Len(t, bus.UniqueStops, 3)
	assert.False(t, bus.IsRoundtrip)
}

func TestCatalogueRoundtripStoredAsIs(t *testing.T) {
	c := newTestCatalogue(t)
	_, err := c.AddBusRoute("256", []string{"A", "B", "C", "A"}, true)
	require.NoError(t, err)

	bus, _ := c.FindBusRoute("256")
	assert.Len(t, bus.Route, 4)
	assert.Len(t, bus.UniqueStops, 3)
}

func TestCatalogueRouteStats(t *testing.T) {
	c := newTestCatalogue(t)
	require.NoError(t, c.SetStopDistance("A", "B", 3900))
	require.NoError(t, c.SetStopDistance("B", "C", 9900))
	require.NoError(t, c.SetStopDistance("C", "B", 10000))
	_, err := c.AddBusRoute("750", []string{"A", "B", "C"}, false)
	require.NoError(t, err)

	bus, _ := c.FindBusRoute("750")
	stats, err := c.GetRouteStats(bus)
	require.NoError(t, err)

	want := 0
	geoLength := 0.0
	for i := 0; i+1 < len(bus.Route); i++ {
		want += c.GetStopDistance(bus.Route[i], bus.Route[i+1])
		from, _ := c.Stop(bus.Route[i])
		to, _ := c.Stop(bus.Route[i+1])
		geoLength += domain.ComputeDistance(from.Coordinates, to.Coordinates)
	}

	assert.Equal(t, 3900+9900+10000+3900, stats.RouteLength)
	assert.Equal(t, want, stats.RouteLength)
	assert.InDelta(t, float64(want)/geoLength, stats.Curvature, 1e-12)
	assert.GreaterOrEqual(t, stats.Curvature, 1.0)
}

func TestCatalogueRouteStatsTooShort(t *testing.T) {
	c := newTestCatalogue(t)
	_, err := c.AddBusRoute("1", []string{"A"}, true)
	require.NoError(t, err)

	bus, _ := c.FindBusRoute("1")
	_, err = c.GetRouteStats(bus)
	assert.ErrorIs(t, err, ErrRouteTooShort)
}

func TestCatalogueStopInfo(t *testing.T) {
	c := newTestCatalogue(t)
	_, err := c.AddBusRoute("828", []string{"A", "C"}, true)
	require.NoError(t, err)
	_, err = c.AddBusRoute("256", []string{"C", "B"}, false)
	require.NoError(t, err)

	cs, _ := c.FindStop("C")
	assert.Equal(t, []string{"256", "828"}, c.GetStopInfo(cs))

	d, _ := c.FindStop("D")
	info := c.GetStopInfo(d)
	assert.NotNil(t, info)
	assert.Empty(t, info)
}

func TestCatalogueLookupErrors(t *testing.T) {
	c := newTestCatalogue(t)

	_, ok := c.FindStop("nowhere")
	assert.False(t, ok)
	_, ok = c.FindBusRoute("nothing")
	assert.False(t, ok)

	_, err := c.AddStop("A", domain.Coordinates{})
	assert.ErrorIs(t, err, ErrDuplicateStop)

	_, err = c.AddBusRoute("x", []string{"A", "Z"}, true)
	assert.ErrorIs(t, err, ErrStopNotFound)

	_, err = c.AddBusRoute("y", []string{"A", "B"}, true)
	require.NoError(t, err)
	_, err = c.AddBusRoute("y", []string{"A", "B"}, true)
	assert.ErrorIs(t, err, ErrDuplicateBus)

	assert.ErrorIs(t, c.SetStopDistance("A", "Z", 10), ErrStopNotFound)
}

func TestCatalogueStablePointers(t *testing.T) {
	c := New()
	first, err := c.AddStop("first", domain.Coordinates{Lat: 1, Lng: 1})
	require.NoError(t, err)
	before, _ := c.Stop(first)

	for i := 0; i < 1000; i++ {
		_, err := c.AddStop(string(rune('a'+i%26))+string(rune('0'+i/26%10))+string(rune('A'+i/260)), domain.Coordinates{})
		require.NoError(t, err)
	}

	after, _ := c.Stop(first)
	assert.Same(t, before, after)
}

func TestCatalogueDistancesOrdered(t *testing.T) {
	c := newTestCatalogue(t)
	require.NoError(t, c.SetStopDistance("C", "A", 3))
	require.NoError(t, c.SetStopDistance("A", "C", 2))
	require.NoError(t, c.SetStopDistance("A", "B", 1))

	got := c.Distances()
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Meters)
	assert.Equal(t, 2, got[1].Meters)
	assert.Equal(t, 3, got[2].Meters)
}
