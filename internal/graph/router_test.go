package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddEdge(t *testing.T, g *DirectedWeightedGraph, from, to VertexID, w float64) EdgeID {
	t.Helper()
	id, err := g.AddEdge(Edge{From: from, To: to, Weight: w})
	require.NoError(t, err)
	return id
}

func TestRouterShortestPath(t *testing.T) {
	g := NewDirectedWeightedGraph(5)
	mustAddEdge(t, g, 0, 1, 4)
	e01 := mustAddEdge(t, g, 0, 1, 1) // parallel, cheaper
	e12 := mustAddEdge(t, g, 1, 2, 2)
	mustAddEdge(t, g, 0, 2, 5)
	e23 := mustAddEdge(t, g, 2, 3, 1)

	r, err := NewRouter(context.Background(), g, 2)
	require.NoError(t, err)

	route, ok := r.BuildRoute(0, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, route.Weight, 1e-9)
	assert.Equal(t, []EdgeID{e01, e12, e23}, route.Edges)

	route, ok = r.BuildRoute(0, 0)
	require.True(t, ok)
	assert.Zero(t, route.Weight)
	assert.Empty(t, route.Edges)

	_, ok = r.BuildRoute(3, 0)
	assert.False(t, ok, "edges are directed")

	_, ok = r.BuildRoute(0, 4)
	assert.False(t, ok, "isolated vertex is unreachable")

	_, ok = r.BuildRoute(0, 9)
	assert.False(t, ok, "out of range vertex")
}

func TestRouterPrecomputationIsDeterministic(t *testing.T) {
	g := NewDirectedWeightedGraph(6)
	for _, e := range []struct {
		from, to VertexID
		w        float64
	}{
		{0, 1, 1}, {0, 2, 1}, {1, 3, 1}, {2, 3, 1}, {3, 4, 0.5}, {4, 5, 0}, {5, 0, 2}, {1, 4, 1.5},
	} {
		mustAddEdge(t, g, e.from, e.to, e.w)
	}

	sequential, err := NewRouter(context.Background(), g, 1)
	require.NoError(t, err)
	parallel, err := NewRouter(context.Background(), g, 8)
	require.NoError(t, err)

	a, b := sequential.Table(), parallel.Table()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Reachable, b[i].Reachable, "entry %d", i)
		assert.InDelta(t, a[i].Weight, b[i].Weight, 1e-12, "entry %d", i)
	}
}

func TestRouterRestore(t *testing.T) {
	g := NewDirectedWeightedGraph(3)
	mustAddEdge(t, g, 0, 1, 1)
	mustAddEdge(t, g, 1, 2, 1)

	r, err := NewRouter(context.Background(), g, 0)
	require.NoError(t, err)

	restored, err := RestoreRouter(g, r.Table())
	require.NoError(t, err)

	want, _ := r.BuildRoute(0, 2)
	got, ok := restored.BuildRoute(0, 2)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, err = RestoreRouter(g, r.Table()[:4])
	assert.Error(t, err)

	bad := r.Table()
	bad[2] = Entry{Reachable: true, Weight: 1, PrevEdge: 0} // edge 0 ends at vertex 1, not 2
	_, err = RestoreRouter(g, bad)
	assert.Error(t, err)
}

func TestRestoreRouterRejectsInconsistentRows(t *testing.T) {
	g := NewDirectedWeightedGraph(2)
	e01 := mustAddEdge(t, g, 0, 1, 1)
	e10 := mustAddEdge(t, g, 1, 0, 1)

	good, err := NewRouter(context.Background(), g, 1)
	require.NoError(t, err)
	_, err = RestoreRouter(g, good.Table())
	require.NoError(t, err)

	cases := map[string][]Entry{
		"source cell with a predecessor": {
			{Reachable: true, Weight: 0, PrevEdge: e10}, {Reachable: true, Weight: 1, PrevEdge: e01},
			{Reachable: true, Weight: 1, PrevEdge: e10}, {Reachable: true, Weight: 0, PrevEdge: NoEdge},
		},
		"target without predecessor": {
			{Reachable: true, Weight: 0, PrevEdge: NoEdge}, {Reachable: true, Weight: 5, PrevEdge: NoEdge},
			{Reachable: true, Weight: 1, PrevEdge: e10}, {Reachable: true, Weight: 0, PrevEdge: NoEdge},
		},
		"weight does not add up": {
			{Reachable: true, Weight: 0, PrevEdge: NoEdge}, {Reachable: true, Weight: 5, PrevEdge: e01},
			{Reachable: true, Weight: 1, PrevEdge: e10}, {Reachable: true, Weight: 0, PrevEdge: NoEdge},
		},
	}

	for name, table := range cases {
		_, err := RestoreRouter(g, table)
		assert.Error(t, err, name)
	}

	chain := NewDirectedWeightedGraph(3)
	mustAddEdge(t, chain, 0, 1, 1)
	e12 := mustAddEdge(t, chain, 1, 2, 1)
	_, err = RestoreRouter(chain, []Entry{
		{Reachable: true, Weight: 0, PrevEdge: NoEdge}, {}, {Reachable: true, Weight: 2, PrevEdge: e12},
		{}, {Reachable: true, Weight: 0, PrevEdge: NoEdge}, {Reachable: true, Weight: 1, PrevEdge: e12},
		{}, {}, {Reachable: true, Weight: 0, PrevEdge: NoEdge},
	})
	assert.ErrorContains(t, err, "unreachable")
}

func TestRestoreRouterRejectsPredecessorCycle(t *testing.T) {
	g := NewDirectedWeightedGraph(3)
	e12 := mustAddEdge(t, g, 1, 2, 0)
	e21 := mustAddEdge(t, g, 2, 1, 0)

	// Row 0 claims 1 and 2 are reachable through each other; the weights agree.
	table := []Entry{
		{Reachable: true, Weight: 0, PrevEdge: NoEdge}, {Reachable: true, Weight: 5, PrevEdge: e21}, {Reachable: true, Weight: 5, PrevEdge: e12},
		{}, {Reachable: true, Weight: 0, PrevEdge: NoEdge}, {Reachable: true, Weight: 0, PrevEdge: e12},
		{}, {Reachable: true, Weight: 0, PrevEdge: e21}, {Reachable: true, Weight: 0, PrevEdge: NoEdge},
	}

	_, err := RestoreRouter(g, table)
	assert.ErrorContains(t, err, "cycles")

	table[1], table[2] = Entry{}, Entry{}
	r, err := RestoreRouter(g, table)
	require.NoError(t, err)
	route, ok := r.BuildRoute(1, 2)
	require.True(t, ok)
	assert.Equal(t, []EdgeID{e12}, route.Edges)
}

func TestBuildRouteStopsOnCorruptTable(t *testing.T) {
	g := NewDirectedWeightedGraph(2)
	e01 := mustAddEdge(t, g, 0, 1, 0)
	e10 := mustAddEdge(t, g, 1, 0, 0)

	// Built directly so the walk itself has to give up.
	r := &Router{graph: g, table: []Entry{
		{Reachable: true, PrevEdge: e10}, {Reachable: true, PrevEdge: e01},
		{Reachable: true, PrevEdge: e10}, {Reachable: true, PrevEdge: NoEdge},
	}}

	_, ok := r.BuildRoute(0, 1)
	assert.False(t, ok)
}

func TestRouterCanceled(t *testing.T) {
	g := NewDirectedWeightedGraph(4)
	mustAddEdge(t, g, 0, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRouter(ctx, g, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGraphAddEdgeValidation(t *testing.T) {
	g := NewDirectedWeightedGraph(2)

	_, err := g.AddEdge(Edge{From: 0, To: 2, Weight: 1})
	assert.ErrorIs(t, err, ErrVertexOutOfRange)

	_, err = g.AddEdge(Edge{From: 0, To: 1, Weight: -1})
	assert.Error(t, err)

	assert.Equal(t, 0, g.EdgeCount())
}
