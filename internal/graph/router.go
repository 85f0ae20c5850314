package graph

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Entry is one cell of the all-pairs table: the best known weight from a
// source to a target and the last edge of an optimal path. The source's own
// cell is reachable with weight 0 and PrevEdge == NoEdge.
type Entry struct {
	Reachable bool
	Weight    float64
	PrevEdge  EdgeID
}

// Route is the answer to a BuildRoute query.
type Route struct {
	Weight float64
	Edges  []EdgeID
}

// Router holds the dense all-pairs shortest-path table for a graph.
// The table is computed once and is read-only afterwards.
type Router struct {
	graph *DirectedWeightedGraph
	// table[u*n+v] describes the best u -> v path.
	table []Entry
}

// NewRouter runs a Dijkstra search from every vertex and records the result.
// Sources are independent, so they are spread over workers goroutines
// (GOMAXPROCS when workers <= 0); each worker only writes its own rows, which
// keeps the table identical to a sequential run.
func NewRouter(ctx context.Context, g *DirectedWeightedGraph, workers int) (*Router, error) {
	n := g.VertexCount()
	r := &Router{graph: g, table: make([]Entry, n*n)}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for s := 0; s < n; s++ {
		s := s
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.relaxFrom(VertexID(s))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("precompute routes: %w", err)
	}

	return r, nil
}

// RestoreRouter rebuilds a router from a previously computed table without
// rerunning the precomputation. Every row must describe a shortest-path tree
// rooted at its source: the source cell is {true, 0, NoEdge}, every other
// reachable cell names a predecessor edge ending at it whose start is
// reachable with weight[start] + edge weight == weight, and following
// predecessors always leads back to the source.
func RestoreRouter(g *DirectedWeightedGraph, table []Entry) (*Router, error) {
	n := g.VertexCount()
	if len(table) != n*n {
		return nil, fmt.Errorf("restore router: table has %d entries, want %d", len(table), n*n)
	}
	for u := 0; u < n; u++ {
		if err := checkRow(g, VertexID(u), table[u*n:(u+1)*n]); err != nil {
			return nil, fmt.Errorf("restore router: row %d: %w", u, err)
		}
	}

	return &Router{graph: g, table: slices.Clone(table)}, nil
}

func checkRow(g *DirectedWeightedGraph, source VertexID, row []Entry) error {
	if row[source] != (Entry{Reachable: true, Weight: 0, PrevEdge: NoEdge}) {
		return fmt.Errorf("source cell is %+v, want reachable with weight 0 and no predecessor", row[source])
	}

	for v, e := range row {
		if !e.Reachable || VertexID(v) == source {
			continue
		}
		if e.PrevEdge < 0 || int(e.PrevEdge) >= g.EdgeCount() {
			return fmt.Errorf("target %d: predecessor edge %d out of range", v, e.PrevEdge)
		}
		edge := g.Edge(e.PrevEdge)
		if edge.To != VertexID(v) {
			return fmt.Errorf("target %d: predecessor edge %d does not end at target", v, e.PrevEdge)
		}
		prev := row[edge.From]
		if !prev.Reachable {
			return fmt.Errorf("target %d: predecessor edge %d starts at unreachable vertex %d", v, e.PrevEdge, edge.From)
		}
		if prev.Weight+edge.Weight != e.Weight {
			return fmt.Errorf("target %d: weight %v, want %v via edge %d", v, e.Weight, prev.Weight+edge.Weight, e.PrevEdge)
		}
	}

	// Zero-weight edges satisfy the weight check around a cycle, so walk the
	// predecessor chains. Each vertex is visited once per row.
	const (
		unseen = iota
		onPath
		rooted
	)
	state := make([]uint8, len(row))
	state[source] = rooted
	var path []VertexID
	for v := range row {
		if !row[v].Reachable {
			continue
		}
		path = path[:0]
		cur := VertexID(v)
		for state[cur] == unseen {
			state[cur] = onPath
			path = append(path, cur)
			cur = g.Edge(row[cur].PrevEdge).From
		}
		if state[cur] == onPath {
			return fmt.Errorf("target %d: predecessor chain cycles through vertex %d", v, cur)
		}
		for _, p := range path {
			state[p] = rooted
		}
	}

	return nil
}

// Table returns a copy of the precomputed table in row-major (source, target) order.
func (r *Router) Table() []Entry { return slices.Clone(r.table) }

func (r *Router) Graph() *DirectedWeightedGraph { return r.graph }

// BuildRoute returns the minimal total weight and the edges of an optimal
// from -> to path, or false when to is unreachable from from.
func (r *Router) BuildRoute(from, to VertexID) (Route, bool) {
	n := r.graph.VertexCount()
	if !r.graph.validVertex(from) || !r.graph.validVertex(to) {
		return Route{}, false
	}

	e := r.table[int(from)*n+int(to)]
	if !e.Reachable {
		return Route{}, false
	}

	// A simple path has fewer than n edges.
	edges := []EdgeID{}
	for prev := e.PrevEdge; prev != NoEdge; {
		if len(edges) == n {
			return Route{}, false
		}
		edges = append(edges, prev)
		prev = r.table[int(from)*n+int(r.graph.Edge(prev).From)].PrevEdge
	}
	slices.Reverse(edges)

	return Route{Weight: e.Weight, Edges: edges}, true
}

func (r *Router) relaxFrom(source VertexID) {
	n := r.graph.VertexCount()
	row := r.table[int(source)*n : int(source+1)*n]
	row[source] = Entry{Reachable: true, Weight: 0, PrevEdge: NoEdge}

	done := make([]bool, n)
	pq := &vertexQueue{{vertex: source, weight: 0}}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if done[cur.vertex] {
			continue
		}
		done[cur.vertex] = true

		for _, id := range r.graph.IncidentEdges(cur.vertex) {
			edge := r.graph.Edge(id)
			w := cur.weight + edge.Weight
			// Strict comparison keeps the first edge that reached the minimum.
			if t := &row[edge.To]; !t.Reachable || w < t.Weight {
				*t = Entry{Reachable: true, Weight: w, PrevEdge: id}
				heap.Push(pq, queueItem{vertex: edge.To, weight: w})
			}
		}
	}
}

type queueItem struct {
	vertex VertexID
	weight float64
}

// vertexQueue is a min-heap on weight with lazy deletion of stale items.
type vertexQueue []queueItem

func (q vertexQueue) Len() int { return len(q) }

func (q vertexQueue) Less(i, j int) bool {
	if q[i].weight != q[j].weight {
		return q[i].weight < q[j].weight
	}
	return q[i].vertex < q[j].vertex
}

func (q vertexQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *vertexQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *vertexQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
