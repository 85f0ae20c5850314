package graph

import (
	"errors"
	"fmt"
)

var ErrVertexOutOfRange = errors.New("vertex out of range")

type VertexID int

type EdgeID int

// NoEdge marks a missing predecessor edge.
const NoEdge EdgeID = -1

// Edge is a directed, non-negatively weighted edge.
type Edge struct {
	From   VertexID
	To     VertexID
	Weight float64
}

// DirectedWeightedGraph stores edges in insertion order (the EdgeID is the
// insertion index) plus per-vertex outgoing incidence lists.
// Parallel edges between the same ordered pair are allowed.
type DirectedWeightedGraph struct {
	edges     []Edge
	incidence [][]EdgeID
}

func NewDirectedWeightedGraph(vertexCount int) *DirectedWeightedGraph {
	return &DirectedWeightedGraph{incidence: make([][]EdgeID, vertexCount)}
}

// AddEdge appends an edge and returns its ID.
func (g *DirectedWeightedGraph) AddEdge(e Edge) (EdgeID, error) {
	if !g.validVertex(e.From) || !g.validVertex(e.To) {
		return 0, fmt.Errorf("add edge %d -> %d: %w", e.From, e.To, ErrVertexOutOfRange)
	}
	if e.Weight < 0 {
		return 0, fmt.Errorf("add edge %d -> %d: negative weight %v", e.From, e.To, e.Weight)
	}

	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, e)
	g.incidence[e.From] = append(g.incidence[e.From], id)
	return id, nil
}

func (g *DirectedWeightedGraph) VertexCount() int { return len(g.incidence) }

func (g *DirectedWeightedGraph) EdgeCount() int { return len(g.edges) }

// Edge returns the edge with the given ID. The ID must come from this graph.
func (g *DirectedWeightedGraph) Edge(id EdgeID) Edge { return g.edges[id] }

// IncidentEdges returns the IDs of the edges leaving v.
func (g *DirectedWeightedGraph) IncidentEdges(v VertexID) []EdgeID { return g.incidence[v] }

func (g *DirectedWeightedGraph) validVertex(v VertexID) bool {
	return v >= 0 && int(v) < len(g.incidence)
}
